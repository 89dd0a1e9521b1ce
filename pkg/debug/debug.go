// Package debug provides global debug logging flags
package debug

import "fmt"

// Enabled turns on request logging and debug-level output
var Enabled bool

// Detection controls whether per-frame detection traces are shown (face box,
// eye boxes, pupil points). Use --debug-detection to enable these very verbose logs.
var Detection bool

// DetectLog prints a message only if detection tracing is enabled
func DetectLog(format string, args ...interface{}) {
	if Detection {
		fmt.Printf(format, args...)
	}
}
