package tracking

import "fmt"

// IntentKind discriminates navigation intents.
type IntentKind int

const (
	IntentNone IntentKind = iota
	IntentOrbitLeft
	IntentOrbitRight
	IntentZoom
)

var intentNames = map[IntentKind]string{
	IntentNone:       "none",
	IntentOrbitLeft:  "orbit_left",
	IntentOrbitRight: "orbit_right",
	IntentZoom:       "zoom",
}

func (k IntentKind) String() string {
	if name, ok := intentNames[k]; ok {
		return name
	}
	return fmt.Sprintf("intent(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k IntentKind) MarshalText() ([]byte, error) {
	if _, ok := intentNames[k]; !ok {
		return nil, fmt.Errorf("tracking: unknown intent kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *IntentKind) UnmarshalText(text []byte) error {
	for kind, name := range intentNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("tracking: unknown intent kind %q", text)
}

// Intent is one viewport command produced by a processing cycle.
// Step is the orbit magnitude, Delta the change to the view distance.
type Intent struct {
	Kind  IntentKind `json:"kind"`
	Step  int        `json:"step,omitempty"`
	Delta float64    `json:"delta,omitempty"`
}

// None is the empty intent.
func None() Intent { return Intent{} }

// OrbitLeft orbits the view left by step.
func OrbitLeft(step int) Intent { return Intent{Kind: IntentOrbitLeft, Step: step} }

// OrbitRight orbits the view right by step.
func OrbitRight(step int) Intent { return Intent{Kind: IntentOrbitRight, Step: step} }

// ZoomBy changes the view distance by delta. Positive moves away.
func ZoomBy(delta float64) Intent { return Intent{Kind: IntentZoom, Delta: delta} }

// IsNone reports whether the intent carries no command.
func (i Intent) IsNone() bool {
	return i.Kind == IntentNone
}

func (i Intent) String() string {
	switch i.Kind {
	case IntentOrbitLeft, IntentOrbitRight:
		return fmt.Sprintf("%s(%d)", i.Kind, i.Step)
	case IntentZoom:
		return fmt.Sprintf("zoom(%g)", i.Delta)
	default:
		return i.Kind.String()
	}
}
