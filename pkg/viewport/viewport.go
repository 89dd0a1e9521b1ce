// Package viewport delivers navigation intents to the host that owns the
// 3-D view.
//
// Hosts are reached over plain HTTP (HTTPSink) or a persistent websocket
// (WSSink). Either can be wrapped in a RateSink so that bursts of intents
// are coalesced into one command per control period.
package viewport

import (
	"errors"

	"github.com/teslashibe/go-gazenav/pkg/protocol"
	"github.com/teslashibe/go-gazenav/pkg/tracking"
)

// ErrNotConnected is returned by WSSink while no host is attached.
var ErrNotConnected = errors.New("viewport: host not connected")

// Controller is what a host may drive back over its link.
type Controller interface {
	SetTrigger(trigger tracking.Trigger)
	SetEnabled(enabled bool)
}

// Ensure hosts implement IntentSink
var (
	_ tracking.IntentSink = (*HTTPSink)(nil)
	_ tracking.IntentSink = (*WSSink)(nil)
	_ tracking.IntentSink = (*RateSink)(nil)
)

func intentData(in tracking.Intent) protocol.IntentData {
	return protocol.IntentData{
		Kind:  in.Kind.String(),
		Step:  in.Step,
		Delta: in.Delta,
	}
}
