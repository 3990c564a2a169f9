package trace

import (
	"fmt"
	"time"

	"github.com/ardnew/usbctrl/device"
)

// Event is one endpoint-0 token as recorded in a trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the token was processed.
	Timestamp time.Time `cbor:"1,keyasint"`

	// Session identifies the recording (UUID).
	Session string `cbor:"2,keyasint"`

	// Sequence numbers events within a session, starting at 1.
	Sequence uint64 `cbor:"3,keyasint"`

	Token  uint8 `cbor:"4,keyasint"`
	Before uint8 `cbor:"5,keyasint"`
	After  uint8 `cbor:"6,keyasint"`

	// Setup is the raw 8-byte SETUP cached at the time of the token.
	Setup []byte `cbor:"7,keyasint,omitempty"`

	Bytes  int  `cbor:"8,keyasint,omitempty"`
	Paused bool `cbor:"9,keyasint,omitempty"`
}

// NewEvent converts a control pipe token event into a trace event.
func NewEvent(session string, seq uint64, ev device.TokenEvent) Event {
	var raw [device.SetupPacketSize]byte
	n := ev.Setup.MarshalTo(raw[:])
	return Event{
		Timestamp: time.Now(),
		Session:   session,
		Sequence:  seq,
		Token:     uint8(ev.Token),
		Before:    uint8(ev.Before),
		After:     uint8(ev.After),
		Setup:     raw[:n],
		Bytes:     ev.Bytes,
		Paused:    ev.Paused,
	}
}

// TokenEvent converts the trace event back into a control pipe event.
func (e Event) TokenEvent() (device.TokenEvent, error) {
	ev := device.TokenEvent{
		Token:  device.Token(e.Token),
		Before: device.ControlState(e.Before),
		After:  device.ControlState(e.After),
		Bytes:  e.Bytes,
		Paused: e.Paused,
	}
	if len(e.Setup) > 0 {
		if err := device.ParseSetupPacket(e.Setup, &ev.Setup); err != nil {
			return ev, fmt.Errorf("event %d: %w", e.Sequence, err)
		}
	}
	return ev, nil
}

// String returns a one-line summary of the event.
func (e Event) String() string {
	ev, err := e.TokenEvent()
	if err != nil {
		return fmt.Sprintf("#%d invalid: %v", e.Sequence, err)
	}
	s := fmt.Sprintf("#%d %-6s %s -> %s", e.Sequence, ev.Token, ev.Before, ev.After)
	if ev.Token == device.TokenSetup {
		s += " " + ev.Setup.String()
	}
	if ev.Bytes > 0 {
		s += fmt.Sprintf(" bytes=%d", ev.Bytes)
	}
	if ev.Paused {
		s += " paused"
	}
	return s
}
