package device

import (
	"fmt"

	"github.com/ardnew/usbctrl/pkg"
)

// Limits for fixed-size tables (zero-allocation support).
const (
	// MaxConfigurations is the maximum number of configurations per device.
	MaxConfigurations = 4

	// MaxStrings is the maximum number of string descriptors per device.
	MaxStrings = 16

	// MaxEndpoints is the maximum number of endpoint registers, EP0 included.
	MaxEndpoints = 8

	// DefaultMaxPacketSize0 is the endpoint-0 packet size used when none is
	// configured. Full-speed devices may use 8, 16, 32 or 64.
	DefaultMaxPacketSize0 = 64
)

// LengthNotReady is the length a producer reports when its data is not yet
// available. The transfer pauses until the application resumes it.
const LengthNotReady = 0xFFFF

// Control transfer states of endpoint 0.
const (
	StateSettingUp     ControlState = iota // SETUP received, dispatch in progress
	StateInData                            // More than one IN packet remains
	StateLastInData                        // The final IN packet (or ZLP) is next
	StateOutData                           // At least one full OUT packet remains
	StateLastOutData                       // A short final OUT packet is expected
	StateWaitStatusIn                      // Waiting for the host to read the status ZLP
	StateWaitStatusOut                     // Waiting for the host to send the status ZLP
	StateStalled                           // Transfer ended; EP0 idle or stalled
	StatePause                             // Waiting for the class layer to resume
)

// ControlState is the state of the endpoint-0 control transfer.
type ControlState uint8

// String returns a human-readable state name.
func (s ControlState) String() string {
	switch s {
	case StateSettingUp:
		return "SETTING_UP"
	case StateInData:
		return "IN_DATA"
	case StateLastInData:
		return "LAST_IN_DATA"
	case StateOutData:
		return "OUT_DATA"
	case StateLastOutData:
		return "LAST_OUT_DATA"
	case StateWaitStatusIn:
		return "WAIT_STATUS_IN"
	case StateWaitStatusOut:
		return "WAIT_STATUS_OUT"
	case StateStalled:
		return "STALLED"
	case StatePause:
		return "PAUSE"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// IsInData returns true for the IN data-stage states.
func (s ControlState) IsInData() bool {
	return s == StateInData || s == StateLastInData
}

// IsOutData returns true for the OUT data-stage states.
func (s ControlState) IsOutData() bool {
	return s == StateOutData || s == StateLastOutData
}

// Request handling results.
const (
	ResultSuccess     Result = iota // Request accepted
	ResultUnsupported               // Request rejected; the pipe stalls
	ResultNotReady                  // Class layer answers later; the pipe pauses
)

// Result is the outcome of a standard request handler or class hook.
type Result uint8

// String returns a human-readable result name.
func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "SUCCESS"
	case ResultUnsupported:
		return "UNSUPPORTED"
	case ResultNotReady:
		return "NOT_READY"
	default:
		return fmt.Sprintf("Unknown Result (%d)", r)
	}
}

// Err returns the error corresponding to r, or nil for ResultSuccess.
func (r Result) Err() error {
	switch r {
	case ResultSuccess:
		return nil
	case ResultNotReady:
		return pkg.ErrNotReady
	default:
		return pkg.ErrUnsupported
	}
}
