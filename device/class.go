package device

import (
	"fmt"
	"strings"

	"github.com/ardnew/usbctrl/pkg"
)

// Class is the class layer injected into the control pipe.
//
// The standard request handlers consult it for interface settings and
// descriptor payloads, and the dispatcher hands it every request no standard
// handler claims. Descriptor methods return nil when the descriptor does not
// exist; the request is then rejected.
type Class interface {
	// InterfaceSetting reports whether interface iface supports alternate
	// setting alt under configuration config.
	InterfaceSetting(config, iface, alt uint8) Result

	// NoDataSetup handles a request without a data stage.
	NoDataSetup(setup *SetupPacket) Result

	// DataSetup handles a request with a data stage and returns the
	// producer that sources (IN) or sinks (OUT) its payload.
	DataSetup(setup *SetupPacket) (Producer, Result)

	// StatusInComplete is called when the host reads the status packet of
	// a no-data or control-write transfer.
	StatusInComplete(setup *SetupPacket)

	// StatusOutComplete is called when the host sends the status packet of
	// a control-read transfer.
	StatusOutComplete(setup *SetupPacket)

	DeviceDescriptor(setup *SetupPacket) Producer
	ConfigDescriptor(setup *SetupPacket) Producer
	StringDescriptor(setup *SetupPacket) Producer
}

// BaseClass serves the standard descriptors from a descriptor table and
// rejects every class request. Classes embed it and override what they
// implement.
type BaseClass struct {
	*Descriptors
}

// NewBaseClass returns a class that only serves the descriptors in d.
func NewBaseClass(d *Descriptors) *BaseClass {
	return &BaseClass{Descriptors: d}
}

func (c *BaseClass) table() *Descriptors {
	if c == nil || c.Descriptors == nil {
		pkg.LogWarn(pkg.ComponentClass, "class has no descriptor table")
		return nil
	}
	return c.Descriptors
}

// InterfaceSetting consults the descriptor table. Without a table every
// setting is rejected.
func (c *BaseClass) InterfaceSetting(config, iface, alt uint8) Result {
	d := c.table()
	if d == nil {
		return ResultUnsupported
	}
	return d.InterfaceSetting(config, iface, alt)
}

// DeviceDescriptor returns the device descriptor producer, or nil without a
// descriptor table.
func (c *BaseClass) DeviceDescriptor(setup *SetupPacket) Producer {
	d := c.table()
	if d == nil {
		return nil
	}
	return d.DeviceDescriptor(setup)
}

// ConfigDescriptor returns the configuration descriptor producer, or nil.
func (c *BaseClass) ConfigDescriptor(setup *SetupPacket) Producer {
	d := c.table()
	if d == nil {
		return nil
	}
	return d.ConfigDescriptor(setup)
}

// StringDescriptor returns the string descriptor producer, or nil.
func (c *BaseClass) StringDescriptor(setup *SetupPacket) Producer {
	d := c.table()
	if d == nil {
		return nil
	}
	return d.StringDescriptor(setup)
}

// NoDataSetup rejects the request.
func (c *BaseClass) NoDataSetup(setup *SetupPacket) Result {
	return ResultUnsupported
}

// DataSetup rejects the request.
func (c *BaseClass) DataSetup(setup *SetupPacket) (Producer, Result) {
	return nil, ResultUnsupported
}

// StatusInComplete does nothing.
func (c *BaseClass) StatusInComplete(setup *SetupPacket) {}

// StatusOutComplete does nothing.
func (c *BaseClass) StatusOutComplete(setup *SetupPacket) {}

// Hooks are optional notifications fired after a standard request succeeds.
// They observe the outcome and cannot change it.
type Hooks struct {
	OnSetConfiguration   func(config uint8)
	OnSetInterface       func(iface, alt uint8)
	OnGetStatus          func(recipient uint8, status uint16)
	OnClearFeature       func(setup *SetupPacket)
	OnSetEndpointFeature func(endpoint uint8)
	OnSetDeviceFeature   func(feature uint8)
	OnSetDeviceAddress   func(address uint8)
	OnGetConfiguration   func(config uint8)
	OnGetInterface       func(iface, alt uint8)
}

// Token identifies the endpoint-0 event delivered to the control pipe.
type Token uint8

// Endpoint-0 events.
const (
	TokenSetup Token = iota
	TokenIn
	TokenOut
	TokenResume
	TokenReset
)

// String returns a human-readable token name.
func (t Token) String() string {
	switch t {
	case TokenSetup:
		return "SETUP"
	case TokenIn:
		return "IN"
	case TokenOut:
		return "OUT"
	case TokenResume:
		return "RESUME"
	case TokenReset:
		return "RESET"
	default:
		return fmt.Sprintf("Unknown Token (%d)", t)
	}
}

// ParseToken converts a token name such as "setup" or "IN" to a Token.
func ParseToken(name string) (Token, error) {
	for t := TokenSetup; t <= TokenReset; t++ {
		if strings.EqualFold(name, t.String()) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("token %q: %w", name, pkg.ErrInvalidParameter)
}

// TokenEvent describes one processed token.
type TokenEvent struct {
	Token  Token
	Before ControlState
	After  ControlState
	Setup  SetupPacket // Cached SETUP at the time of the event
	Bytes  int         // Payload bytes moved by this token
	Paused bool
}

// Observer receives an event after every token the control pipe processes.
type Observer interface {
	ObserveToken(ev TokenEvent)
}
