package device

import (
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

// ControlConfig holds the construction parameters of a Control.
type ControlConfig struct {
	// PacketSize is the endpoint-0 max packet size. Zero selects
	// DefaultMaxPacketSize0.
	PacketSize int

	// Device seeds the device context, typically from
	// Descriptors.NewDeviceContext.
	Device DeviceContext

	Hooks    Hooks
	Observer Observer
}

// Control is the endpoint-0 control transfer engine.
//
// The USB interrupt (or its polling equivalent) calls Setup, In, or Out once
// per completed endpoint-0 transaction. Each call advances the transfer
// through its SETUP, DATA and STATUS stages and leaves the endpoint armed for
// the next transaction. A transfer that cannot continue ends in StateStalled,
// which is also the idle state awaiting the next SETUP.
//
// Control is not safe for concurrent use; all calls must come from the
// context that delivers token notifications.
type Control struct {
	hal      hal.EndpointHAL
	class    Class
	hooks    Hooks
	observer Observer

	state ControlState
	setup SetupPacket
	dev   DeviceContext
	xfer  TransferContext

	// Payload bytes moved by the token being processed.
	moved int
}

// NewControl creates a control pipe driving h and delegating class requests
// to class. The pipe starts idle in StateStalled.
func NewControl(h hal.EndpointHAL, class Class, cfg ControlConfig) *Control {
	if cfg.PacketSize == 0 {
		cfg.PacketSize = DefaultMaxPacketSize0
	}
	c := &Control{
		hal:      h,
		class:    class,
		hooks:    cfg.Hooks,
		observer: cfg.Observer,
		state:    StateStalled,
		dev:      cfg.Device,
	}
	c.xfer.PacketSize = cfg.PacketSize
	return c
}

// Setup processes a received SETUP packet. While paused the packet is not
// decoded and the cached request is dispatched again.
// Returns true if the transfer is paused.
func (c *Control) Setup(raw []byte) bool {
	before := c.begin()

	if c.state != StatePause {
		if err := ParseSetupPacket(raw, &c.setup); err != nil {
			pkg.LogWarn(pkg.ComponentControl, "malformed setup packet",
				"len", len(raw),
				"error", err)
			c.state = StateStalled
			return c.finish(TokenSetup, before)
		}
	}

	pkg.LogDebug(pkg.ComponentControl, "setup",
		"setup", c.setup.String())

	c.dispatch()
	return c.finish(TokenSetup, before)
}

// In processes a completed IN transaction on endpoint 0.
// Returns true if the transfer is paused.
func (c *Control) In() bool {
	before := c.begin()

	switch c.state {
	case StateInData, StateLastInData:
		c.dataStageIn()

	case StateWaitStatusIn:
		if c.setup.Request == RequestSetAddress &&
			c.setup.TypeRecipient() == RequestTypeStandard|RequestRecipientDevice {
			c.setDeviceAddress(c.setup.ValueLow())
		}
		c.class.StatusInComplete(&c.setup)
		c.state = StateStalled

	default:
		c.state = StateStalled
	}

	return c.finish(TokenIn, before)
}

// Out processes a completed OUT transaction on endpoint 0.
// Returns true if the transfer is paused.
func (c *Control) Out() bool {
	before := c.begin()

	switch c.state {
	case StateInData, StateLastInData:
		pkg.LogDebug(pkg.ComponentControl, "in data stage ended by host",
			"error", pkg.ErrHostAbort,
			"remaining", c.xfer.RemainingIn)
		c.state = StateStalled

	case StateOutData, StateLastOutData:
		c.dataStageOut()

	case StateWaitStatusOut:
		c.class.StatusOutComplete(&c.setup)
		c.state = StateStalled

	default:
		c.state = StateStalled
	}

	return c.finish(TokenOut, before)
}

// Resume re-drives a paused transfer against the cached SETUP once the class
// layer can answer. Returns pkg.ErrNotPaused if no transfer is paused.
func (c *Control) Resume() error {
	if c.state != StatePause {
		return pkg.ErrNotPaused
	}
	before := c.begin()

	pkg.LogDebug(pkg.ComponentControl, "resume",
		"setup", c.setup.String())

	c.dispatch()
	c.finish(TokenResume, before)
	return nil
}

// Reset returns the pipe and the device context to the state after a bus
// reset. Endpoint 0 is armed to receive the next SETUP at address 0.
func (c *Control) Reset() {
	before := c.begin()

	c.dev.Reset()
	c.xfer.Reset()
	c.setup = SetupPacket{}
	c.state = StateStalled

	c.hal.SetDeviceAddress(0)
	c.hal.SetTxStatus(0, hal.StatusNAK)
	c.hal.SetRxCount(0, c.xfer.PacketSize)
	c.hal.SetRxStatus(0, hal.StatusValid)

	pkg.LogInfo(pkg.ComponentControl, "bus reset")

	c.notify(TokenReset, before, false)
}

// State returns the current control state.
func (c *Control) State() ControlState {
	return c.state
}

// Paused returns true if a transfer awaits Resume.
func (c *Control) Paused() bool {
	return c.state == StatePause
}

// Device returns the device context.
func (c *Control) Device() *DeviceContext {
	return &c.dev
}

// Transfer returns the context of the transfer in flight.
func (c *Control) Transfer() *TransferContext {
	return &c.xfer
}

// SetupPacket returns the cached SETUP of the current transfer.
func (c *Control) SetupPacket() SetupPacket {
	return c.setup
}

func (c *Control) begin() ControlState {
	c.moved = 0
	return c.state
}

// finish runs the post-processing shared by every token.
func (c *Control) finish(token Token, before ControlState) bool {
	paused := c.post()
	c.notify(token, before, paused)
	return paused
}

// post re-arms reception and stalls endpoint 0 when the transfer ended.
func (c *Control) post() bool {
	c.hal.SetRxCount(0, c.xfer.PacketSize)

	if c.state == StateStalled {
		c.hal.SetRxStatus(0, hal.StatusStall)
		c.hal.SetTxStatus(0, hal.StatusStall)
		c.xfer.Reset()
	}

	return c.state == StatePause
}

func (c *Control) notify(token Token, before ControlState, paused bool) {
	if before != c.state {
		pkg.LogDebug(pkg.ComponentControl, "state transition",
			"token", token,
			"from", before,
			"to", c.state)
	}
	if c.observer != nil {
		c.observer.ObserveToken(TokenEvent{
			Token:  token,
			Before: before,
			After:  c.state,
			Setup:  c.setup,
			Bytes:  c.moved,
			Paused: paused,
		})
	}
}
