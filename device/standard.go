package device

import (
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

// getConfiguration returns the producer for GET_CONFIGURATION.
func (c *Control) getConfiguration() Producer {
	if c.hooks.OnGetConfiguration != nil {
		c.hooks.OnGetConfiguration(c.dev.Configuration)
	}
	return byteProducer{value: &c.dev.Configuration}
}

// setConfiguration handles SET_CONFIGURATION.
func (c *Control) setConfiguration() Result {
	s := &c.setup
	if s.ValueLow() > c.dev.TotalConfigurations || s.ValueHigh() != 0 || s.Index != 0 {
		pkg.LogDebug(pkg.ComponentStandard, "set configuration rejected",
			"value", s.Value,
			"index", s.Index,
			"total", c.dev.TotalConfigurations)
		return ResultUnsupported
	}

	c.dev.Configuration = s.ValueLow()

	pkg.LogDebug(pkg.ComponentStandard, "configuration set",
		"config", c.dev.Configuration)

	if c.hooks.OnSetConfiguration != nil {
		c.hooks.OnSetConfiguration(c.dev.Configuration)
	}
	return ResultSuccess
}

// getInterface returns the producer for GET_INTERFACE, or nil if the request
// is not acceptable in the current device state.
func (c *Control) getInterface() Producer {
	s := &c.setup
	if !c.dev.IsConfigured() || s.Value != 0 || s.IndexHigh() != 0 || s.Length != 1 {
		return nil
	}
	if c.class.InterfaceSetting(c.dev.Configuration, s.IndexLow(), 0) != ResultSuccess {
		return nil
	}
	if c.hooks.OnGetInterface != nil {
		c.hooks.OnGetInterface(c.dev.Interface, c.dev.AlternateSetting)
	}
	return byteProducer{value: &c.dev.AlternateSetting}
}

// setInterface handles SET_INTERFACE.
func (c *Control) setInterface() Result {
	s := &c.setup
	if !c.dev.IsConfigured() {
		pkg.LogDebug(pkg.ComponentStandard, "set interface while unconfigured")
		return ResultUnsupported
	}
	if s.IndexHigh() != 0 || s.ValueHigh() != 0 {
		return ResultUnsupported
	}
	if c.class.InterfaceSetting(c.dev.Configuration, s.IndexLow(), s.ValueLow()) != ResultSuccess {
		pkg.LogDebug(pkg.ComponentStandard, "interface setting rejected by class",
			"interface", s.IndexLow(),
			"alt", s.ValueLow())
		return ResultUnsupported
	}

	c.dev.Interface = s.IndexLow()
	c.dev.AlternateSetting = s.ValueLow()

	pkg.LogDebug(pkg.ComponentStandard, "interface set",
		"interface", c.dev.Interface,
		"alt", c.dev.AlternateSetting)

	if c.hooks.OnSetInterface != nil {
		c.hooks.OnSetInterface(c.dev.Interface, c.dev.AlternateSetting)
	}
	return ResultSuccess
}

// getStatus returns the producer for GET_STATUS, or nil if the recipient or
// any field is not acceptable.
func (c *Control) getStatus() Producer {
	s := &c.setup
	if s.Value != 0 || s.Length != 2 || s.IndexHigh() != 0 {
		return nil
	}

	var word uint16
	switch s.TypeRecipient() {
	case RequestTypeStandard | RequestRecipientDevice:
		if s.Index != 0 {
			return nil
		}
		word = c.dev.Features.Word()

	case RequestTypeStandard | RequestRecipientInterface:
		if !c.dev.IsConfigured() ||
			c.class.InterfaceSetting(c.dev.Configuration, s.IndexLow(), 0) != ResultSuccess {
			return nil
		}

	case RequestTypeStandard | RequestRecipientEndpoint:
		ep, in, ok := s.Endpoint()
		if !ok || ep >= c.dev.TotalEndpoints {
			return nil
		}
		status := c.endpointStatus(ep, in)
		if status == hal.StatusDisabled {
			return nil
		}
		if status == hal.StatusStall {
			word = StatusHalt
		}

	default:
		return nil
	}

	if c.hooks.OnGetStatus != nil {
		c.hooks.OnGetStatus(s.Recipient(), word)
	}
	return newStatusProducer(word)
}

// clearFeature handles CLEAR_FEATURE for device and endpoint recipients.
// The caller has already validated the device remote-wakeup selector.
func (c *Control) clearFeature() Result {
	s := &c.setup
	switch s.TypeRecipient() {
	case RequestTypeStandard | RequestRecipientDevice:
		c.dev.Features.RemoteWakeup = false
		pkg.LogDebug(pkg.ComponentStandard, "remote wakeup disabled")

	case RequestTypeStandard | RequestRecipientEndpoint:
		if s.Value != FeatureEndpointHalt || s.IndexHigh() != 0 {
			return ResultUnsupported
		}
		ep, in, ok := s.Endpoint()
		if !ok || ep >= c.dev.TotalEndpoints || !c.dev.IsConfigured() {
			return ResultUnsupported
		}
		status := c.endpointStatus(ep, in)
		if status == hal.StatusDisabled {
			return ResultUnsupported
		}
		if status == hal.StatusStall {
			c.clearHalt(ep, in)
		}

	default:
		return ResultUnsupported
	}

	if c.hooks.OnClearFeature != nil {
		c.hooks.OnClearFeature(s)
	}
	return ResultSuccess
}

// clearHalt resets the data toggle of a halted endpoint and re-arms it.
func (c *Control) clearHalt(ep uint8, in bool) {
	switch {
	case in:
		c.hal.ClearTxToggle(ep)
		c.hal.SetTxStatus(ep, hal.StatusValid)
	case ep == 0:
		c.hal.SetRxCount(ep, c.xfer.PacketSize)
		c.hal.SetRxStatus(ep, hal.StatusValid)
	default:
		c.hal.ClearRxToggle(ep)
		c.hal.SetRxStatus(ep, hal.StatusValid)
	}

	pkg.LogDebug(pkg.ComponentStandard, "endpoint halt cleared",
		"ep", ep,
		"dir", directionLabel(in))
}

// setEndpointFeature handles SET_FEATURE(ENDPOINT_HALT).
func (c *Control) setEndpointFeature() Result {
	s := &c.setup
	ep, in, ok := s.Endpoint()
	if !ok || ep >= c.dev.TotalEndpoints || s.Value != 0 || !c.dev.IsConfigured() {
		return ResultUnsupported
	}
	if c.endpointStatus(ep, in) == hal.StatusDisabled {
		return ResultUnsupported
	}

	if in {
		c.hal.SetTxStatus(ep, hal.StatusStall)
	} else {
		c.hal.SetRxStatus(ep, hal.StatusStall)
	}

	pkg.LogDebug(pkg.ComponentStandard, "endpoint halted",
		"ep", ep,
		"dir", directionLabel(in))

	if c.hooks.OnSetEndpointFeature != nil {
		c.hooks.OnSetEndpointFeature(s.IndexLow())
	}
	return ResultSuccess
}

// setDeviceFeature handles SET_FEATURE(DEVICE_REMOTE_WAKEUP). The caller has
// already validated the selector.
func (c *Control) setDeviceFeature() Result {
	c.dev.Features.RemoteWakeup = true

	pkg.LogDebug(pkg.ComponentStandard, "remote wakeup enabled")

	if c.hooks.OnSetDeviceFeature != nil {
		c.hooks.OnSetDeviceFeature(c.setup.ValueLow())
	}
	return ResultSuccess
}

// setDeviceAddress binds every used endpoint register to its own number and
// programs the bus address.
func (c *Control) setDeviceAddress(addr uint8) {
	for ep := uint8(0); ep < c.dev.TotalEndpoints; ep++ {
		c.hal.SetEndpointAddress(ep, ep)
	}
	c.hal.SetDeviceAddress(addr)
	c.dev.Address = addr

	pkg.LogInfo(pkg.ComponentStandard, "device address applied",
		"address", addr)

	if c.hooks.OnSetDeviceAddress != nil {
		c.hooks.OnSetDeviceAddress(addr)
	}
}

// descriptorProducer selects the class producer for a standard device
// GET_DESCRIPTOR. The second result is false for descriptor types the
// standard table does not serve.
func (c *Control) descriptorProducer() (Producer, bool) {
	switch c.setup.DescriptorType() {
	case DescriptorTypeDevice:
		return c.class.DeviceDescriptor(&c.setup), true
	case DescriptorTypeConfiguration:
		return c.class.ConfigDescriptor(&c.setup), true
	case DescriptorTypeString:
		return c.class.StringDescriptor(&c.setup), true
	default:
		return nil, false
	}
}

func (c *Control) endpointStatus(ep uint8, in bool) hal.Status {
	if in {
		return c.hal.TxStatus(ep)
	}
	return c.hal.RxStatus(ep)
}

func directionLabel(in bool) string {
	if in {
		return DirectionName(EndpointDirectionIn)
	}
	return DirectionName(EndpointDirectionOut)
}
