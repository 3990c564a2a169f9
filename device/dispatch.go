package device

import (
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

// dispatch routes the cached SETUP to the no-data or data path.
func (c *Control) dispatch() {
	c.state = StateSettingUp
	c.xfer.Reset()

	if c.setup.Length == 0 {
		c.noDataSetup()
	} else {
		c.dataSetup()
	}
}

// noDataSetup handles requests without a data stage.
func (c *Control) noDataSetup() {
	s := &c.setup
	result := ResultUnsupported

	switch s.TypeRecipient() {
	case RequestTypeStandard | RequestRecipientDevice:
		switch s.Request {
		case RequestSetConfiguration:
			result = c.setConfiguration()

		case RequestSetAddress:
			if s.ValueLow() > hal.MaxDeviceAddress || s.ValueHigh() != 0 ||
				s.Index != 0 || c.dev.IsConfigured() {
				c.stall("invalid set address")
				return
			}
			// Applied when the status stage completes.
			result = ResultSuccess

		case RequestSetFeature:
			if s.ValueLow() == FeatureDeviceRemoteWakeup && s.Index == 0 {
				result = c.setDeviceFeature()
			}

		case RequestClearFeature:
			if s.ValueLow() == FeatureDeviceRemoteWakeup && s.Index == 0 &&
				c.dev.Features.RemoteWakeup {
				result = c.clearFeature()
			}
		}

	case RequestTypeStandard | RequestRecipientInterface:
		if s.Request == RequestSetInterface {
			result = c.setInterface()
		}

	case RequestTypeStandard | RequestRecipientEndpoint:
		switch s.Request {
		case RequestClearFeature:
			result = c.clearFeature()
		case RequestSetFeature:
			result = c.setEndpointFeature()
		}
	}

	if result != ResultSuccess {
		result = c.class.NoDataSetup(s)
		if result == ResultNotReady {
			c.pause("class no-data setup not ready")
			return
		}
	}
	if result != ResultSuccess {
		c.stall("no-data request unsupported")
		return
	}

	c.state = StateWaitStatusIn
	c.statusIn()
}

// dataSetup handles requests with a data stage.
func (c *Control) dataSetup() {
	s := &c.setup

	producer, claimed := c.standardProducer()

	result := ResultSuccess
	if !claimed {
		producer, result = c.class.DataSetup(s)
		if result == ResultNotReady {
			c.pause("class data setup not ready")
			return
		}
	}

	length := 0
	if producer != nil {
		length = producer.Len()
	}
	if length == LengthNotReady {
		c.pause("producer not ready")
		return
	}
	if result != ResultSuccess || length == 0 {
		c.stall("data request unsupported")
		return
	}

	c.xfer.Producer = producer

	if s.IsDeviceToHost() {
		wLength := int(s.Length)
		if length > wLength {
			length = wLength
		} else if length < wLength {
			if length < c.xfer.PacketSize {
				c.xfer.zeroLengthPending = false
			} else if length%c.xfer.PacketSize == 0 {
				c.xfer.zeroLengthPending = true
			}
		}
		c.xfer.RemainingIn = length

		pkg.LogDebug(pkg.ComponentSetup, "in data stage started",
			"length", length,
			"requested", wLength,
			"zlp", c.xfer.zeroLengthPending)

		c.dataStageIn()
		return
	}

	if wLength := int(s.Length); length > wLength {
		length = wLength
	}
	c.xfer.RemainingOut = length
	c.state = StateOutData
	c.hal.SetRxStatus(0, hal.StatusValid)

	pkg.LogDebug(pkg.ComponentSetup, "out data stage started",
		"length", length)
}

// standardProducer selects the producer for a standard data request. The
// second result reports whether the standard table claimed the request;
// unclaimed requests go to the class.
func (c *Control) standardProducer() (Producer, bool) {
	s := &c.setup

	switch s.Request {
	case RequestGetDescriptor:
		if s.TypeRecipient() == RequestTypeStandard|RequestRecipientDevice {
			return c.descriptorProducer()
		}

	case RequestGetStatus:
		if p := c.getStatus(); p != nil {
			return p, true
		}

	case RequestGetConfiguration:
		if s.TypeRecipient() == RequestTypeStandard|RequestRecipientDevice {
			return c.getConfiguration(), true
		}

	case RequestGetInterface:
		if s.TypeRecipient() == RequestTypeStandard|RequestRecipientInterface {
			if p := c.getInterface(); p != nil {
				return p, true
			}
		}
	}

	return nil, false
}

func (c *Control) stall(reason string) {
	c.state = StateStalled
	pkg.LogDebug(pkg.ComponentSetup, "stall",
		"reason", reason,
		"setup", c.setup.String())
}

func (c *Control) pause(reason string) {
	c.state = StatePause
	pkg.LogDebug(pkg.ComponentSetup, "pause",
		"reason", reason,
		"setup", c.setup.String())
}
