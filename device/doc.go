// Package device implements the endpoint-0 control transfer engine of a USB
// full-speed device.
//
// It decodes SETUP packets, answers the standard device requests, and drives
// each control transfer through its SETUP, DATA and STATUS stages. It talks to
// the peripheral only through the register-level [hal.EndpointHAL] interface
// defined in [github.com/ardnew/usbctrl/device/hal].
//
// # Architecture
//
//   - [Control] is the state machine invoked once per SETUP, IN or OUT token
//   - [DeviceContext] holds configuration, interface and feature state
//   - [TransferContext] holds the cursors of the transfer in flight
//   - [Producer] sources or sinks the payload of a data stage
//   - [Class] receives interface queries, class requests and descriptor lookups
//   - [Descriptors] stores descriptor tables and serves them as producers
//
// # Control States
//
// Every transfer starts in SETTING_UP and ends in STALLED, which doubles as
// the idle state awaiting the next SETUP:
//
//	SETTING_UP → IN_DATA → LAST_IN_DATA → WAIT_STATUS_OUT → STALLED
//	SETTING_UP → OUT_DATA → LAST_OUT_DATA → WAIT_STATUS_IN → STALLED
//	SETTING_UP → WAIT_STATUS_IN → STALLED
//	SETTING_UP → PAUSE → (Resume) → ...
//
// # Asynchronous Class Responses
//
// A class hook that cannot answer yet returns [ResultNotReady], or a producer
// whose length is [LengthNotReady]. The transfer pauses and endpoint 0 keeps
// NAKing until the application calls [Control.Resume], which dispatches the
// cached SETUP again.
//
// # Example
//
//	desc, err := device.NewDeviceBuilder().
//	    WithVendorProduct(0xCAFE, 0xBABE).
//	    WithMaxPacketSize0(8).
//	    WithStrings("Acme", "Widget", "0001").
//	    AddConfiguration(1).
//	    AddInterface(device.ClassVendor, 0, 0).
//	    AddEndpoint(0x81, device.EndpointTypeInterrupt, 8, 10).
//	    Build()
//	if err != nil {
//	    return err
//	}
//	ctrl := device.NewControl(h, device.NewBaseClass(desc), device.ControlConfig{
//	    PacketSize: desc.MaxPacketSize0(),
//	    Device:     desc.NewDeviceContext(),
//	})
//	ctrl.Reset()
//
// A simulated register HAL for testing is available in
// [github.com/ardnew/usbctrl/device/hal/sim].
package device
