// Package cdc implements the endpoint-0 side of the USB Communications
// Device Class Abstract Control Model (CDC-ACM).
//
// An ACM function consists of two interfaces:
//
//   - Communications interface: receives SET_LINE_CODING, GET_LINE_CODING,
//     SET_CONTROL_LINE_STATE and SEND_BREAK on the control pipe, and owns
//     an interrupt IN endpoint for SERIAL_STATE notifications
//   - Data interface: a pair of bulk endpoints carrying the serial stream
//
// Usage:
//
//	acm := cdc.NewACM(0)
//	acm.SetOnLineCodingChange(func(lc *cdc.LineCoding) {
//	    // Apply baud rate, data bits, parity and stop bits
//	})
//
//	builder := device.NewDeviceBuilder().
//	    WithVendorProduct(0xCAFE, 0xBABE).
//	    AddConfiguration(1)
//	desc, err := acm.ConfigureDevice(builder, 0x81, 0x82, 0x02).Build()
//	if err != nil {
//	    return err
//	}
//	ctrl := device.NewControl(hal, acm.Attach(desc), device.ControlConfig{
//	    PacketSize: desc.MaxPacketSize0(),
//	    Device:     desc.NewDeviceContext(),
//	})
//
// SET_LINE_CODING is applied, and the callback invoked, after the status
// stage of the request completes.
package cdc
