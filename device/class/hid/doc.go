// Package hid implements the control-pipe side of the USB Human Interface
// Device (HID) class.
//
// [HID] implements [device.Class] for one HID interface. It answers the
// interface-recipient GET_DESCRIPTOR requests for the HID and report
// descriptors and the class requests GET_REPORT, SET_REPORT, GET_IDLE,
// SET_IDLE, GET_PROTOCOL and SET_PROTOCOL. Standard descriptors come from the
// [device.Descriptors] table passed to [HID.Attach].
//
// # Asynchronous Input Reports
//
// GET_REPORT pauses the control transfer until an input report is queued:
//
//	keyboard := hid.New(0, hid.KeyboardReportDescriptor)
//	builder := device.NewDeviceBuilder().
//	    WithVendorProduct(0xCAFE, 0xBABE).
//	    AddConfiguration(1)
//	keyboard.ConfigureDevice(builder, 1, hid.SubclassBoot, hid.ProtocolKeyboard, 10)
//	desc, _ := builder.Build()
//	ctrl := device.NewControl(h, keyboard.Attach(desc), cfg)
//
//	// later, while ctrl.Paused()
//	keyboard.QueueKeyboardReport(&report)
//	ctrl.Resume()
//
// SET_REPORT payloads are delivered to the output or feature report callback
// once the host completes the status stage.
package hid
