// Package sim provides an in-memory implementation of [hal.EndpointHAL] and a
// scripted host for exercising the control pipe without hardware.
//
// The [HAL] keeps per-endpoint transmit and receive buffers, handshake
// status, byte counts, data toggles and the device address. After each
// transaction it updates the registers the way the full-speed peripheral
// does: an acknowledged IN or OUT leaves that direction NAKing and a SETUP
// leaves both directions NAKing until the device re-arms them.
//
// The [Host] performs complete control transfers:
//
//	h := sim.New()
//	ctrl := device.NewControl(h, class, cfg)
//	host := sim.NewHost(h, ctrl, 8)
//	desc, err := host.ControlRead(setupBytes)
//
// A STALL handshake surfaces as [pkg.ErrStall] and an unanswered NAK as
// [pkg.ErrNotReady].
package sim
