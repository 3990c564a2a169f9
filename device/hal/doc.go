// Package hal defines the hardware boundary of the endpoint-0 control pipe.
//
// The [EndpointHAL] interface mirrors the register model of a USB full-speed
// device peripheral: each endpoint has a transmit (IN) and a receive (OUT)
// direction with its own packet buffer, byte count, handshake status and
// data toggle. The device bus address is programmed through the same
// interface once the status stage of SET_ADDRESS completes.
//
// # Implementing a HAL
//
// A HAL implementation backs each method with the peripheral's registers and
// packet memory:
//
//	type stm32 struct{ /* register pointers */ }
//
//	func (s *stm32) SetTxStatus(ep uint8, st hal.Status) {
//	    // toggle STAT_TX bits of EPnR to reach st
//	}
//
// The control pipe invokes the HAL from a single execution context (the USB
// interrupt or an equivalent polling loop), so implementations need no
// locking of their own unless other goroutines touch the same registers.
//
// # Simulation
//
// The [github.com/ardnew/usbctrl/device/hal/sim] package provides an
// in-memory register file and a scripted host for tests and tooling.
package hal
