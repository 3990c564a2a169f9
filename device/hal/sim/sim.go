package sim

import (
	"sync"

	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

// MaxPacketSize is the size of each endpoint packet buffer.
const MaxPacketSize = 64

// Handshake is the bus response to an IN or OUT token.
type Handshake uint8

// Handshake values seen by the host.
const (
	HandshakeNone  Handshake = iota // Endpoint disabled or packet rejected
	HandshakeACK                    // Transaction completed
	HandshakeNAK                    // Endpoint busy
	HandshakeStall                  // Endpoint halted
)

// String returns a human-readable handshake name.
func (h Handshake) String() string {
	switch h {
	case HandshakeACK:
		return "ACK"
	case HandshakeNAK:
		return "NAK"
	case HandshakeStall:
		return "STALL"
	default:
		return "NONE"
	}
}

// endpoint is the register and buffer state of one endpoint number.
type endpoint struct {
	txBuf    [MaxPacketSize]byte
	txCount  int
	txStatus hal.Status
	txToggle uint8

	rxBuf    [MaxPacketSize]byte
	rxLen    int // Bytes in the last received packet
	rxCount  int // Receive capacity
	rxStatus hal.Status
	rxToggle uint8

	address uint8
}

// HAL implements hal.EndpointHAL over in-memory endpoint registers.
//
// The device side uses the hal.EndpointHAL methods. The host side delivers
// tokens with DeliverSetup, TakeIn and DeliverOut, which update the
// registers the way the peripheral does after each transaction.
type HAL struct {
	mutex     sync.Mutex
	endpoints [hal.MaxEndpoints]endpoint
	address   uint8
	enabled   bool
}

// New creates a simulated HAL with every endpoint disabled.
func New() *HAL {
	return &HAL{}
}

// ReadRx implements hal.EndpointHAL.
func (h *HAL) ReadRx(ep uint8, buf []byte) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	e := h.ep(ep)
	if e == nil {
		return 0
	}
	return copy(buf, e.rxBuf[:e.rxLen])
}

// WriteTx implements hal.EndpointHAL.
func (h *HAL) WriteTx(ep uint8, data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	e := h.ep(ep)
	if e == nil {
		return
	}
	e.txCount = copy(e.txBuf[:], data)
}

// SetTxCount implements hal.EndpointHAL.
func (h *HAL) SetTxCount(ep uint8, n int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.txCount = clampCount(n)
	}
}

// SetRxCount implements hal.EndpointHAL.
func (h *HAL) SetRxCount(ep uint8, n int) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.rxCount = clampCount(n)
	}
}

// SetTxStatus implements hal.EndpointHAL.
func (h *HAL) SetTxStatus(ep uint8, s hal.Status) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.txStatus = s
	}
}

// SetRxStatus implements hal.EndpointHAL.
func (h *HAL) SetRxStatus(ep uint8, s hal.Status) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.rxStatus = s
	}
}

// TxStatus implements hal.EndpointHAL.
func (h *HAL) TxStatus(ep uint8) hal.Status {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.txStatus
	}
	return hal.StatusDisabled
}

// RxStatus implements hal.EndpointHAL.
func (h *HAL) RxStatus(ep uint8) hal.Status {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.rxStatus
	}
	return hal.StatusDisabled
}

// ClearTxToggle implements hal.EndpointHAL.
func (h *HAL) ClearTxToggle(ep uint8) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.txToggle = 0
	}
}

// ClearRxToggle implements hal.EndpointHAL.
func (h *HAL) ClearRxToggle(ep uint8) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.rxToggle = 0
	}
}

// SetEndpointAddress implements hal.EndpointHAL.
func (h *HAL) SetEndpointAddress(ep, addr uint8) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.address = addr
	}
}

// SetDeviceAddress implements hal.EndpointHAL.
func (h *HAL) SetDeviceAddress(addr uint8) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.address = addr
	h.enabled = true

	pkg.LogDebug(pkg.ComponentHAL, "device address programmed",
		"address", addr)
}

// EnableEndpoint arms a non-control endpoint in both directions, as a class
// driver does after SET_CONFIGURATION.
func (h *HAL) EnableEndpoint(ep uint8, tx, rx hal.Status) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		e.txStatus = tx
		e.rxStatus = rx
		e.rxCount = MaxPacketSize
	}
}

// Address returns the programmed device address.
func (h *HAL) Address() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.address
}

// EndpointAddress returns the endpoint number bound to register ep.
func (h *HAL) EndpointAddress(ep uint8) uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.address
	}
	return 0
}

// TxToggle returns the IN data toggle of ep.
func (h *HAL) TxToggle(ep uint8) uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.txToggle
	}
	return 0
}

// RxToggle returns the OUT data toggle of ep.
func (h *HAL) RxToggle(ep uint8) uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.rxToggle
	}
	return 0
}

// TxCount returns the byte count armed for the next IN transaction.
func (h *HAL) TxCount(ep uint8) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.txCount
	}
	return 0
}

// RxCount returns the receive capacity armed for the next OUT transaction.
func (h *HAL) RxCount(ep uint8) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if e := h.ep(ep); e != nil {
		return e.rxCount
	}
	return 0
}

// DeliverSetup places a SETUP packet in the endpoint-0 receive buffer.
// SETUP is accepted regardless of the endpoint status; both directions are
// left NAKing until the device re-arms them.
func (h *HAL) DeliverSetup(data []byte) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	e := &h.endpoints[0]
	e.rxLen = copy(e.rxBuf[:], data)
	e.txStatus = hal.StatusNAK
	e.rxStatus = hal.StatusNAK
	e.txToggle = 1
	e.rxToggle = 1
}

// TakeIn performs an IN transaction on ep. On ACK it returns a copy of the
// transmitted packet and sets the IN direction to NAK.
func (h *HAL) TakeIn(ep uint8) ([]byte, Handshake) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	e := h.ep(ep)
	if e == nil {
		return nil, HandshakeNone
	}
	switch e.txStatus {
	case hal.StatusValid:
		pkt := append([]byte(nil), e.txBuf[:e.txCount]...)
		e.txStatus = hal.StatusNAK
		e.txToggle ^= 1
		return pkt, HandshakeACK
	case hal.StatusNAK:
		return nil, HandshakeNAK
	case hal.StatusStall:
		return nil, HandshakeStall
	default:
		return nil, HandshakeNone
	}
}

// DeliverOut performs an OUT transaction on ep. On ACK the packet is stored
// in the receive buffer and the OUT direction is set to NAK.
func (h *HAL) DeliverOut(ep uint8, data []byte) Handshake {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	e := h.ep(ep)
	if e == nil {
		return HandshakeNone
	}
	switch e.rxStatus {
	case hal.StatusValid:
		if len(data) > e.rxCount {
			pkg.LogWarn(pkg.ComponentHAL, "packet exceeds receive count",
				"ep", ep,
				"len", len(data),
				"count", e.rxCount)
			return HandshakeNone
		}
		e.rxLen = copy(e.rxBuf[:], data)
		e.rxStatus = hal.StatusNAK
		e.rxToggle ^= 1
		return HandshakeACK
	case hal.StatusNAK:
		return HandshakeNAK
	case hal.StatusStall:
		return HandshakeStall
	default:
		return HandshakeNone
	}
}

func (h *HAL) ep(ep uint8) *endpoint {
	if int(ep) >= len(h.endpoints) {
		return nil
	}
	return &h.endpoints[ep]
}

func clampCount(n int) int {
	switch {
	case n < 0:
		return 0
	case n > MaxPacketSize:
		return MaxPacketSize
	}
	return n
}
