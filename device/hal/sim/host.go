package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbctrl/pkg"
)

// Endpoint0 is the device side of endpoint 0 as seen by the host: one call
// per completed transaction. Each method returns true if the transfer is
// paused.
type Endpoint0 interface {
	Setup(raw []byte) bool
	In() bool
	Out() bool
}

// DefaultRetries is the number of NAKs a Host tolerates per transaction.
const DefaultRetries = 3

// Host performs control transfers against a simulated device by issuing
// SETUP, IN and OUT transactions on endpoint 0.
type Host struct {
	hal           *HAL
	dev           Endpoint0
	maxPacketSize int

	// OnNAK is called when the device NAKs a transaction. If it returns
	// true the transaction is retried, up to Retries times.
	OnNAK   func() bool
	Retries int

	packets []int
}

// NewHost creates a host driving dev through h.
func NewHost(h *HAL, dev Endpoint0, maxPacketSize int) *Host {
	return &Host{
		hal:           h,
		dev:           dev,
		maxPacketSize: maxPacketSize,
		Retries:       DefaultRetries,
	}
}

// Packets returns the data-stage packet sizes of the last transfer.
func (h *Host) Packets() []int {
	return h.packets
}

// ControlRead performs a device-to-host control transfer and returns the
// data stage payload.
func (h *Host) ControlRead(setup []byte) ([]byte, error) {
	length, err := h.start(setup)
	if err != nil {
		return nil, err
	}

	var data []byte
	for {
		pkt, err := h.in()
		if err != nil {
			return data, fmt.Errorf("data stage: %w", err)
		}
		h.packets = append(h.packets, len(pkt))
		data = append(data, pkt...)
		h.dev.In()

		if len(pkt) < h.maxPacketSize || len(data) >= length {
			break
		}
	}

	if err := h.out(nil); err != nil {
		return data, fmt.Errorf("status stage: %w", err)
	}
	h.dev.Out()

	return data, nil
}

// ControlWrite performs a host-to-device control transfer with data.
func (h *Host) ControlWrite(setup []byte, data []byte) error {
	if _, err := h.start(setup); err != nil {
		return err
	}

	for offset := 0; offset < len(data); {
		n := len(data) - offset
		if n > h.maxPacketSize {
			n = h.maxPacketSize
		}
		if err := h.out(data[offset : offset+n]); err != nil {
			return fmt.Errorf("data stage: %w", err)
		}
		h.packets = append(h.packets, n)
		h.dev.Out()
		offset += n
	}

	return h.statusIn()
}

// NoData performs a control transfer without a data stage.
func (h *Host) NoData(setup []byte) error {
	if _, err := h.start(setup); err != nil {
		return err
	}
	return h.statusIn()
}

func (h *Host) start(setup []byte) (int, error) {
	if len(setup) < 8 {
		return 0, pkg.ErrSetupPacketTooShort
	}
	h.packets = h.packets[:0]
	h.hal.DeliverSetup(setup[:8])
	h.dev.Setup(setup[:8])
	return int(binary.LittleEndian.Uint16(setup[6:8])), nil
}

func (h *Host) statusIn() error {
	pkt, err := h.in()
	if err != nil {
		return fmt.Errorf("status stage: %w", err)
	}
	if len(pkt) != 0 {
		return fmt.Errorf("status stage: %d byte status packet: %w", len(pkt), pkg.ErrProtocol)
	}
	h.dev.In()
	return nil
}

func (h *Host) in() ([]byte, error) {
	for attempt := 0; ; attempt++ {
		pkt, hs := h.hal.TakeIn(0)
		if hs == HandshakeNAK && h.retry(attempt) {
			continue
		}
		return pkt, handshakeErr(hs)
	}
}

func (h *Host) out(data []byte) error {
	for attempt := 0; ; attempt++ {
		hs := h.hal.DeliverOut(0, data)
		if hs == HandshakeNAK && h.retry(attempt) {
			continue
		}
		return handshakeErr(hs)
	}
}

func (h *Host) retry(attempt int) bool {
	return attempt < h.Retries && h.OnNAK != nil && h.OnNAK()
}

func handshakeErr(hs Handshake) error {
	switch hs {
	case HandshakeACK:
		return nil
	case HandshakeNAK:
		return pkg.ErrNotReady
	case HandshakeStall:
		return pkg.ErrStall
	default:
		return pkg.ErrProtocol
	}
}
