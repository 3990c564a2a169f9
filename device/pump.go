package device

import (
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

// dataStageOut moves one OUT packet from the endpoint-0 receive buffer into
// the producer's sink and selects the next state.
func (c *Control) dataStageOut() {
	x := &c.xfer

	if x.Producer != nil && x.RemainingOut > 0 {
		n := x.PacketSize
		if n > x.RemainingOut {
			n = x.RemainingOut
		}
		if dst := x.Producer.Fetch(x.OffsetOut, n); dst != nil {
			received := c.hal.ReadRx(0, dst)
			c.moved += received
			if rc, ok := x.Producer.(ReceiveCounter); ok {
				rc.AddReceived(received)
			}
			if received < n {
				pkg.LogDebug(pkg.ComponentPump, "short out packet",
					"expected", n,
					"received", received)
			}
		}
		x.RemainingOut -= n
		x.OffsetOut += n
	}

	if x.RemainingOut != 0 {
		// The host may still end the data stage with a status IN.
		c.hal.SetRxStatus(0, hal.StatusValid)
		c.hal.SetTxCount(0, 0)
		c.hal.SetTxStatus(0, hal.StatusValid)
	}

	switch {
	case x.RemainingOut >= x.PacketSize:
		c.state = StateOutData
	case x.RemainingOut > 0:
		c.state = StateLastOutData
	default:
		c.state = StateWaitStatusIn
		c.statusIn()
	}

	pkg.LogDebug(pkg.ComponentPump, "out data stage",
		"remaining", x.RemainingOut,
		"offset", x.OffsetOut,
		"state", c.state)
}

// dataStageIn sends the next IN packet (or the trailing zero-length packet)
// and selects the next state.
func (c *Control) dataStageIn() {
	x := &c.xfer

	if x.RemainingIn == 0 && c.state == StateLastInData {
		if x.zeroLengthPending {
			c.sendZeroLength()
			x.zeroLengthPending = false
			c.state = StateLastInData
			pkg.LogDebug(pkg.ComponentPump, "in data stage terminated with zero-length packet",
				"offset", x.OffsetIn)
		} else {
			c.state = StateWaitStatusOut
			c.hal.SetTxStatus(0, hal.StatusStall)
			pkg.LogDebug(pkg.ComponentPump, "in data stage complete",
				"offset", x.OffsetIn)
		}
		return
	}

	n := x.PacketSize
	if x.RemainingIn <= n {
		c.state = StateLastInData
		n = x.RemainingIn
	} else {
		c.state = StateInData
	}

	var data []byte
	if x.Producer != nil {
		data = x.Producer.Fetch(x.OffsetIn, n)
	}
	if len(data) > n {
		data = data[:n]
	}
	c.hal.WriteTx(0, data)
	c.hal.SetTxCount(0, n)
	c.moved += n

	x.RemainingIn -= n
	x.OffsetIn += n

	c.hal.SetTxStatus(0, hal.StatusValid)
	// The host may end the data stage early with a status OUT.
	c.hal.SetRxStatus(0, hal.StatusValid)

	pkg.LogDebug(pkg.ComponentPump, "in data stage",
		"sent", n,
		"remaining", x.RemainingIn,
		"state", c.state)
}

// statusIn arms the zero-length status packet the host reads to finish a
// no-data or control-write transfer.
func (c *Control) statusIn() {
	c.sendZeroLength()
}

func (c *Control) sendZeroLength() {
	c.hal.SetTxCount(0, 0)
	c.hal.SetTxStatus(0, hal.StatusValid)
}
