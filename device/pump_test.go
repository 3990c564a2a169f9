package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/device/hal/sim"
)

func TestDataStageIn(t *testing.T) {
	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}

	tests := []struct {
		name          string
		state         ControlState
		remaining     int
		offset        int
		zeroLength    bool
		wantState     ControlState
		wantSent      []byte
		wantRemaining int
		wantTx        hal.Status
		wantZero      bool
	}{
		{
			name:          "more than one packet",
			state:         StateInData,
			remaining:     20,
			wantState:     StateInData,
			wantSent:      payload[:8],
			wantRemaining: 12,
			wantTx:        hal.StatusValid,
		},
		{
			name:          "exactly one packet",
			state:         StateInData,
			remaining:     8,
			offset:        16,
			wantState:     StateLastInData,
			wantSent:      payload[16:24],
			wantRemaining: 0,
			wantTx:        hal.StatusValid,
		},
		{
			name:          "short packet",
			state:         StateInData,
			remaining:     3,
			offset:        8,
			wantState:     StateLastInData,
			wantSent:      payload[8:11],
			wantRemaining: 0,
			wantTx:        hal.StatusValid,
		},
		{
			name:       "trailing zero-length packet",
			state:      StateLastInData,
			offset:     16,
			zeroLength: true,
			wantState:  StateLastInData,
			wantSent:   []byte{},
			wantTx:     hal.StatusValid,
		},
		{
			name:      "data stage complete",
			state:     StateLastInData,
			offset:    16,
			wantState: StateWaitStatusOut,
			wantTx:    hal.StatusStall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8)
			c := h.ctrl
			c.state = tt.state
			c.xfer.Producer = BytesProducer(payload)
			c.xfer.RemainingIn = tt.remaining
			c.xfer.OffsetIn = tt.offset
			c.xfer.zeroLengthPending = tt.zeroLength

			c.dataStageIn()

			assert.Equal(t, tt.wantState, c.state)
			assert.Equal(t, tt.wantRemaining, c.xfer.RemainingIn)
			assert.Equal(t, tt.wantZero, c.xfer.ZeroLengthPending())
			assert.Equal(t, tt.wantTx, h.hal.TxStatus(0))

			if tt.wantTx != hal.StatusValid {
				return
			}
			if len(tt.wantSent) > 0 {
				assert.Equal(t, hal.StatusValid, h.hal.RxStatus(0), "host may abort with a status OUT")
			}
			pkt, hs := h.hal.TakeIn(0)
			require.Equal(t, sim.HandshakeACK, hs)
			assert.Equal(t, tt.wantSent, pkt)
			assert.Equal(t, tt.offset+len(tt.wantSent), c.xfer.OffsetIn)
		})
	}
}

func TestDataStageInRemainingNeverGrows(t *testing.T) {
	h := newHarness(t, 8)
	c := h.ctrl
	c.state = StateInData
	c.xfer.Producer = BytesProducer(make([]byte, 27))
	c.xfer.RemainingIn = 27

	prev := c.xfer.RemainingIn
	for c.state != StateWaitStatusOut {
		c.dataStageIn()
		require.LessOrEqual(t, c.xfer.RemainingIn, prev)
		prev = c.xfer.RemainingIn
	}
	assert.Equal(t, 27, c.xfer.OffsetIn)
}

func TestDataStageOut(t *testing.T) {
	tests := []struct {
		name          string
		remaining     int
		packet        []byte
		wantState     ControlState
		wantRemaining int
	}{
		{
			name:          "more than one packet left",
			remaining:     20,
			packet:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
			wantState:     StateOutData,
			wantRemaining: 12,
		},
		{
			name:          "one partial packet left",
			remaining:     12,
			packet:        []byte{1, 2, 3, 4, 5, 6, 7, 8},
			wantState:     StateLastOutData,
			wantRemaining: 4,
		},
		{
			name:          "last packet",
			remaining:     4,
			packet:        []byte{9, 8, 7, 6},
			wantState:     StateWaitStatusIn,
			wantRemaining: 0,
		},
		{
			name:          "short last packet",
			remaining:     4,
			packet:        []byte{9, 8, 7},
			wantState:     StateWaitStatusIn,
			wantRemaining: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8)
			c := h.ctrl
			buf := make([]byte, 32)
			sink := NewBufferSink(buf, tt.remaining)
			c.state = StateOutData
			c.xfer.Producer = sink
			c.xfer.RemainingOut = tt.remaining

			h.hal.SetRxCount(0, 8)
			h.hal.SetRxStatus(0, hal.StatusValid)
			require.Equal(t, sim.HandshakeACK, h.hal.DeliverOut(0, tt.packet))

			c.dataStageOut()

			assert.Equal(t, tt.wantState, c.state)
			assert.Equal(t, tt.wantRemaining, c.xfer.RemainingOut)
			assert.Equal(t, tt.packet, sink.Data())
			assert.Equal(t, len(tt.packet), sink.Received())

			// Either more data or the status stage may follow; both need an
			// armed zero-length IN.
			assert.Equal(t, hal.StatusValid, h.hal.TxStatus(0))
			assert.Zero(t, h.hal.TxCount(0))
			if tt.wantRemaining > 0 {
				assert.Equal(t, hal.StatusValid, h.hal.RxStatus(0))
			}
		})
	}
}

func TestDataStageOutWithoutSink(t *testing.T) {
	h := newHarness(t, 8)
	c := h.ctrl
	c.state = StateOutData
	c.xfer.RemainingOut = 0

	c.dataStageOut()

	assert.Equal(t, StateWaitStatusIn, c.state)
	assert.Equal(t, hal.StatusValid, h.hal.TxStatus(0))
}
