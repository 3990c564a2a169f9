package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytesProducer(t *testing.T) {
	p := BytesProducer{1, 2, 3, 4, 5}

	assert.Equal(t, 5, p.Len())
	assert.Equal(t, []byte{1, 2}, p.Fetch(0, 2))
	assert.Equal(t, []byte{4, 5}, p.Fetch(3, 8))
	assert.Nil(t, p.Fetch(5, 1))
	assert.Nil(t, p.Fetch(9, 1))
}

func TestBufferSink(t *testing.T) {
	buf := make([]byte, 8)

	s := NewBufferSink(buf, 16)
	assert.Equal(t, 8, s.Len(), "length is clamped to the buffer")

	s = NewBufferSink(buf, 6)
	assert.Empty(t, s.Data())

	s.AddReceived(copy(s.Fetch(0, 4), []byte{1, 2, 3, 4}))
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Data())

	s.AddReceived(copy(s.Fetch(4, 4), []byte{5, 6, 7, 8}))
	assert.Nil(t, s.Fetch(6, 2))
	assert.Equal(t, 6, s.Received())
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, s.Data())
	assert.Zero(t, buf[6], "bytes beyond the sink length are untouched")

	s.AddReceived(10)
	assert.Equal(t, 6, s.Received(), "count is clamped to the sink length")
}

func TestStatusProducer(t *testing.T) {
	p := newStatusProducer(StatusSelfPowered | StatusRemoteWakeup)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []byte{0x03, 0x00}, p.Fetch(0, 2))
	assert.Equal(t, []byte{0x00}, p.Fetch(1, 8))
}

func TestByteProducerReadsAtFetch(t *testing.T) {
	value := uint8(1)
	p := byteProducer{value: &value}

	value = 7
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, []byte{7}, p.Fetch(0, 1))
	assert.Nil(t, p.Fetch(1, 1))
}

func TestTransferContextReset(t *testing.T) {
	x := TransferContext{
		RemainingIn:       3,
		OffsetIn:          8,
		RemainingOut:      2,
		OffsetOut:         4,
		PacketSize:        16,
		Producer:          BytesProducer{1},
		zeroLengthPending: true,
	}
	x.Reset()

	assert.Equal(t, TransferContext{PacketSize: 16}, x)
	assert.False(t, x.ZeroLengthPending())
}

func TestDeviceContextReset(t *testing.T) {
	d := DeviceContext{
		Configuration:       1,
		Interface:           2,
		AlternateSetting:    1,
		Features:            Features{RemoteWakeup: true, SelfPowered: true},
		TotalEndpoints:      4,
		TotalConfigurations: 2,
		Address:             12,
	}
	d.Reset()

	assert.Equal(t, DeviceContext{
		Features:            Features{SelfPowered: true},
		TotalEndpoints:      4,
		TotalConfigurations: 2,
	}, d)
	assert.False(t, d.IsConfigured())
}
