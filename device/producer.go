package device

import "encoding/binary"

// Producer supplies the payload of a control data stage.
//
// The control pipe first asks for the total length, then fetches the payload
// in packet-sized chunks at increasing offsets. For an IN data stage Fetch
// returns the bytes to send; for an OUT data stage it returns the buffer the
// received bytes are copied into. The returned slice must hold at least n
// bytes.
type Producer interface {
	// Len returns the total payload length in bytes, or LengthNotReady if
	// the payload is not yet available.
	Len() int

	// Fetch returns a view of n bytes starting at offset.
	Fetch(offset, n int) []byte
}

// BytesProducer serves a fixed byte slice. It is used for descriptors and
// other payloads that exist in memory before the data stage starts.
type BytesProducer []byte

// Len returns the length of the slice.
func (p BytesProducer) Len() int {
	return len(p)
}

// Fetch returns p[offset:offset+n], clamped to the slice.
func (p BytesProducer) Fetch(offset, n int) []byte {
	if offset >= len(p) {
		return nil
	}
	end := offset + n
	if end > len(p) {
		end = len(p)
	}
	return p[offset:end]
}

// ReceiveCounter is implemented by OUT sinks that track how many bytes the
// host actually sent. The pump reports every packet it copies.
type ReceiveCounter interface {
	AddReceived(n int)
}

// BufferSink receives an OUT data stage into a caller-owned buffer.
// Length is the number of bytes the sink accepts.
type BufferSink struct {
	Buf    []byte
	Length int

	received int
}

// NewBufferSink returns a sink that accepts up to length bytes into buf.
func NewBufferSink(buf []byte, length int) *BufferSink {
	if length > len(buf) {
		length = len(buf)
	}
	return &BufferSink{Buf: buf, Length: length}
}

// Len returns the number of bytes the sink accepts.
func (s *BufferSink) Len() int {
	return s.Length
}

// Fetch returns the receive window at offset.
func (s *BufferSink) Fetch(offset, n int) []byte {
	if offset >= s.Length {
		return nil
	}
	end := offset + n
	if end > s.Length {
		end = s.Length
	}
	return s.Buf[offset:end]
}

// AddReceived implements ReceiveCounter.
func (s *BufferSink) AddReceived(n int) {
	s.received += n
	if s.received > s.Length {
		s.received = s.Length
	}
}

// Received returns the number of bytes the host has sent into the sink.
func (s *BufferSink) Received() int {
	return s.received
}

// Data returns the bytes the host has sent into the sink.
func (s *BufferSink) Data() []byte {
	return s.Buf[:s.received]
}

// statusProducer serves the 2-byte GET_STATUS word.
type statusProducer struct {
	word [2]byte
}

func newStatusProducer(status uint16) *statusProducer {
	p := &statusProducer{}
	binary.LittleEndian.PutUint16(p.word[:], status)
	return p
}

func (p *statusProducer) Len() int { return len(p.word) }

func (p *statusProducer) Fetch(offset, n int) []byte {
	return BytesProducer(p.word[:]).Fetch(offset, n)
}

// byteProducer serves a single byte read from device state at fetch time.
type byteProducer struct {
	value *uint8
}

func (p byteProducer) Len() int { return 1 }

func (p byteProducer) Fetch(offset, n int) []byte {
	if offset != 0 || n < 1 {
		return nil
	}
	var b [1]byte
	b[0] = *p.value
	return b[:]
}
