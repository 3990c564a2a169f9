package trace

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/pkg"
)

// Recorder writes control pipe token events as a CBOR stream.
// It implements device.Observer and is safe for concurrent use.
type Recorder struct {
	closer  io.Closer
	encoder *cbor.Encoder
	session string
	seq     uint64
	err     error
	mu      sync.Mutex
	closed  bool
}

// NewRecorder creates a recorder writing to w under a new session ID.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		encoder: NewEncoder(w),
		session: uuid.New().String(),
	}
}

// NewFileRecorder creates a recorder that writes to a new file at path.
func NewFileRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(f)
	r.closer = f
	return r, nil
}

// Session returns the session ID stamped on every event.
func (r *Recorder) Session() string {
	return r.session
}

// Count returns the number of events recorded.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Err returns the first encoding error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ObserveToken implements device.Observer.
func (r *Recorder) ObserveToken(ev device.TokenEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.err != nil {
		return
	}

	r.seq++
	// Tracing must not disrupt the control pipe; the error is kept for Err.
	if err := r.encoder.Encode(NewEvent(r.session, r.seq, ev)); err != nil {
		r.err = err
		pkg.LogWarn(pkg.ComponentTrace, "trace encode failed",
			"session", r.session,
			"seq", r.seq,
			"error", err)
	}
}

// Close closes the underlying file, if the recorder owns one.
// It is safe to call Close multiple times.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

var _ device.Observer = (*Recorder)(nil)
