package pkg

import "errors"

// Control pipe errors.
var (
	// ErrUnsupported indicates a request the device rejects with a STALL.
	ErrUnsupported = errors.New("request unsupported")

	// ErrNotReady indicates the class layer needs more time to answer.
	ErrNotReady = errors.New("request not ready")

	// ErrHostAbort indicates the host ended a data stage early.
	ErrHostAbort = errors.New("transfer aborted by host")

	// ErrStall indicates an endpoint stall condition.
	ErrStall = errors.New("endpoint stalled")

	// ErrNotPaused indicates a resume was requested while no transfer was paused.
	ErrNotPaused = errors.New("control pipe not paused")

	// ErrSetupPacketTooShort indicates the setup packet data is too short.
	ErrSetupPacketTooShort = errors.New("setup packet too short")

	// ErrInvalidEndpoint indicates an invalid endpoint address.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrBufferTooSmall indicates the provided buffer is too small.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrDescriptorTooShort indicates the descriptor data is too short.
	ErrDescriptorTooShort = errors.New("descriptor too short")

	// ErrDescriptorTypeMismatch indicates the descriptor type does not match expected.
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")

	// ErrNoMemory indicates a fixed-size table is full.
	ErrNoMemory = errors.New("insufficient memory")

	// ErrProtocol indicates the host observed a protocol violation.
	ErrProtocol = errors.New("protocol error")

	// ErrClosed indicates an operation on a closed resource.
	ErrClosed = errors.New("closed")
)

// TransferStatus represents the completion status of a control transfer as
// observed from the host side.
type TransferStatus int

// Transfer status values.
const (
	TransferStatusSuccess TransferStatus = iota // Transfer completed successfully
	TransferStatusStall                         // Endpoint stalled
	TransferStatusPaused                        // Device paused awaiting the class layer
	TransferStatusError                         // Transfer failed with error
)

// String returns a string representation of the transfer status.
func (s TransferStatus) String() string {
	switch s {
	case TransferStatusSuccess:
		return "success"
	case TransferStatusStall:
		return "stall"
	case TransferStatusPaused:
		return "paused"
	case TransferStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Error returns the corresponding error for the transfer status.
func (s TransferStatus) Error() error {
	switch s {
	case TransferStatusSuccess:
		return nil
	case TransferStatusStall:
		return ErrStall
	case TransferStatusPaused:
		return ErrNotReady
	default:
		return ErrProtocol
	}
}
