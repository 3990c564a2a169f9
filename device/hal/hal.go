package hal

// Status is the hardware handshake state of one direction of an endpoint.
type Status uint8

// Endpoint status values. The numeric layout matches the two-bit STAT_TX and
// STAT_RX fields of the USB full-speed device peripheral.
const (
	StatusDisabled Status = iota // Endpoint ignores all tokens
	StatusStall                  // Endpoint answers with STALL
	StatusNAK                    // Endpoint answers with NAK
	StatusValid                  // Endpoint is armed for the next transaction
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "DISABLED"
	case StatusStall:
		return "STALL"
	case StatusNAK:
		return "NAK"
	case StatusValid:
		return "VALID"
	default:
		return "UNKNOWN"
	}
}

// MaxEndpoints is the number of endpoint numbers addressable by wIndex.
const MaxEndpoints = 16

// MaxDeviceAddress is the largest address SET_ADDRESS may assign.
const MaxDeviceAddress = 127

// EndpointHAL is the register-level boundary between the control pipe and the
// USB device peripheral.
//
// The control pipe calls these methods as side-effecting primitives from the
// single context that delivers SETUP, IN and OUT token notifications. It
// trusts the values returned by the status queries.
//
// TX refers to the IN direction (device to host) and RX to the OUT direction
// (host to device) of the numbered endpoint.
type EndpointHAL interface {
	// ReadRx copies the packet last received on ep into buf.
	// Returns the number of bytes copied.
	ReadRx(ep uint8, buf []byte) int

	// WriteTx copies data into the transmit buffer of ep and sets the
	// transmit count to len(data).
	WriteTx(ep uint8, data []byte)

	// SetTxCount sets the number of bytes the next IN transaction sends.
	SetTxCount(ep uint8, n int)

	// SetRxCount sets the receive buffer capacity for the next OUT transaction.
	SetRxCount(ep uint8, n int)

	// SetTxStatus sets the handshake state of the IN direction.
	SetTxStatus(ep uint8, s Status)

	// SetRxStatus sets the handshake state of the OUT direction.
	SetRxStatus(ep uint8, s Status)

	// TxStatus returns the handshake state of the IN direction.
	TxStatus(ep uint8) Status

	// RxStatus returns the handshake state of the OUT direction.
	RxStatus(ep uint8) Status

	// ClearTxToggle resets the IN data toggle to DATA0.
	ClearTxToggle(ep uint8)

	// ClearRxToggle resets the OUT data toggle to DATA0.
	ClearRxToggle(ep uint8)

	// SetEndpointAddress binds the hardware endpoint register ep to the
	// endpoint number addr.
	SetEndpointAddress(ep, addr uint8)

	// SetDeviceAddress programs the device bus address and enables the
	// function.
	SetDeviceAddress(addr uint8)
}
