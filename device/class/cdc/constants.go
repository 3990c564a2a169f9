package cdc

import (
	"encoding/binary"
	"fmt"
)

// Class codes.
const (
	ClassCDC     = 0x02 // Communications Device Class
	ClassCDCData = 0x0A // CDC Data Class
)

// Subclass and protocol codes of the communications interface.
const (
	SubclassNone = 0x00
	SubclassACM  = 0x02 // Abstract Control Model

	ProtocolNone = 0x00
	ProtocolAT   = 0x01 // AT Commands: V.250
)

// DescriptorTypeCSInterface is the class-specific interface descriptor type.
const DescriptorTypeCSInterface = 0x24

// Functional descriptor subtypes.
const (
	SubtypeHeader         = 0x00
	SubtypeCallManagement = 0x01
	SubtypeACM            = 0x02
	SubtypeUnion          = 0x06
)

// ACM class requests.
const (
	RequestSetLineCoding       = 0x20
	RequestGetLineCoding       = 0x21
	RequestSetControlLineState = 0x22
	RequestSendBreak           = 0x23
)

// NotificationSerialState reports the UART state on the interrupt endpoint.
const NotificationSerialState = 0x20

// Control line state bits (wValue of SET_CONTROL_LINE_STATE).
const (
	ControlLineDTR = 1 << 0 // Data Terminal Ready
	ControlLineRTS = 1 << 1 // Request To Send
)

// Serial state bits (SERIAL_STATE notification).
const (
	SerialStateRxCarrier = 1 << 0 // DCD
	SerialStateTxCarrier = 1 << 1 // DSR
	SerialStateBreak     = 1 << 2
	SerialStateRing      = 1 << 3
	SerialStateFraming   = 1 << 4
	SerialStateParity    = 1 << 5
	SerialStateOverrun   = 1 << 6
)

// Stop bit values (bCharFormat).
const (
	StopBits1   = 0
	StopBits1_5 = 1
	StopBits2   = 2
)

// Parity values (bParityType).
const (
	ParityNone  = 0
	ParityOdd   = 1
	ParityEven  = 2
	ParityMark  = 3
	ParitySpace = 4
)

// LineCodingSize is the size of the line coding structure in bytes.
const LineCodingSize = 7

// LineCoding is the serial line configuration exchanged by
// SET_LINE_CODING and GET_LINE_CODING.
type LineCoding struct {
	DTERate    uint32 // Baud rate
	CharFormat uint8  // Stop bits
	ParityType uint8
	DataBits   uint8 // 5, 6, 7, 8 or 16
}

// DefaultLineCoding is 115200 8N1.
var DefaultLineCoding = LineCoding{
	DTERate:    115200,
	CharFormat: StopBits1,
	ParityType: ParityNone,
	DataBits:   8,
}

// MarshalTo writes the line coding to buf.
// Returns the number of bytes written, or 0 if buf is too small.
func (lc *LineCoding) MarshalTo(buf []byte) int {
	if len(buf) < LineCodingSize {
		return 0
	}
	binary.LittleEndian.PutUint32(buf, lc.DTERate)
	buf[4] = lc.CharFormat
	buf[5] = lc.ParityType
	buf[6] = lc.DataBits
	return LineCodingSize
}

// ParseLineCoding parses a line coding from data.
// Returns false if data is too short.
func ParseLineCoding(data []byte, out *LineCoding) bool {
	if len(data) < LineCodingSize {
		return false
	}
	out.DTERate = binary.LittleEndian.Uint32(data)
	out.CharFormat = data[4]
	out.ParityType = data[5]
	out.DataBits = data[6]
	return true
}

// String returns the line coding in the usual "115200 8N1" form.
func (lc LineCoding) String() string {
	parity := "?"
	if int(lc.ParityType) < len("NOEMS") {
		parity = "NOEMS"[lc.ParityType : lc.ParityType+1]
	}
	stop := "?"
	switch lc.CharFormat {
	case StopBits1:
		stop = "1"
	case StopBits1_5:
		stop = "1.5"
	case StopBits2:
		stop = "2"
	}
	return fmt.Sprintf("%d %d%s%s", lc.DTERate, lc.DataBits, parity, stop)
}

// HeaderDescriptorSize is the size of the header functional descriptor.
const HeaderDescriptorSize = 5

// HeaderDescriptor is the header functional descriptor.
type HeaderDescriptor struct {
	CDCVersion uint16 // BCD release, 0x0110 for 1.10
}

// MarshalTo writes the descriptor to buf.
func (d *HeaderDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < HeaderDescriptorSize {
		return 0
	}
	buf[0] = HeaderDescriptorSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = SubtypeHeader
	binary.LittleEndian.PutUint16(buf[3:], d.CDCVersion)
	return HeaderDescriptorSize
}

// CallManagementDescriptorSize is the size of the call management
// functional descriptor.
const CallManagementDescriptorSize = 5

// CallManagementDescriptor is the call management functional descriptor.
type CallManagementDescriptor struct {
	Capabilities  uint8
	DataInterface uint8
}

// MarshalTo writes the descriptor to buf.
func (d *CallManagementDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < CallManagementDescriptorSize {
		return 0
	}
	buf[0] = CallManagementDescriptorSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = SubtypeCallManagement
	buf[3] = d.Capabilities
	buf[4] = d.DataInterface
	return CallManagementDescriptorSize
}

// ACMDescriptorSize is the size of the ACM functional descriptor.
const ACMDescriptorSize = 4

// ACM capability bits.
const (
	ACMCapCommFeature = 1 << 0
	ACMCapLineCoding  = 1 << 1 // Line coding and control line state
	ACMCapSendBreak   = 1 << 2
)

// ACMDescriptor is the abstract control management functional descriptor.
type ACMDescriptor struct {
	Capabilities uint8
}

// MarshalTo writes the descriptor to buf.
func (d *ACMDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < ACMDescriptorSize {
		return 0
	}
	buf[0] = ACMDescriptorSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = SubtypeACM
	buf[3] = d.Capabilities
	return ACMDescriptorSize
}

// UnionDescriptorSize is the size of a union functional descriptor with one
// subordinate interface.
const UnionDescriptorSize = 5

// UnionDescriptor is the union functional descriptor.
type UnionDescriptor struct {
	MasterInterface uint8
	SlaveInterface0 uint8
}

// MarshalTo writes the descriptor to buf.
func (d *UnionDescriptor) MarshalTo(buf []byte) int {
	if len(buf) < UnionDescriptorSize {
		return 0
	}
	buf[0] = UnionDescriptorSize
	buf[1] = DescriptorTypeCSInterface
	buf[2] = SubtypeUnion
	buf[3] = d.MasterInterface
	buf[4] = d.SlaveInterface0
	return UnionDescriptorSize
}
