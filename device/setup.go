package device

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/usbctrl/pkg"
)

// bRequest codes of the standard device requests (USB 2.0 Table 9-4).
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestSetDescriptor    = 0x07
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestGetInterface     = 0x0A
	RequestSetInterface     = 0x0B
	RequestSynchFrame       = 0x0C
)

// Feature selectors carried in wValue of SET_FEATURE and CLEAR_FEATURE
// (USB 2.0 Table 9-6).
const (
	FeatureEndpointHalt       = 0x00
	FeatureDeviceRemoteWakeup = 0x01
	FeatureTestMode           = 0x02
)

// bmRequestType fields (USB 2.0 Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F

	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
	RequestRecipientOther     = 0x03
)

// Endpoint selector bits of wIndex.low for endpoint recipients.
const (
	endpointDirectionBit = 0x80
	endpointReservedMask = 0x70
	endpointNumberMask   = 0x0F
)

// SetupPacketSize is the size of a SETUP packet on the wire.
const SetupPacketSize = 8

// SetupPacket is a decoded SETUP packet. The control pipe keeps the one that
// opened the current transfer until the next SETUP replaces it; a SETUP that
// arrives while the transfer is paused leaves it untouched.
type SetupPacket struct {
	RequestType uint8  // bmRequestType
	Request     uint8  // bRequest
	Value       uint16 // wValue
	Index       uint16 // wIndex
	Length      uint16 // wLength, the data stage limit
}

// ParseSetupPacket decodes the first 8 bytes of data into out. The 16-bit
// fields are little-endian on the wire.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return pkg.ErrSetupPacketTooShort
	}
	*out = SetupPacket{
		RequestType: data[0],
		Request:     data[1],
		Value:       binary.LittleEndian.Uint16(data[2:]),
		Index:       binary.LittleEndian.Uint16(data[4:]),
		Length:      binary.LittleEndian.Uint16(data[6:]),
	}
	return nil
}

// MarshalTo encodes s into buf and returns SetupPacketSize, or 0 if buf is
// too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0], buf[1] = s.RequestType, s.Request
	binary.LittleEndian.PutUint16(buf[2:], s.Value)
	binary.LittleEndian.PutUint16(buf[4:], s.Index)
	binary.LittleEndian.PutUint16(buf[6:], s.Length)
	return SetupPacketSize
}

// IsDeviceToHost reports whether the data stage, if any, is IN.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

// IsHostToDevice reports whether the data stage, if any, is OUT.
func (s *SetupPacket) IsHostToDevice() bool {
	return !s.IsDeviceToHost()
}

// Type returns the type bits of bmRequestType.
func (s *SetupPacket) Type() uint8 {
	return s.RequestType & RequestTypeTypeMask
}

func (s *SetupPacket) IsStandard() bool { return s.Type() == RequestTypeStandard }
func (s *SetupPacket) IsClass() bool    { return s.Type() == RequestTypeClass }
func (s *SetupPacket) IsVendor() bool   { return s.Type() == RequestTypeVendor }

// Recipient returns the recipient bits of bmRequestType.
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & RequestTypeRecipientMask
}

// IsInterfaceRecipient reports whether wIndex.low names an interface.
func (s *SetupPacket) IsInterfaceRecipient() bool {
	return s.Recipient() == RequestRecipientInterface
}

// TypeRecipient returns bmRequestType without the direction bit, the key the
// standard request table switches on.
func (s *SetupPacket) TypeRecipient() uint8 {
	return s.RequestType &^ RequestTypeDirectionMask
}

func (s *SetupPacket) ValueLow() uint8  { return uint8(s.Value) }
func (s *SetupPacket) ValueHigh() uint8 { return uint8(s.Value >> 8) }
func (s *SetupPacket) IndexLow() uint8  { return uint8(s.Index) }
func (s *SetupPacket) IndexHigh() uint8 { return uint8(s.Index >> 8) }

// DescriptorType returns the GET_DESCRIPTOR type (wValue.high).
func (s *SetupPacket) DescriptorType() uint8 { return s.ValueHigh() }

// DescriptorIndex returns the GET_DESCRIPTOR index (wValue.low).
func (s *SetupPacket) DescriptorIndex() uint8 { return s.ValueLow() }

// Endpoint decodes the endpoint selector in wIndex.low: the endpoint number
// and whether bit 7 selects the IN (transmit) direction. ok is false when
// any reserved bit is set.
func (s *SetupPacket) Endpoint() (number uint8, in bool, ok bool) {
	sel := s.IndexLow()
	return sel & endpointNumberMask, sel&endpointDirectionBit != 0, sel&endpointReservedMask == 0
}

var (
	typeNames      = [4]string{"standard", "class", "vendor", "reserved"}
	recipientNames = [4]string{"device", "interface", "endpoint", "other"}
	standardNames  = map[uint8]string{
		RequestGetStatus:        "GET_STATUS",
		RequestClearFeature:     "CLEAR_FEATURE",
		RequestSetFeature:       "SET_FEATURE",
		RequestSetAddress:       "SET_ADDRESS",
		RequestGetDescriptor:    "GET_DESCRIPTOR",
		RequestSetDescriptor:    "SET_DESCRIPTOR",
		RequestGetConfiguration: "GET_CONFIGURATION",
		RequestSetConfiguration: "SET_CONFIGURATION",
		RequestGetInterface:     "GET_INTERFACE",
		RequestSetInterface:     "SET_INTERFACE",
		RequestSynchFrame:       "SYNCH_FRAME",
	}
)

// String formats the packet as "IN standard/device GET_DESCRIPTOR
// value=0x0100 index=0x0000 length=18". Non-standard requests print the
// request code in hex.
func (s *SetupPacket) String() string {
	dir := "OUT"
	if s.IsDeviceToHost() {
		dir = "IN"
	}
	recip := "reserved"
	if r := s.Recipient(); int(r) < len(recipientNames) {
		recip = recipientNames[r]
	}
	name, ok := standardNames[s.Request]
	if !ok || !s.IsStandard() {
		name = fmt.Sprintf("0x%02X", s.Request)
	}
	return fmt.Sprintf("%s %s/%s %s value=0x%04X index=0x%04X length=%d",
		dir, typeNames[s.Type()>>5], recip, name, s.Value, s.Index, s.Length)
}

// standardSetup fills out with a standard request.
func standardSetup(out *SetupPacket, dir, recipient, request uint8, value, index, length uint16) {
	*out = SetupPacket{
		RequestType: dir | RequestTypeStandard | recipient,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      length,
	}
}

// The Get*Setup helpers fill out with the standard requests a host sends
// during enumeration.

func GetDescriptorSetup(out *SetupPacket, descType, descIndex uint8, length uint16) {
	standardSetup(out, RequestDirectionDeviceToHost, RequestRecipientDevice,
		RequestGetDescriptor, uint16(descType)<<8|uint16(descIndex), 0, length)
}

func GetSetAddressSetup(out *SetupPacket, address uint8) {
	standardSetup(out, RequestDirectionHostToDevice, RequestRecipientDevice,
		RequestSetAddress, uint16(address), 0, 0)
}

func GetSetConfigurationSetup(out *SetupPacket, config uint8) {
	standardSetup(out, RequestDirectionHostToDevice, RequestRecipientDevice,
		RequestSetConfiguration, uint16(config), 0, 0)
}

func GetConfigurationSetup(out *SetupPacket) {
	standardSetup(out, RequestDirectionDeviceToHost, RequestRecipientDevice,
		RequestGetConfiguration, 0, 0, 1)
}

func GetStatusSetup(out *SetupPacket, recipient uint8, index uint16) {
	standardSetup(out, RequestDirectionDeviceToHost, recipient,
		RequestGetStatus, 0, index, 2)
}

func GetSetFeatureSetup(out *SetupPacket, recipient uint8, feature, index uint16) {
	standardSetup(out, RequestDirectionHostToDevice, recipient,
		RequestSetFeature, feature, index, 0)
}

func GetClearFeatureSetup(out *SetupPacket, recipient uint8, feature, index uint16) {
	standardSetup(out, RequestDirectionHostToDevice, recipient,
		RequestClearFeature, feature, index, 0)
}

func GetSetInterfaceSetup(out *SetupPacket, iface, alt uint8) {
	standardSetup(out, RequestDirectionHostToDevice, RequestRecipientInterface,
		RequestSetInterface, uint16(alt), uint16(iface), 0)
}

func GetInterfaceSetup(out *SetupPacket, iface uint8) {
	standardSetup(out, RequestDirectionDeviceToHost, RequestRecipientInterface,
		RequestGetInterface, 0, uint16(iface), 1)
}
