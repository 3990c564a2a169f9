package device

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/ardnew/usbctrl/pkg"
)

// bDescriptorType codes served or embedded by the engine (USB 2.0 Table 9-5
// plus the class-specific codes the bundled classes emit).
const (
	DescriptorTypeDevice               = 0x01
	DescriptorTypeConfiguration        = 0x02
	DescriptorTypeString               = 0x03
	DescriptorTypeInterface            = 0x04
	DescriptorTypeEndpoint             = 0x05
	DescriptorTypeDeviceQualifier      = 0x06
	DescriptorTypeInterfaceAssociation = 0x0B
	DescriptorTypeCSInterface          = 0x24
)

// Class codes used by the bundled profiles and classes.
const (
	ClassPerInterface = 0x00
	ClassCDC          = 0x02
	ClassHID          = 0x03
	ClassMassStorage  = 0x08
	ClassMisc         = 0xEF
	ClassVendor       = 0xFF
)

// bmAttributes bits of a configuration descriptor. Bit 7 must always be set.
const (
	ConfigAttrBusPowered   = 0x80
	ConfigAttrSelfPowered  = 0x40
	ConfigAttrRemoteWakeup = 0x20
)

// Fixed descriptor lengths.
const (
	DeviceDescriptorSize        = 18
	ConfigurationDescriptorSize = 9
	InterfaceDescriptorSize     = 9
	EndpointDescriptorSize      = 7
	IADSize                     = 8
)

// LangIDUSEnglish is the LANGID most hosts ask for first.
const LangIDUSEnglish = 0x0409

// A string descriptor carries at most this many UTF-16 code units after its
// two header bytes, since bLength is a single byte.
const maxStringUnits = (255 - 2) / 2

// putHeader writes bLength and bDescriptorType. It reports false, writing
// nothing, when buf cannot hold size bytes.
func putHeader(buf []byte, size int, typ uint8) bool {
	if len(buf) < size {
		return false
	}
	buf[0], buf[1] = uint8(size), typ
	return true
}

// checkHeader verifies that data holds at least size bytes of a typ
// descriptor.
func checkHeader(data []byte, size int, typ uint8) error {
	if len(data) < size {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != typ {
		return pkg.ErrDescriptorTypeMismatch
	}
	return nil
}

// DeviceDescriptor is the 18-byte descriptor returned for GET_DESCRIPTOR
// device. Length and DescriptorType are filled in by parsing; MarshalTo always
// writes the fixed values.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	USBVersion        uint16 // bcdUSB
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16 // bcdDevice
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// MarshalTo writes d to buf and returns DeviceDescriptorSize, or 0 if buf is
// too small.
func (d *DeviceDescriptor) MarshalTo(buf []byte) int {
	if !putHeader(buf, DeviceDescriptorSize, DescriptorTypeDevice) {
		return 0
	}
	le := binary.LittleEndian
	le.PutUint16(buf[2:], d.USBVersion)
	buf[4], buf[5], buf[6], buf[7] = d.DeviceClass, d.DeviceSubClass, d.DeviceProtocol, d.MaxPacketSize0
	le.PutUint16(buf[8:], d.VendorID)
	le.PutUint16(buf[10:], d.ProductID)
	le.PutUint16(buf[12:], d.DeviceVersion)
	buf[14], buf[15], buf[16] = d.ManufacturerIndex, d.ProductIndex, d.SerialNumberIndex
	buf[17] = d.NumConfigurations
	return DeviceDescriptorSize
}

// ParseDeviceDescriptor decodes a device descriptor into out.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if err := checkHeader(data, DeviceDescriptorSize, DescriptorTypeDevice); err != nil {
		return err
	}
	le := binary.LittleEndian
	*out = DeviceDescriptor{
		Length:            data[0],
		DescriptorType:    data[1],
		USBVersion:        le.Uint16(data[2:]),
		DeviceClass:       data[4],
		DeviceSubClass:    data[5],
		DeviceProtocol:    data[6],
		MaxPacketSize0:    data[7],
		VendorID:          le.Uint16(data[8:]),
		ProductID:         le.Uint16(data[10:]),
		DeviceVersion:     le.Uint16(data[12:]),
		ManufacturerIndex: data[14],
		ProductIndex:      data[15],
		SerialNumberIndex: data[16],
		NumConfigurations: data[17],
	}
	return nil
}

// ConfigurationDescriptor is the 9-byte header of a configuration bundle.
// TotalLength covers the header and every descriptor that follows it.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8 // selected by SET_CONFIGURATION
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8 // 2 mA units
}

func (c *ConfigurationDescriptor) MarshalTo(buf []byte) int {
	if !putHeader(buf, ConfigurationDescriptorSize, DescriptorTypeConfiguration) {
		return 0
	}
	binary.LittleEndian.PutUint16(buf[2:], c.TotalLength)
	buf[4], buf[5], buf[6] = c.NumInterfaces, c.ConfigurationValue, c.ConfigurationIndex
	buf[7], buf[8] = c.Attributes, c.MaxPower
	return ConfigurationDescriptorSize
}

// ParseConfigurationDescriptor decodes only the 9-byte header; the rest of
// the bundle is left to the caller.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) error {
	if err := checkHeader(data, ConfigurationDescriptorSize, DescriptorTypeConfiguration); err != nil {
		return err
	}
	*out = ConfigurationDescriptor{
		Length:             data[0],
		DescriptorType:     data[1],
		TotalLength:        binary.LittleEndian.Uint16(data[2:]),
		NumInterfaces:      data[4],
		ConfigurationValue: data[5],
		ConfigurationIndex: data[6],
		Attributes:         data[7],
		MaxPower:           data[8],
	}
	return nil
}

// InterfaceDescriptor describes one alternate setting of an interface.
// NumEndpoints excludes endpoint 0.
type InterfaceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	InterfaceNumber   uint8
	AlternateSetting  uint8
	NumEndpoints      uint8
	InterfaceClass    uint8
	InterfaceSubClass uint8
	InterfaceProtocol uint8
	InterfaceIndex    uint8
}

func (i *InterfaceDescriptor) MarshalTo(buf []byte) int {
	if !putHeader(buf, InterfaceDescriptorSize, DescriptorTypeInterface) {
		return 0
	}
	copy(buf[2:], []byte{
		i.InterfaceNumber, i.AlternateSetting, i.NumEndpoints,
		i.InterfaceClass, i.InterfaceSubClass, i.InterfaceProtocol,
		i.InterfaceIndex,
	})
	return InterfaceDescriptorSize
}

// EndpointDescriptor describes a non-zero endpoint. Bit 7 of EndpointAddress
// is the IN direction.
type EndpointDescriptor struct {
	Length          uint8
	DescriptorType  uint8
	EndpointAddress uint8
	Attributes      uint8 // transfer type in bits 1..0
	MaxPacketSize   uint16
	Interval        uint8
}

func (e *EndpointDescriptor) MarshalTo(buf []byte) int {
	if !putHeader(buf, EndpointDescriptorSize, DescriptorTypeEndpoint) {
		return 0
	}
	buf[2], buf[3] = e.EndpointAddress, e.Attributes
	binary.LittleEndian.PutUint16(buf[4:], e.MaxPacketSize)
	buf[6] = e.Interval
	return EndpointDescriptorSize
}

// InterfaceAssociationDescriptor groups the contiguous interfaces of one
// function, such as the control and data interfaces of CDC-ACM.
type InterfaceAssociationDescriptor struct {
	Length           uint8
	DescriptorType   uint8
	FirstInterface   uint8
	InterfaceCount   uint8
	FunctionClass    uint8
	FunctionSubClass uint8
	FunctionProtocol uint8
	FunctionIndex    uint8
}

func (a *InterfaceAssociationDescriptor) MarshalTo(buf []byte) int {
	if !putHeader(buf, IADSize, DescriptorTypeInterfaceAssociation) {
		return 0
	}
	copy(buf[2:], []byte{
		a.FirstInterface, a.InterfaceCount,
		a.FunctionClass, a.FunctionSubClass, a.FunctionProtocol,
		a.FunctionIndex,
	})
	return IADSize
}

// StringDescriptorTo encodes s as a UTF-16LE string descriptor in buf and
// returns its length, or 0 if buf is too small. Text beyond what bLength can
// describe is dropped without splitting a surrogate pair.
func StringDescriptorTo(buf []byte, s string) int {
	units := utf16.Encode([]rune(s))
	if len(units) > maxStringUnits {
		units = units[:maxStringUnits]
		// A high surrogate left at the end has lost its low half.
		if last := units[len(units)-1]; last >= 0xD800 && last < 0xDC00 {
			units = units[:len(units)-1]
		}
	}
	return putUnits(buf, units)
}

// LanguageDescriptorTo encodes string descriptor 0, the LANGID table, in buf.
func LanguageDescriptorTo(buf []byte, langIDs ...uint16) int {
	return putUnits(buf, langIDs)
}

func putUnits(buf []byte, units []uint16) int {
	size := 2 + 2*len(units)
	if !putHeader(buf, size, DescriptorTypeString) {
		return 0
	}
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2+2*i:], u)
	}
	return size
}

// DecodeStringDescriptor returns the text of a string descriptor. bLength
// must be covered by data.
func DecodeStringDescriptor(data []byte) (string, error) {
	if len(data) < 2 || data[0] < 2 || int(data[0]) > len(data) {
		return "", pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeString {
		return "", pkg.ErrDescriptorTypeMismatch
	}
	units := make([]uint16, (int(data[0])-2)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(data[2+2*i:])
	}
	return string(utf16.Decode(units)), nil
}
