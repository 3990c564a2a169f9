package device

import (
	"github.com/ardnew/usbctrl/pkg"
)

// Fixed-size limits for configuration trees.
const (
	// MaxInterfacesPerConfiguration is the maximum number of interfaces per configuration.
	MaxInterfacesPerConfiguration = 8

	// MaxEndpointsPerInterface is the maximum number of endpoints per interface.
	MaxEndpointsPerInterface = 16

	// MaxAssociationsPerConfiguration is the maximum number of IADs per configuration.
	MaxAssociationsPerConfiguration = 4

	// MaxConfigurationSize bounds the serialized configuration descriptor.
	MaxConfigurationSize = 512
)

// Interface describes one interface (alternate setting) of a configuration.
type Interface struct {
	Number           uint8 // bInterfaceNumber
	AlternateSetting uint8 // bAlternateSetting
	Class            uint8 // Interface class
	SubClass         uint8 // Interface subclass
	Protocol         uint8 // Interface protocol
	StringIndex      uint8 // String descriptor index

	// ClassDescriptors are written between the interface descriptor and its
	// endpoint descriptors (for example a HID descriptor).
	ClassDescriptors []byte

	Endpoints []EndpointDescriptor
}

// Descriptor returns the interface descriptor.
func (i *Interface) Descriptor() *InterfaceDescriptor {
	return &InterfaceDescriptor{
		Length:            InterfaceDescriptorSize,
		DescriptorType:    DescriptorTypeInterface,
		InterfaceNumber:   i.Number,
		AlternateSetting:  i.AlternateSetting,
		NumEndpoints:      uint8(len(i.Endpoints)),
		InterfaceClass:    i.Class,
		InterfaceSubClass: i.SubClass,
		InterfaceProtocol: i.Protocol,
		InterfaceIndex:    i.StringIndex,
	}
}

// Configuration describes a device configuration and its interfaces.
type Configuration struct {
	Value        uint8 // Configuration value for SET_CONFIGURATION
	Attributes   uint8 // Configuration attributes (bus/self powered, remote wakeup)
	MaxPower     uint8 // Maximum power consumption (2mA units)
	StringIndex  uint8 // String descriptor index
	Interfaces   []Interface
	Associations []InterfaceAssociationDescriptor
}

// NewConfiguration creates a new bus-powered configuration drawing 100mA.
func NewConfiguration(value uint8) *Configuration {
	return &Configuration{
		Value:      value,
		Attributes: ConfigAttrBusPowered,
		MaxPower:   50,
	}
}

// AddInterface appends an interface. Interfaces sharing a number must be
// added as consecutive alternate settings.
func (c *Configuration) AddInterface(iface Interface) error {
	if len(c.Interfaces) >= MaxInterfacesPerConfiguration {
		return pkg.ErrNoMemory
	}
	if len(iface.Endpoints) > MaxEndpointsPerInterface {
		return pkg.ErrNoMemory
	}
	for _, existing := range c.Interfaces {
		if existing.Number == iface.Number && existing.AlternateSetting == iface.AlternateSetting {
			return pkg.ErrInvalidParameter
		}
	}
	c.Interfaces = append(c.Interfaces, iface)

	pkg.LogDebug(pkg.ComponentProfile, "interface added to configuration",
		"config", c.Value,
		"interface", iface.Number,
		"alt", iface.AlternateSetting)

	return nil
}

// AddAssociation adds an interface association (for composite devices).
func (c *Configuration) AddAssociation(assoc InterfaceAssociationDescriptor) error {
	if len(c.Associations) >= MaxAssociationsPerConfiguration {
		return pkg.ErrNoMemory
	}
	c.Associations = append(c.Associations, assoc)
	return nil
}

// NumInterfaces returns the number of distinct interface numbers.
func (c *Configuration) NumInterfaces() int {
	var seen [MaxInterfacesPerConfiguration]uint8
	count := 0
outer:
	for _, iface := range c.Interfaces {
		for _, n := range seen[:count] {
			if n == iface.Number {
				continue outer
			}
		}
		seen[count] = iface.Number
		count++
	}
	return count
}

// HasSetting returns true if the configuration declares the given interface
// and alternate setting.
func (c *Configuration) HasSetting(number, alt uint8) bool {
	for _, iface := range c.Interfaces {
		if iface.Number == number && iface.AlternateSetting == alt {
			return true
		}
	}
	return false
}

// MaxEndpointNumber returns the highest endpoint number used by any
// interface, or 0 if only EP0 is used.
func (c *Configuration) MaxEndpointNumber() uint8 {
	var highest uint8
	for _, iface := range c.Interfaces {
		for _, ep := range iface.Endpoints {
			if n := ep.EndpointAddress & 0x0F; n > highest {
				highest = n
			}
		}
	}
	return highest
}

// Descriptor returns the configuration descriptor header.
func (c *Configuration) Descriptor() *ConfigurationDescriptor {
	return &ConfigurationDescriptor{
		Length:             ConfigurationDescriptorSize,
		DescriptorType:     DescriptorTypeConfiguration,
		TotalLength:        c.totalLength(),
		NumInterfaces:      uint8(c.NumInterfaces()),
		ConfigurationValue: c.Value,
		ConfigurationIndex: c.StringIndex,
		Attributes:         c.Attributes,
		MaxPower:           c.MaxPower,
	}
}

// totalLength calculates the total configuration descriptor length.
func (c *Configuration) totalLength() uint16 {
	length := uint16(ConfigurationDescriptorSize)
	length += uint16(len(c.Associations)) * IADSize
	for _, iface := range c.Interfaces {
		length += InterfaceDescriptorSize
		length += uint16(len(iface.ClassDescriptors))
		length += uint16(len(iface.Endpoints)) * EndpointDescriptorSize
	}
	return length
}

// MarshalTo writes the full configuration descriptor including all
// sub-descriptors to buf. Returns the number of bytes written, or 0 if buf
// is too small.
func (c *Configuration) MarshalTo(buf []byte) int {
	if len(buf) < int(c.totalLength()) {
		return 0
	}

	offset := c.Descriptor().MarshalTo(buf)

	// Interface associations must precede the interfaces they group.
	for idx := range c.Associations {
		offset += c.Associations[idx].MarshalTo(buf[offset:])
	}

	for idx := range c.Interfaces {
		iface := &c.Interfaces[idx]
		offset += iface.Descriptor().MarshalTo(buf[offset:])
		offset += copy(buf[offset:], iface.ClassDescriptors)
		for epIdx := range iface.Endpoints {
			offset += iface.Endpoints[epIdx].MarshalTo(buf[offset:])
		}
	}

	return offset
}

// SetSelfPowered sets or clears the self-powered attribute.
func (c *Configuration) SetSelfPowered(selfPowered bool) {
	if selfPowered {
		c.Attributes |= ConfigAttrSelfPowered
	} else {
		c.Attributes &^= ConfigAttrSelfPowered
	}
}

// IsSelfPowered returns true if the configuration is self-powered.
func (c *Configuration) IsSelfPowered() bool {
	return c.Attributes&ConfigAttrSelfPowered != 0
}

// SetRemoteWakeup sets or clears the remote wakeup capability.
func (c *Configuration) SetRemoteWakeup(enabled bool) {
	if enabled {
		c.Attributes |= ConfigAttrRemoteWakeup
	} else {
		c.Attributes &^= ConfigAttrRemoteWakeup
	}
}

// SupportsRemoteWakeup returns true if remote wakeup is supported.
func (c *Configuration) SupportsRemoteWakeup() bool {
	return c.Attributes&ConfigAttrRemoteWakeup != 0
}
