package device

import (
	"errors"

	"github.com/ardnew/usbctrl/pkg"
)

// Descriptors is the descriptor table of a device: its device descriptor,
// configuration trees, and string descriptors.
//
// It serves the GET_DESCRIPTOR producers of the standard class hooks and
// reports the totals the control pipe validates requests against.
type Descriptors struct {
	// Device descriptor
	Device DeviceDescriptor

	// Configurations - fixed-size array for zero allocation
	configurations     [MaxConfigurations]*Configuration
	configurationCount int

	// String descriptors - fixed-size array, each entry is a slice reference
	strings [MaxStrings][]byte

	// Serialization buffers
	deviceBuf [DeviceDescriptorSize]byte
	configBuf [MaxConfigurationSize]byte

	selfPowered bool
}

// NewDescriptors creates a descriptor table for the given device descriptor.
// A zero MaxPacketSize0 is replaced by DefaultMaxPacketSize0.
func NewDescriptors(desc *DeviceDescriptor) *Descriptors {
	d := &Descriptors{Device: *desc}
	d.Device.Length = DeviceDescriptorSize
	d.Device.DescriptorType = DescriptorTypeDevice
	if d.Device.MaxPacketSize0 == 0 {
		d.Device.MaxPacketSize0 = DefaultMaxPacketSize0
	}
	return d
}

// AddConfiguration adds a configuration to the table. Configuration values
// run 1..N in the order configurations are added, so SET_CONFIGURATION can
// select any of them by value.
func (d *Descriptors) AddConfiguration(config *Configuration) error {
	if d.configurationCount >= MaxConfigurations {
		return pkg.ErrNoMemory
	}
	if want := uint8(d.configurationCount + 1); config.Value != want {
		pkg.LogWarn(pkg.ComponentProfile, "configuration value out of sequence",
			"value", config.Value,
			"want", want)
		return pkg.ErrInvalidParameter
	}

	d.configurations[d.configurationCount] = config
	d.configurationCount++
	d.Device.NumConfigurations = uint8(d.configurationCount)

	pkg.LogDebug(pkg.ComponentProfile, "configuration added",
		"value", config.Value)

	return nil
}

// Configuration returns the configuration at the given descriptor index
// (wValue low byte of GET_DESCRIPTOR), or nil.
func (d *Descriptors) Configuration(index uint8) *Configuration {
	if int(index) >= d.configurationCount {
		return nil
	}
	return d.configurations[index]
}

// ConfigurationByValue returns the configuration selected by
// SET_CONFIGURATION value, or nil.
func (d *Descriptors) ConfigurationByValue(value uint8) *Configuration {
	for idx := 0; idx < d.configurationCount; idx++ {
		if d.configurations[idx].Value == value {
			return d.configurations[idx]
		}
	}
	return nil
}

// NumConfigurations returns the number of configurations.
func (d *Descriptors) NumConfigurations() uint8 {
	return uint8(d.configurationCount)
}

// TotalEndpoints returns the number of endpoint registers the device uses,
// EP0 included.
func (d *Descriptors) TotalEndpoints() uint8 {
	var highest uint8
	for idx := 0; idx < d.configurationCount; idx++ {
		if n := d.configurations[idx].MaxEndpointNumber(); n > highest {
			highest = n
		}
	}
	return highest + 1
}

// MaxPacketSize0 returns the endpoint-0 packet size.
func (d *Descriptors) MaxPacketSize0() int {
	return int(d.Device.MaxPacketSize0)
}

// SetSelfPowered records whether the device runs from its own supply.
func (d *Descriptors) SetSelfPowered(selfPowered bool) {
	d.selfPowered = selfPowered
}

// SetString stores an encoded string descriptor at index. data is kept by
// reference. It reports false when index is outside the table.
func (d *Descriptors) SetString(index uint8, data []byte) bool {
	if index >= MaxStrings {
		pkg.LogWarn(pkg.ComponentProfile, "string index out of range", "index", index)
		return false
	}
	d.strings[index] = data
	return true
}

// SetStringFrom encodes s as a string descriptor and stores it at index.
// Returns the number of bytes encoded, or 0 if nothing was stored.
func (d *Descriptors) SetStringFrom(index uint8, s string) int {
	var buf [255]byte
	n := StringDescriptorTo(buf[:], s)
	if n == 0 || !d.SetString(index, append([]byte(nil), buf[:n]...)) {
		return 0
	}
	return n
}

// SetLanguages encodes the supported language IDs at string index 0.
func (d *Descriptors) SetLanguages(langIDs ...uint16) int {
	buf := make([]byte, 2+2*len(langIDs))
	n := LanguageDescriptorTo(buf, langIDs...)
	if n == 0 || !d.SetString(0, buf[:n]) {
		return 0
	}
	return n
}

// String returns a string descriptor by index.
func (d *Descriptors) String(index uint8) []byte {
	if index >= MaxStrings {
		return nil
	}
	return d.strings[index]
}

// NewDeviceContext returns a device context seeded with the totals and power
// source of this table.
func (d *Descriptors) NewDeviceContext() DeviceContext {
	return DeviceContext{
		TotalEndpoints:      d.TotalEndpoints(),
		TotalConfigurations: d.NumConfigurations(),
		Features:            Features{SelfPowered: d.selfPowered},
	}
}

// InterfaceSetting reports whether the configuration selected by config
// declares the interface and alternate setting.
func (d *Descriptors) InterfaceSetting(config, iface, alt uint8) Result {
	c := d.ConfigurationByValue(config)
	if c == nil || !c.HasSetting(iface, alt) {
		return ResultUnsupported
	}
	return ResultSuccess
}

// DeviceDescriptor returns the device descriptor producer.
func (d *Descriptors) DeviceDescriptor(setup *SetupPacket) Producer {
	n := d.Device.MarshalTo(d.deviceBuf[:])
	return BytesProducer(d.deviceBuf[:n])
}

// ConfigDescriptor returns the producer for the configuration selected by the
// descriptor index, or nil if there is none.
func (d *Descriptors) ConfigDescriptor(setup *SetupPacket) Producer {
	config := d.Configuration(setup.DescriptorIndex())
	if config == nil {
		return nil
	}
	n := config.MarshalTo(d.configBuf[:])
	if n == 0 {
		pkg.LogWarn(pkg.ComponentStandard, "configuration descriptor too large",
			"value", config.Value)
		return nil
	}
	return BytesProducer(d.configBuf[:n])
}

// StringDescriptor returns the producer for the string selected by the
// descriptor index, or nil if it is not set.
func (d *Descriptors) StringDescriptor(setup *SetupPacket) Producer {
	data := d.String(setup.DescriptorIndex())
	if data == nil {
		return nil
	}
	return BytesProducer(data)
}

// DeviceBuilder provides a fluent API for building descriptor tables.
type DeviceBuilder struct {
	desc   *Descriptors
	config *Configuration
	errors []error
}

// NewDeviceBuilder creates a new device builder.
func NewDeviceBuilder() *DeviceBuilder {
	return &DeviceBuilder{}
}

// WithDescriptor sets the device descriptor.
func (b *DeviceBuilder) WithDescriptor(desc *DeviceDescriptor) *DeviceBuilder {
	b.desc = NewDescriptors(desc)
	return b
}

// WithVendorProduct sets vendor and product IDs.
func (b *DeviceBuilder) WithVendorProduct(vendorID, productID uint16) *DeviceBuilder {
	if b.desc == nil {
		b.desc = NewDescriptors(&DeviceDescriptor{USBVersion: 0x0200})
	}
	b.desc.Device.VendorID = vendorID
	b.desc.Device.ProductID = productID
	return b
}

// WithMaxPacketSize0 sets the endpoint-0 packet size.
func (b *DeviceBuilder) WithMaxPacketSize0(size uint8) *DeviceBuilder {
	if b.desc == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	switch size {
	case 8, 16, 32, 64:
		b.desc.Device.MaxPacketSize0 = size
	default:
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
	}
	return b
}

// WithStrings sets the manufacturer, product, and serial strings.
func (b *DeviceBuilder) WithStrings(manufacturer, product, serial string) *DeviceBuilder {
	if b.desc == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	b.desc.SetLanguages(LangIDUSEnglish)
	if manufacturer != "" {
		b.desc.Device.ManufacturerIndex = 1
		b.desc.SetStringFrom(1, manufacturer)
	}
	if product != "" {
		b.desc.Device.ProductIndex = 2
		b.desc.SetStringFrom(2, product)
	}
	if serial != "" {
		b.desc.Device.SerialNumberIndex = 3
		b.desc.SetStringFrom(3, serial)
	}
	return b
}

// SelfPowered marks the device and the current configuration self-powered.
func (b *DeviceBuilder) SelfPowered(selfPowered bool) *DeviceBuilder {
	if b.desc == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	b.desc.SetSelfPowered(selfPowered)
	if b.config != nil {
		b.config.SetSelfPowered(selfPowered)
	}
	return b
}

// AddConfiguration adds a new configuration.
func (b *DeviceBuilder) AddConfiguration(value uint8) *DeviceBuilder {
	if b.desc == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	b.config = NewConfiguration(value)
	b.config.SetSelfPowered(b.desc.selfPowered)
	if err := b.desc.AddConfiguration(b.config); err != nil {
		b.errors = append(b.errors, err)
	}
	return b
}

// AddInterface adds a new interface (alternate setting 0) to the current
// configuration.
func (b *DeviceBuilder) AddInterface(class, subClass, protocol uint8) *DeviceBuilder {
	if b.config == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	iface := Interface{
		Number:   uint8(b.config.NumInterfaces()),
		Class:    class,
		SubClass: subClass,
		Protocol: protocol,
	}
	if err := b.config.AddInterface(iface); err != nil {
		b.errors = append(b.errors, err)
	}
	return b
}

// AddAlternate adds another alternate setting of the most recent interface.
func (b *DeviceBuilder) AddAlternate() *DeviceBuilder {
	last := b.lastInterface()
	if last == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	iface := Interface{
		Number:           last.Number,
		AlternateSetting: last.AlternateSetting + 1,
		Class:            last.Class,
		SubClass:         last.SubClass,
		Protocol:         last.Protocol,
	}
	if err := b.config.AddInterface(iface); err != nil {
		b.errors = append(b.errors, err)
	}
	return b
}

// WithClassDescriptors attaches class-specific descriptors to the most
// recent interface.
func (b *DeviceBuilder) WithClassDescriptors(data []byte) *DeviceBuilder {
	last := b.lastInterface()
	if last == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	last.ClassDescriptors = data
	return b
}

// AddEndpoint adds an endpoint to the most recent interface.
func (b *DeviceBuilder) AddEndpoint(address, transferType uint8, maxPacketSize uint16, interval uint8) *DeviceBuilder {
	last := b.lastInterface()
	if last == nil {
		b.errors = append(b.errors, pkg.ErrInvalidParameter)
		return b
	}
	if address&0x0F == 0 || int(address&0x0F) >= MaxEndpoints {
		b.errors = append(b.errors, pkg.ErrInvalidEndpoint)
		return b
	}
	if len(last.Endpoints) >= MaxEndpointsPerInterface {
		b.errors = append(b.errors, pkg.ErrNoMemory)
		return b
	}
	last.Endpoints = append(last.Endpoints, NewEndpointDescriptor(address, transferType, maxPacketSize, interval))
	return b
}

func (b *DeviceBuilder) lastInterface() *Interface {
	if b.config == nil || len(b.config.Interfaces) == 0 {
		return nil
	}
	return &b.config.Interfaces[len(b.config.Interfaces)-1]
}

// Build returns the constructed descriptor table.
func (b *DeviceBuilder) Build() (*Descriptors, error) {
	if len(b.errors) > 0 {
		return nil, errors.Join(b.errors...)
	}
	if b.desc == nil {
		return nil, pkg.ErrInvalidParameter
	}
	return b.desc, nil
}
