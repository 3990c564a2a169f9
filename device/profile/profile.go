package profile

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/device/class/cdc"
	"github.com/ardnew/usbctrl/device/class/hid"
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/pkg"
)

//go:embed profiles/*.yaml
var builtinFS embed.FS

// Profile is the YAML description of a device.
type Profile struct {
	Name           string          `yaml:"name"`
	Device         DeviceSpec      `yaml:"device"`
	Strings        StringSpec      `yaml:"strings"`
	Configurations []Configuration `yaml:"configurations"`
}

// DeviceSpec holds the device descriptor fields.
type DeviceSpec struct {
	USBVersion     uint16 `yaml:"usb"`
	VendorID       uint16 `yaml:"vendor"`
	ProductID      uint16 `yaml:"product"`
	Release        uint16 `yaml:"release"`
	Class          string `yaml:"class"`
	SubClass       uint8  `yaml:"subclass"`
	Protocol       uint8  `yaml:"protocol"`
	MaxPacketSize0 uint8  `yaml:"max_packet_size0"`
	SelfPowered    bool   `yaml:"self_powered"`
}

// StringSpec holds the device-level strings.
type StringSpec struct {
	Manufacturer string `yaml:"manufacturer"`
	Product      string `yaml:"product"`
	Serial       string `yaml:"serial"`
}

// Configuration describes one configuration.
type Configuration struct {
	Value        uint8       `yaml:"value"`
	MaxPowerMA   int         `yaml:"max_power_ma"`
	RemoteWakeup bool        `yaml:"remote_wakeup"`
	Interfaces   []Interface `yaml:"interfaces"`
}

// Interface describes one interface and its endpoints.
type Interface struct {
	Class      string     `yaml:"class"`
	SubClass   uint8      `yaml:"subclass"`
	Protocol   uint8      `yaml:"protocol"`
	Alternates int        `yaml:"alternates"` // Extra alternate settings beyond 0
	HID        *HIDSpec   `yaml:"hid"`
	ACM        *ACMSpec   `yaml:"acm"`
	Endpoints  []Endpoint `yaml:"endpoints"`
}

// HIDSpec selects the HID report descriptor of a HID interface.
type HIDSpec struct {
	Report string `yaml:"report"` // "keyboard"
}

// ACMSpec declares a CDC-ACM function. It expands into the communications
// interface and its data interface; the interface entry's class and
// endpoints are ignored.
type ACMSpec struct {
	Notify  uint8 `yaml:"notify"`   // Interrupt IN endpoint
	DataIn  uint8 `yaml:"data_in"`  // Bulk IN endpoint
	DataOut uint8 `yaml:"data_out"` // Bulk OUT endpoint
}

// Endpoint describes one endpoint.
type Endpoint struct {
	Address       uint8  `yaml:"address"`
	Type          string `yaml:"type"`
	MaxPacketSize uint16 `yaml:"max_packet_size"`
	Interval      uint8  `yaml:"interval"`
}

// Device is a descriptor table together with the class that serves it.
type Device struct {
	Descriptors *device.Descriptors
	Class       device.Class

	// HID is the HID class when the profile declares a HID interface.
	HID *hid.HID

	// ACM is the CDC-ACM class when the profile declares an ACM function.
	ACM *cdc.ACM
}

// NewControl creates a control pipe for the device on h.
func (d *Device) NewControl(h hal.EndpointHAL, hooks device.Hooks, observer device.Observer) *device.Control {
	return device.NewControl(h, d.Class, device.ControlConfig{
		PacketSize: d.Descriptors.MaxPacketSize0(),
		Device:     d.Descriptors.NewDeviceContext(),
		Hooks:      hooks,
		Observer:   observer,
	})
}

// Parse parses a profile from YAML bytes and applies defaults.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	p.applyDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads and parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pkg.LogDebug(pkg.ComponentProfile, "profile loaded",
		"path", path,
		"name", p.Name)
	return p, nil
}

// Builtin returns a bundled profile by name.
func Builtin(name string) (*Profile, error) {
	data, err := builtinFS.ReadFile("profiles/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("builtin profile %q: %w", name, pkg.ErrInvalidParameter)
	}
	return Parse(data)
}

// BuiltinNames returns the names of the bundled profiles.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("profiles")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

func (p *Profile) applyDefaults() {
	if p.Device.USBVersion == 0 {
		p.Device.USBVersion = 0x0200
	}
	if p.Device.MaxPacketSize0 == 0 {
		p.Device.MaxPacketSize0 = device.DefaultMaxPacketSize0
	}
	for ci := range p.Configurations {
		c := &p.Configurations[ci]
		if c.Value == 0 {
			c.Value = uint8(ci + 1)
		}
		if c.MaxPowerMA == 0 {
			c.MaxPowerMA = 100
		}
		for ii := range c.Interfaces {
			for ei := range c.Interfaces[ii].Endpoints {
				ep := &c.Interfaces[ii].Endpoints[ei]
				if ep.Type == "" {
					ep.Type = "interrupt"
				}
				if ep.MaxPacketSize == 0 {
					ep.MaxPacketSize = 8
				}
			}
		}
	}
}

func (p *Profile) validate() error {
	if len(p.Configurations) == 0 {
		return fmt.Errorf("profile %q has no configurations: %w", p.Name, pkg.ErrInvalidParameter)
	}
	if len(p.Configurations) > device.MaxConfigurations {
		return fmt.Errorf("profile %q has %d configurations: %w",
			p.Name, len(p.Configurations), pkg.ErrNoMemory)
	}
	for ci, c := range p.Configurations {
		if int(c.Value) != ci+1 {
			return fmt.Errorf("configuration %d has value %d, want %d: %w",
				ci, c.Value, ci+1, pkg.ErrInvalidParameter)
		}
		if c.MaxPowerMA < 0 || c.MaxPowerMA > 500 {
			return fmt.Errorf("configuration %d max power %dmA: %w",
				c.Value, c.MaxPowerMA, pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// Build constructs the descriptor table and class described by the profile.
func (p *Profile) Build() (*Device, error) {
	class, err := ParseClass(p.Device.Class)
	if err != nil {
		return nil, err
	}

	b := device.NewDeviceBuilder().
		WithDescriptor(&device.DeviceDescriptor{
			USBVersion:     p.Device.USBVersion,
			DeviceClass:    class,
			DeviceSubClass: p.Device.SubClass,
			DeviceProtocol: p.Device.Protocol,
			VendorID:       p.Device.VendorID,
			ProductID:      p.Device.ProductID,
			DeviceVersion:  p.Device.Release,
		}).
		WithMaxPacketSize0(p.Device.MaxPacketSize0).
		WithStrings(p.Strings.Manufacturer, p.Strings.Product, p.Strings.Serial).
		SelfPowered(p.Device.SelfPowered)

	var (
		hidClass *hid.HID
		acmClass *cdc.ACM
	)

	for _, c := range p.Configurations {
		b.AddConfiguration(c.Value)
		var number uint8
		for _, iface := range c.Interfaces {
			if iface.HID != nil || iface.ACM != nil {
				if hidClass != nil || acmClass != nil {
					return nil, fmt.Errorf("interface %d: only one class function is supported: %w",
						number, pkg.ErrInvalidParameter)
				}
			}

			if iface.ACM != nil {
				acmClass = cdc.NewACM(number)
				acmClass.ConfigureDevice(b, iface.ACM.Notify, iface.ACM.DataIn, iface.ACM.DataOut)
				number += 2
				continue
			}

			ifaceClass, err := ParseClass(iface.Class)
			if err != nil {
				return nil, err
			}

			if iface.HID != nil {
				report, err := reportDescriptor(iface.HID.Report)
				if err != nil {
					return nil, err
				}
				hidClass = hid.New(number, report)
				b.AddInterface(ifaceClass, iface.SubClass, iface.Protocol).
					WithClassDescriptors(hidClass.ClassDescriptor())
			} else {
				b.AddInterface(ifaceClass, iface.SubClass, iface.Protocol)
			}

			for _, ep := range iface.Endpoints {
				transferType, err := device.ParseTransferType(ep.Type)
				if err != nil {
					return nil, err
				}
				b.AddEndpoint(ep.Address, transferType, ep.MaxPacketSize, ep.Interval)
			}
			for alt := 0; alt < iface.Alternates; alt++ {
				b.AddAlternate()
			}
			number++
		}
	}

	desc, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build profile %q: %w", p.Name, err)
	}

	for ci, c := range p.Configurations {
		config := desc.Configuration(uint8(ci))
		config.MaxPower = uint8(c.MaxPowerMA / 2)
		config.SetRemoteWakeup(c.RemoteWakeup)
	}

	d := &Device{Descriptors: desc, HID: hidClass, ACM: acmClass}
	switch {
	case hidClass != nil:
		d.Class = hidClass.Attach(desc)
	case acmClass != nil:
		d.Class = acmClass.Attach(desc)
	default:
		d.Class = device.NewBaseClass(desc)
	}

	pkg.LogDebug(pkg.ComponentProfile, "profile built",
		"name", p.Name,
		"configurations", desc.NumConfigurations(),
		"endpoints", desc.TotalEndpoints(),
		"hid", hidClass != nil,
		"acm", acmClass != nil)

	return d, nil
}

// ParseClass converts a class name or number to a USB class code.
// The empty string selects the per-interface class code.
func ParseClass(name string) (uint8, error) {
	switch strings.ToLower(name) {
	case "", "none", "interface":
		return device.ClassPerInterface, nil
	case "cdc":
		return device.ClassCDC, nil
	case "hid":
		return device.ClassHID, nil
	case "msc", "mass-storage":
		return device.ClassMassStorage, nil
	case "misc":
		return device.ClassMisc, nil
	case "vendor":
		return device.ClassVendor, nil
	}
	v, err := strconv.ParseUint(name, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("class %q: %w", name, pkg.ErrInvalidParameter)
	}
	return uint8(v), nil
}

func reportDescriptor(name string) ([]byte, error) {
	switch strings.ToLower(name) {
	case "", "keyboard":
		return hid.KeyboardReportDescriptor, nil
	default:
		return nil, fmt.Errorf("hid report %q: %w", name, pkg.ErrInvalidParameter)
	}
}
