package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/device/class/cdc"
	"github.com/ardnew/usbctrl/device/class/hid"
	"github.com/ardnew/usbctrl/device/hal"
	"github.com/ardnew/usbctrl/device/hal/sim"
	"github.com/ardnew/usbctrl/device/profile"
	"github.com/ardnew/usbctrl/pkg"
	"github.com/ardnew/usbctrl/pkg/trace"
	"github.com/ardnew/usbctrl/pkg/usbid"
)

type enumerateOptions struct {
	profilePath string
	builtin     string
	tracePath   string
	usbIDs      string
	address     uint8
}

func newEnumerateCommand() *cobra.Command {
	var opts enumerateOptions
	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "Enumerate a simulated device",
		Long:  `enumerate builds a device from a profile and runs the standard host enumeration sequence against it, printing each control transfer.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnumerate(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.profilePath, "profile", "", "Device profile YAML file")
	cmd.Flags().StringVar(&opts.builtin, "builtin", "keyboard", fmt.Sprintf("Bundled profile %v", profile.BuiltinNames()))
	cmd.Flags().StringVar(&opts.tracePath, "trace", "", "Write a CBOR token trace to this file")
	cmd.Flags().StringVar(&opts.usbIDs, "usb-ids", "", "usb.ids database for vendor and product names (default: system locations)")
	cmd.Flags().Uint8Var(&opts.address, "address", 5, "Address assigned with SET_ADDRESS")
	return cmd
}

func loadProfile(opts enumerateOptions) (*profile.Profile, error) {
	if opts.profilePath != "" {
		return profile.Load(opts.profilePath)
	}
	return profile.Builtin(opts.builtin)
}

func runEnumerate(w io.Writer, opts enumerateOptions) error {
	p, err := loadProfile(opts)
	if err != nil {
		return err
	}
	dev, err := p.Build()
	if err != nil {
		return err
	}

	var observer device.Observer
	if opts.tracePath != "" {
		rec, err := trace.NewFileRecorder(opts.tracePath)
		if err != nil {
			return fmt.Errorf("create trace: %w", err)
		}
		defer rec.Close()
		observer = rec
		fmt.Fprintf(w, "trace session %s -> %s\n", rec.Session(), opts.tracePath)
	}

	h := sim.New()
	hooks := device.Hooks{
		OnSetConfiguration: func(config uint8) {
			enableEndpoints(h, dev.Descriptors.ConfigurationByValue(config))
		},
	}
	ctrl := dev.NewControl(h, hooks, observer)
	ctrl.Reset()

	e := &enumerator{
		w:    w,
		hal:  h,
		ctrl: ctrl,
		dev:  dev,
		ids:  openIDs(opts.usbIDs),
	}
	return e.run(opts.address)
}

// enableEndpoints arms the endpoints of config the way a class driver does
// after SET_CONFIGURATION.
func enableEndpoints(h *sim.HAL, config *device.Configuration) {
	if config == nil {
		return
	}
	for _, iface := range config.Interfaces {
		for _, ep := range iface.Endpoints {
			h.EnableEndpoint(ep.EndpointAddress&0x0F, hal.StatusNAK, hal.StatusValid)
		}
	}
}

// openIDs loads the name database, or returns nil when none is available.
func openIDs(path string) *usbid.Database {
	var paths []string
	if path != "" {
		paths = append(paths, path)
	}
	db, err := usbid.Open(paths...)
	if err != nil {
		pkg.LogDebug(pkg.ComponentControl, "no usb id database",
			"error", err)
		return nil
	}
	return db
}

type enumerator struct {
	w    io.Writer
	hal  *sim.HAL
	ctrl *device.Control
	dev  *profile.Device
	host *sim.Host
	ids  *usbid.Database
}

func (e *enumerator) run(address uint8) error {
	var setup device.SetupPacket

	// The packet size is unknown until the first 8 bytes are read.
	e.host = sim.NewHost(e.hal, e.ctrl, 8)

	device.GetDescriptorSetup(&setup, device.DescriptorTypeDevice, 0, 8)
	head, err := e.read("GET_DESCRIPTOR device (8)", &setup)
	if err != nil {
		return err
	}
	if len(head) < 8 {
		return fmt.Errorf("short device descriptor: %w", pkg.ErrProtocol)
	}
	e.host = sim.NewHost(e.hal, e.ctrl, int(head[7]))

	device.GetSetAddressSetup(&setup, address)
	if err := e.noData("SET_ADDRESS", &setup); err != nil {
		return err
	}
	fmt.Fprintf(e.w, "  address now %d\n", e.hal.Address())

	device.GetDescriptorSetup(&setup, device.DescriptorTypeDevice, 0, device.DeviceDescriptorSize)
	data, err := e.read("GET_DESCRIPTOR device", &setup)
	if err != nil {
		return err
	}
	var devDesc device.DeviceDescriptor
	if err := device.ParseDeviceDescriptor(data, &devDesc); err != nil {
		return err
	}
	fmt.Fprintf(e.w, "  vid=%04x pid=%04x configurations=%d\n",
		devDesc.VendorID, devDesc.ProductID, devDesc.NumConfigurations)
	if e.ids != nil {
		if vendor, product := e.ids.Lookup(devDesc.VendorID, devDesc.ProductID); vendor != "" {
			fmt.Fprintf(e.w, "  vendor %q product %q\n", vendor, product)
		}
	}

	device.GetDescriptorSetup(&setup, device.DescriptorTypeConfiguration, 0, device.ConfigurationDescriptorSize)
	data, err = e.read("GET_DESCRIPTOR config (9)", &setup)
	if err != nil {
		return err
	}
	var cfgDesc device.ConfigurationDescriptor
	if err := device.ParseConfigurationDescriptor(data, &cfgDesc); err != nil {
		return err
	}

	device.GetDescriptorSetup(&setup, device.DescriptorTypeConfiguration, 0, cfgDesc.TotalLength)
	if _, err := e.read("GET_DESCRIPTOR config", &setup); err != nil {
		return err
	}

	device.GetDescriptorSetup(&setup, device.DescriptorTypeString, 0, 255)
	if _, err := e.read("GET_DESCRIPTOR string 0", &setup); err != nil {
		return err
	}
	for _, index := range []uint8{devDesc.ManufacturerIndex, devDesc.ProductIndex, devDesc.SerialNumberIndex} {
		if index == 0 {
			continue
		}
		device.GetDescriptorSetup(&setup, device.DescriptorTypeString, index, 255)
		data, err := e.read(fmt.Sprintf("GET_DESCRIPTOR string %d", index), &setup)
		if err != nil {
			return err
		}
		s, err := device.DecodeStringDescriptor(data)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.w, "  %q\n", s)
	}

	device.GetSetConfigurationSetup(&setup, cfgDesc.ConfigurationValue)
	if err := e.noData("SET_CONFIGURATION", &setup); err != nil {
		return err
	}

	device.GetConfigurationSetup(&setup)
	if _, err := e.read("GET_CONFIGURATION", &setup); err != nil {
		return err
	}

	device.GetStatusSetup(&setup, device.RequestRecipientDevice, 0)
	if _, err := e.read("GET_STATUS device", &setup); err != nil {
		return err
	}

	switch {
	case e.dev.HID != nil:
		return e.runHID()
	case e.dev.ACM != nil:
		return e.runACM()
	}
	return nil
}

func (e *enumerator) runHID() error {
	keyboard := e.dev.HID
	index := uint16(keyboard.Interface())
	setup := device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeStandard | device.RequestRecipientInterface,
		Request:     device.RequestGetDescriptor,
		Value:       uint16(hid.DescriptorTypeReport) << 8,
		Index:       index,
		Length:      uint16(len(keyboard.ReportDescriptor())),
	}
	if _, err := e.read("GET_DESCRIPTOR report", &setup); err != nil {
		return err
	}

	setup = device.SetupPacket{
		RequestType: device.RequestDirectionHostToDevice | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     hid.RequestSetIdle,
		Index:       index,
	}
	if err := e.noData("SET_IDLE", &setup); err != nil {
		return err
	}

	// GET_REPORT pauses until a report is queued.
	e.host.OnNAK = func() bool {
		if !e.ctrl.Paused() {
			return false
		}
		fmt.Fprintln(e.w, "  paused, queueing report")
		if err := keyboard.QueueKeyboardReport(&hid.KeyboardReport{}); err != nil {
			return false
		}
		return e.ctrl.Resume() == nil
	}
	defer func() { e.host.OnNAK = nil }()

	setup = device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     hid.RequestGetReport,
		Value:       uint16(hid.ReportTypeInput) << 8,
		Index:       index,
		Length:      hid.KeyboardReportSize,
	}
	_, err := e.read("GET_REPORT input", &setup)
	return err
}

func (e *enumerator) runACM() error {
	acm := e.dev.ACM
	index := uint16(acm.ControlInterface())

	coding := cdc.LineCoding{DTERate: 9600, DataBits: 8}
	var buf [cdc.LineCodingSize]byte
	coding.MarshalTo(buf[:])
	setup := device.SetupPacket{
		RequestType: device.RequestDirectionHostToDevice | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     cdc.RequestSetLineCoding,
		Index:       index,
		Length:      cdc.LineCodingSize,
	}
	if err := e.write("SET_LINE_CODING", &setup, buf[:]); err != nil {
		return err
	}

	setup = device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     cdc.RequestGetLineCoding,
		Index:       index,
		Length:      cdc.LineCodingSize,
	}
	data, err := e.read("GET_LINE_CODING", &setup)
	if err != nil {
		return err
	}
	if !cdc.ParseLineCoding(data, &coding) {
		return fmt.Errorf("short line coding: %w", pkg.ErrProtocol)
	}
	fmt.Fprintf(e.w, "  line coding %s\n", coding)

	setup = device.SetupPacket{
		RequestType: device.RequestDirectionHostToDevice | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     cdc.RequestSetControlLineState,
		Value:       cdc.ControlLineDTR | cdc.ControlLineRTS,
		Index:       index,
	}
	if err := e.noData("SET_CONTROL_LINE_STATE", &setup); err != nil {
		return err
	}
	fmt.Fprintf(e.w, "  dtr=%t rts=%t\n", acm.DTR(), acm.RTS())
	return nil
}

func (e *enumerator) read(name string, setup *device.SetupPacket) ([]byte, error) {
	var raw [device.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	data, err := e.host.ControlRead(raw[:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(e.w, "%-28s %-3d %v %s\n", name, len(data), e.host.Packets(), hex.EncodeToString(data))
	return data, nil
}

func (e *enumerator) write(name string, setup *device.SetupPacket, data []byte) error {
	var raw [device.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	if err := e.host.ControlWrite(raw[:], data); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(e.w, "%-28s %-3d %v %s\n", name, len(data), e.host.Packets(), hex.EncodeToString(data))
	return nil
}

func (e *enumerator) noData(name string, setup *device.SetupPacket) error {
	var raw [device.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	if err := e.host.NoData(raw[:]); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(e.w, "%-28s ok\n", name)
	return nil
}
