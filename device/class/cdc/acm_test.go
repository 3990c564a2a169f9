package cdc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/device/hal/sim"
	"github.com/ardnew/usbctrl/pkg"
)

type fixture struct {
	acm  *ACM
	desc *device.Descriptors
	ctrl *device.Control
	host *sim.Host
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	acm := NewACM(0)
	builder := device.NewDeviceBuilder().
		WithVendorProduct(0x1209, 0x0003).
		WithMaxPacketSize0(8).
		AddConfiguration(1)
	desc, err := acm.ConfigureDevice(builder, 1, 2, 2).Build()
	require.NoError(t, err)

	h := sim.New()
	ctrl := device.NewControl(h, acm.Attach(desc), device.ControlConfig{
		PacketSize: desc.MaxPacketSize0(),
		Device:     desc.NewDeviceContext(),
	})
	ctrl.Reset()
	return &fixture{
		acm:  acm,
		desc: desc,
		ctrl: ctrl,
		host: sim.NewHost(h, ctrl, desc.MaxPacketSize0()),
	}
}

func classSetup(in bool, request uint8, value, index, length uint16) []byte {
	dir := uint8(device.RequestDirectionHostToDevice)
	if in {
		dir = device.RequestDirectionDeviceToHost
	}
	s := device.SetupPacket{
		RequestType: dir | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      length,
	}
	raw := make([]byte, device.SetupPacketSize)
	s.MarshalTo(raw)
	return raw
}

func TestLineCodingRoundTrip(t *testing.T) {
	f := newFixture(t)

	var changes []LineCoding
	f.acm.SetOnLineCodingChange(func(lc *LineCoding) { changes = append(changes, *lc) })

	data, err := f.host.ControlRead(classSetup(true, RequestGetLineCoding, 0, 0, LineCodingSize))
	require.NoError(t, err)
	var got LineCoding
	require.True(t, ParseLineCoding(data, &got))
	assert.Equal(t, DefaultLineCoding, got)

	want := LineCoding{DTERate: 9600, CharFormat: StopBits2, ParityType: ParityEven, DataBits: 7}
	buf := make([]byte, LineCodingSize)
	want.MarshalTo(buf)
	require.NoError(t, f.host.ControlWrite(classSetup(false, RequestSetLineCoding, 0, 0, LineCodingSize), buf))
	assert.Equal(t, []int{7}, f.host.Packets())
	assert.Equal(t, want, f.acm.LineCoding())
	assert.Equal(t, []LineCoding{want}, changes)

	data, err = f.host.ControlRead(classSetup(true, RequestGetLineCoding, 0, 0, LineCodingSize))
	require.NoError(t, err)
	assert.Equal(t, buf, data)
}

func TestSetLineCodingWrongLength(t *testing.T) {
	f := newFixture(t)

	err := f.host.ControlWrite(classSetup(false, RequestSetLineCoding, 0, 0, 4), []byte{1, 2, 3, 4})
	assert.ErrorIs(t, err, pkg.ErrStall)
	assert.Equal(t, DefaultLineCoding, f.acm.LineCoding())
}

func TestSetLineCodingShortPacketIgnored(t *testing.T) {
	f := newFixture(t)

	first := LineCoding{DTERate: 9600, CharFormat: StopBits2, ParityType: ParityEven, DataBits: 7}
	buf := make([]byte, LineCodingSize)
	first.MarshalTo(buf)
	require.NoError(t, f.host.ControlWrite(classSetup(false, RequestSetLineCoding, 0, 0, LineCodingSize), buf))
	require.Equal(t, first, f.acm.LineCoding())

	var changes int
	f.acm.SetOnLineCodingChange(func(*LineCoding) { changes++ })

	// The host announces 7 bytes but sends only the rate. Bytes left over
	// from the previous transfer must not complete the coding.
	rate := []byte{0x00, 0xC2, 0x01, 0x00}
	require.NoError(t, f.host.ControlWrite(classSetup(false, RequestSetLineCoding, 0, 0, LineCodingSize), rate))
	assert.Equal(t, []int{4}, f.host.Packets())
	assert.Equal(t, first, f.acm.LineCoding())
	assert.Zero(t, changes)
}

func TestUnattachedACM(t *testing.T) {
	acm := NewACM(0)
	assert.Equal(t, device.ResultUnsupported, acm.InterfaceSetting(1, 0, 0))
	assert.Nil(t, acm.DeviceDescriptor(&device.SetupPacket{}))
	assert.Nil(t, acm.ConfigDescriptor(&device.SetupPacket{}))
	assert.Nil(t, acm.StringDescriptor(&device.SetupPacket{}))
}

func TestControlLineStateAndBreak(t *testing.T) {
	f := newFixture(t)

	var lines [][2]bool
	f.acm.SetOnControlStateChange(func(dtr, rts bool) { lines = append(lines, [2]bool{dtr, rts}) })
	var breaks []uint16
	f.acm.SetOnBreak(func(millis uint16) { breaks = append(breaks, millis) })

	require.NoError(t, f.host.NoData(classSetup(false, RequestSetControlLineState, ControlLineDTR|ControlLineRTS, 0, 0)))
	assert.True(t, f.acm.DTR())
	assert.True(t, f.acm.RTS())

	require.NoError(t, f.host.NoData(classSetup(false, RequestSetControlLineState, ControlLineDTR, 0, 0)))
	assert.True(t, f.acm.DTR())
	assert.False(t, f.acm.RTS())
	assert.Equal(t, [][2]bool{{true, true}, {true, false}}, lines)

	require.NoError(t, f.host.NoData(classSetup(false, RequestSendBreak, 250, 0, 0)))
	assert.Equal(t, []uint16{250}, breaks)
}

func TestRequestsToDataInterfaceRejected(t *testing.T) {
	f := newFixture(t)

	err := f.host.NoData(classSetup(false, RequestSetControlLineState, ControlLineDTR, 1, 0))
	assert.ErrorIs(t, err, pkg.ErrStall)
	assert.False(t, f.acm.DTR())

	_, err = f.host.ControlRead(classSetup(true, RequestGetLineCoding, 0, 1, LineCodingSize))
	assert.ErrorIs(t, err, pkg.ErrStall)

	err = f.host.NoData(classSetup(false, 0x7F, 0, 0, 0))
	assert.ErrorIs(t, err, pkg.ErrStall)
}

func TestConfigureDevice(t *testing.T) {
	f := newFixture(t)

	config := f.desc.ConfigurationByValue(1)
	require.NotNil(t, config)
	require.Len(t, config.Interfaces, 2)

	comm := config.Interfaces[0]
	assert.Equal(t, uint8(ClassCDC), comm.Class)
	assert.Equal(t, uint8(SubclassACM), comm.SubClass)
	assert.Equal(t, f.acm.FunctionalDescriptors(), comm.ClassDescriptors)
	require.Len(t, comm.Endpoints, 1)
	assert.Equal(t, uint8(0x81), comm.Endpoints[0].EndpointAddress)

	data := config.Interfaces[1]
	assert.Equal(t, uint8(1), data.Number)
	assert.Equal(t, uint8(ClassCDCData), data.Class)
	require.Len(t, data.Endpoints, 2)
	assert.Equal(t, uint8(0x82), data.Endpoints[0].EndpointAddress)
	assert.Equal(t, uint8(0x02), data.Endpoints[1].EndpointAddress)

	assert.Equal(t, uint8(3), f.desc.TotalEndpoints())
}

func TestFunctionalDescriptors(t *testing.T) {
	acm := NewACM(2)
	assert.Equal(t, uint8(2), acm.ControlInterface())

	fd := acm.FunctionalDescriptors()
	assert.Equal(t, []byte{
		5, DescriptorTypeCSInterface, SubtypeHeader, 0x10, 0x01,
		5, DescriptorTypeCSInterface, SubtypeCallManagement, 0, 3,
		4, DescriptorTypeCSInterface, SubtypeACM, ACMCapLineCoding | ACMCapSendBreak,
		5, DescriptorTypeCSInterface, SubtypeUnion, 2, 3,
	}, fd)
}

func TestSerialStateNotification(t *testing.T) {
	acm := NewACM(0)
	n := acm.SerialStateNotification(SerialStateRxCarrier | SerialStateTxCarrier)
	assert.Equal(t, []byte{0xA1, NotificationSerialState, 0, 0, 0, 0, 2, 0, 0x03, 0x00}, n)
}

func TestLineCodingString(t *testing.T) {
	tests := []struct {
		lc   LineCoding
		want string
	}{
		{DefaultLineCoding, "115200 8N1"},
		{LineCoding{DTERate: 9600, CharFormat: StopBits2, ParityType: ParityEven, DataBits: 7}, "9600 7E2"},
		{LineCoding{DTERate: 300, CharFormat: StopBits1_5, ParityType: ParitySpace, DataBits: 5}, "300 5S1.5"},
		{LineCoding{DTERate: 1, CharFormat: 9, ParityType: 9, DataBits: 8}, "1 8??"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.lc.String())
	}

	assert.False(t, ParseLineCoding([]byte{1, 2, 3}, &LineCoding{}))
	assert.Zero(t, (&LineCoding{}).MarshalTo(make([]byte, 6)))
}
