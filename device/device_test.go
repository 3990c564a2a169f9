package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/pkg"
)

func TestDeviceBuilder(t *testing.T) {
	desc, err := NewDeviceBuilder().
		WithVendorProduct(0x1234, 0x5678).
		WithMaxPacketSize0(16).
		WithStrings("Maker", "Gadget", "0001").
		AddConfiguration(1).
		AddInterface(ClassVendor, 1, 2).
		AddEndpoint(0x83, EndpointTypeInterrupt, 8, 10).
		AddInterface(ClassVendor, 0, 0).
		AddEndpoint(0x01, EndpointTypeBulk, 64, 0).
		Build()
	require.NoError(t, err)

	assert.Equal(t, uint16(0x1234), desc.Device.VendorID)
	assert.Equal(t, uint16(0x5678), desc.Device.ProductID)
	assert.Equal(t, 16, desc.MaxPacketSize0())
	assert.Equal(t, uint8(1), desc.NumConfigurations())
	assert.Equal(t, uint8(1), desc.Device.NumConfigurations)
	assert.Equal(t, uint8(4), desc.TotalEndpoints())

	config := desc.ConfigurationByValue(1)
	require.NotNil(t, config)
	assert.Equal(t, 2, config.NumInterfaces())
	assert.True(t, config.HasSetting(1, 0))
	assert.False(t, config.HasSetting(1, 1))

	assert.Equal(t, uint8(3), desc.Device.SerialNumberIndex)
	s, err := DecodeStringDescriptor(desc.String(3))
	require.NoError(t, err)
	assert.Equal(t, "0001", s)
}

func TestDeviceBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *DeviceBuilder
		wantErr error
	}{
		{
			name:    "no descriptor",
			build:   func() *DeviceBuilder { return NewDeviceBuilder().AddConfiguration(1) },
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "bad packet size",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).WithMaxPacketSize0(12)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "interface before configuration",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).AddInterface(ClassVendor, 0, 0)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "duplicate configuration value",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).AddConfiguration(1).AddConfiguration(1)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "configuration value zero",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).AddConfiguration(0)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "configuration value out of sequence",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).AddConfiguration(3)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "second configuration skips a value",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).AddConfiguration(1).AddConfiguration(3)
			},
			wantErr: pkg.ErrInvalidParameter,
		},
		{
			name: "endpoint zero",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).
					AddConfiguration(1).AddInterface(ClassVendor, 0, 0).
					AddEndpoint(0x80, EndpointTypeBulk, 64, 0)
			},
			wantErr: pkg.ErrInvalidEndpoint,
		},
		{
			name: "endpoint beyond register file",
			build: func() *DeviceBuilder {
				return NewDeviceBuilder().WithVendorProduct(1, 2).
					AddConfiguration(1).AddInterface(ClassVendor, 0, 0).
					AddEndpoint(0x88, EndpointTypeBulk, 64, 0)
			},
			wantErr: pkg.ErrInvalidEndpoint,
		},
		{
			name: "too many configurations",
			build: func() *DeviceBuilder {
				b := NewDeviceBuilder().WithVendorProduct(1, 2)
				for value := uint8(1); value <= MaxConfigurations+1; value++ {
					b.AddConfiguration(value)
				}
				return b
			},
			wantErr: pkg.ErrNoMemory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc, err := tt.build().Build()
			assert.Nil(t, desc)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDescriptorsSelfPowered(t *testing.T) {
	desc, err := NewDeviceBuilder().
		WithVendorProduct(1, 2).
		SelfPowered(true).
		AddConfiguration(1).
		Build()
	require.NoError(t, err)

	assert.True(t, desc.Configuration(0).IsSelfPowered())
	ctx := desc.NewDeviceContext()
	assert.True(t, ctx.Features.SelfPowered)
	assert.Equal(t, uint8(1), ctx.TotalEndpoints, "EP0 only")
	assert.Equal(t, uint8(1), ctx.TotalConfigurations)
}

func TestDescriptorProducers(t *testing.T) {
	desc := buildTestDescriptors(t, 64, false)

	var s SetupPacket
	GetDescriptorSetup(&s, DescriptorTypeDevice, 0, 18)
	p := desc.DeviceDescriptor(&s)
	require.NotNil(t, p)
	assert.Equal(t, DeviceDescriptorSize, p.Len())

	GetDescriptorSetup(&s, DescriptorTypeConfiguration, 0, 255)
	p = desc.ConfigDescriptor(&s)
	require.NotNil(t, p)
	assert.Equal(t, 41, p.Len())

	GetDescriptorSetup(&s, DescriptorTypeConfiguration, 1, 255)
	assert.Nil(t, desc.ConfigDescriptor(&s))

	GetDescriptorSetup(&s, DescriptorTypeString, 1, 255)
	p = desc.StringDescriptor(&s)
	require.NotNil(t, p)
	assert.Equal(t, 10, p.Len())

	GetDescriptorSetup(&s, DescriptorTypeString, 3, 255)
	assert.Nil(t, desc.StringDescriptor(&s))
	GetDescriptorSetup(&s, DescriptorTypeString, MaxStrings, 255)
	assert.Nil(t, desc.StringDescriptor(&s))

	assert.Equal(t, ResultSuccess, desc.InterfaceSetting(1, 0, 1))
	assert.Equal(t, ResultUnsupported, desc.InterfaceSetting(1, 0, 2))
	assert.Equal(t, ResultUnsupported, desc.InterfaceSetting(2, 0, 0))
}

func TestDescriptorsStringTable(t *testing.T) {
	desc := buildTestDescriptors(t, 64, false)

	raw := []byte{4, DescriptorTypeString, 'x', 0}
	require.True(t, desc.SetString(5, raw))
	assert.Equal(t, raw, desc.String(5))

	assert.False(t, desc.SetString(MaxStrings, raw))
	assert.Nil(t, desc.String(MaxStrings))
	assert.Zero(t, desc.SetStringFrom(MaxStrings, "x"))

	require.Equal(t, 6, desc.SetStringFrom(6, "ok"))
	s, err := DecodeStringDescriptor(desc.String(6))
	require.NoError(t, err)
	assert.Equal(t, "ok", s)

	require.Equal(t, 6, desc.SetLanguages(LangIDUSEnglish, 0x0407))
	assert.Equal(t, []byte{6, DescriptorTypeString, 0x09, 0x04, 0x07, 0x04}, desc.String(0))
}

func TestBaseClassRejectsClassRequests(t *testing.T) {
	c := NewBaseClass(buildTestDescriptors(t, 64, false))
	s := SetupPacket{RequestType: RequestTypeVendor, Request: 1}

	assert.Equal(t, ResultUnsupported, c.NoDataSetup(&s))
	p, result := c.DataSetup(&s)
	assert.Nil(t, p)
	assert.Equal(t, ResultUnsupported, result)
}

func TestBaseClassWithoutTable(t *testing.T) {
	var s SetupPacket
	GetDescriptorSetup(&s, DescriptorTypeDevice, 0, DeviceDescriptorSize)

	for name, c := range map[string]*BaseClass{
		"nil class": nil,
		"nil table": NewBaseClass(nil),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, ResultUnsupported, c.InterfaceSetting(1, 0, 0))
			assert.Nil(t, c.DeviceDescriptor(&s))
			assert.Nil(t, c.ConfigDescriptor(&s))
			assert.Nil(t, c.StringDescriptor(&s))
		})
	}
}
