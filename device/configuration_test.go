package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/pkg"
)

func TestConfigurationMarshalTo(t *testing.T) {
	c := NewConfiguration(2)
	c.StringIndex = 4
	require.NoError(t, c.AddAssociation(InterfaceAssociationDescriptor{InterfaceCount: 1, FunctionClass: ClassHID}))
	require.NoError(t, c.AddInterface(Interface{
		Number:           0,
		Class:            ClassHID,
		ClassDescriptors: []byte{9, 0x21, 0x11, 0x01, 0, 1, 0x22, 63, 0},
		Endpoints:        []EndpointDescriptor{NewEndpointDescriptor(0x81, EndpointTypeInterrupt, 8, 10)},
	}))

	buf := make([]byte, 64)
	n := c.MarshalTo(buf)
	require.Equal(t, 9+8+9+9+7, n)

	var header ConfigurationDescriptor
	require.NoError(t, ParseConfigurationDescriptor(buf[:n], &header))
	assert.Equal(t, uint16(n), header.TotalLength)
	assert.Equal(t, uint8(1), header.NumInterfaces)
	assert.Equal(t, uint8(2), header.ConfigurationValue)
	assert.Equal(t, uint8(4), header.ConfigurationIndex)

	// Association, interface, class descriptor and endpoint follow in order.
	assert.Equal(t, uint8(DescriptorTypeInterfaceAssociation), buf[9+1])
	assert.Equal(t, uint8(DescriptorTypeInterface), buf[17+1])
	assert.Equal(t, uint8(0x21), buf[26+1])
	assert.Equal(t, uint8(DescriptorTypeEndpoint), buf[35+1])

	assert.Zero(t, c.MarshalTo(buf[:n-1]))
}

func TestConfigurationAttributes(t *testing.T) {
	c := NewConfiguration(1)
	assert.Equal(t, uint8(ConfigAttrBusPowered), c.Attributes)
	assert.Equal(t, uint8(50), c.MaxPower)

	c.SetSelfPowered(true)
	c.SetRemoteWakeup(true)
	assert.True(t, c.IsSelfPowered())
	assert.True(t, c.SupportsRemoteWakeup())
	assert.Equal(t, uint8(0xE0), c.Attributes)

	c.SetSelfPowered(false)
	c.SetRemoteWakeup(false)
	assert.Equal(t, uint8(ConfigAttrBusPowered), c.Attributes)
}

func TestConfigurationInterfaces(t *testing.T) {
	c := NewConfiguration(1)
	require.NoError(t, c.AddInterface(Interface{Number: 0}))
	require.NoError(t, c.AddInterface(Interface{Number: 0, AlternateSetting: 1,
		Endpoints: []EndpointDescriptor{NewEndpointDescriptor(0x85, EndpointTypeIsochronous, 256, 1)}}))
	require.NoError(t, c.AddInterface(Interface{Number: 1}))

	assert.ErrorIs(t, c.AddInterface(Interface{Number: 1}), pkg.ErrInvalidParameter)
	assert.Equal(t, 2, c.NumInterfaces())
	assert.Equal(t, uint8(5), c.MaxEndpointNumber())
	assert.True(t, c.HasSetting(0, 1))
	assert.False(t, c.HasSetting(1, 1))

	full := NewConfiguration(1)
	for n := uint8(0); n < MaxInterfacesPerConfiguration; n++ {
		require.NoError(t, full.AddInterface(Interface{Number: n}))
	}
	assert.ErrorIs(t, full.AddInterface(Interface{Number: 99}), pkg.ErrNoMemory)
}
