package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/pkg"
)

func TestNewEndpointDescriptor(t *testing.T) {
	ep := NewEndpointDescriptor(0x02, EndpointTypeBulk|0x0C, 64, 0)

	assert.Equal(t, uint8(EndpointDescriptorSize), ep.Length)
	assert.Equal(t, uint8(DescriptorTypeEndpoint), ep.DescriptorType)
	assert.Equal(t, uint8(0x02), ep.EndpointAddress)
	assert.Equal(t, uint8(EndpointTypeBulk), ep.Attributes, "only the transfer type bits are kept")
	assert.Equal(t, uint16(64), ep.MaxPacketSize)
}

func TestTransferTypeNames(t *testing.T) {
	tests := []struct {
		value uint8
		name  string
		alias string
	}{
		{EndpointTypeControl, "Control", "control"},
		{EndpointTypeIsochronous, "Isochronous", "iso"},
		{EndpointTypeBulk, "Bulk", "BULK"},
		{EndpointTypeInterrupt, "Interrupt", "int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, TransferTypeName(tt.value))

			got, err := ParseTransferType(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)

			got, err = ParseTransferType(tt.alias)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		})
	}

	_, err := ParseTransferType("burst")
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestDirectionName(t *testing.T) {
	assert.Equal(t, "IN", DirectionName(0x81))
	assert.Equal(t, "OUT", DirectionName(0x01))
	assert.Equal(t, "IN", DirectionName(EndpointDirectionIn))
}
