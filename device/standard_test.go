package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/usbctrl/device/hal"
)

func TestSetConfigurationValidation(t *testing.T) {
	tests := []struct {
		name  string
		value uint16
		index uint16
		want  Result
	}{
		{"unconfigure", 0, 0, ResultSuccess},
		{"first configuration", 1, 0, ResultSuccess},
		{"beyond total", 2, 0, ResultUnsupported},
		{"high byte set", 0x0101, 0, ResultUnsupported},
		{"index set", 1, 1, ResultUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8)
			GetSetConfigurationSetup(&h.ctrl.setup, 0)
			h.ctrl.setup.Value = tt.value
			h.ctrl.setup.Index = tt.index

			assert.Equal(t, tt.want, h.ctrl.setConfiguration())
			if tt.want == ResultSuccess {
				assert.Equal(t, uint8(tt.value), h.ctrl.dev.Configuration)
				assert.Equal(t, []uint8{uint8(tt.value)}, h.configs)
			} else {
				assert.Zero(t, h.ctrl.dev.Configuration)
				assert.Empty(t, h.configs)
			}
		})
	}
}

func TestGetStatusValidation(t *testing.T) {
	tests := []struct {
		name      string
		recipient uint8
		index     uint16
		value     uint16
		length    uint16
		halt      bool
		want      []byte
	}{
		{name: "device", recipient: RequestRecipientDevice, want: []byte{0, 0}},
		{name: "device with index", recipient: RequestRecipientDevice, index: 1},
		{name: "wrong length", recipient: RequestRecipientDevice, length: 1},
		{name: "value set", recipient: RequestRecipientDevice, value: 1},
		{name: "index high byte", recipient: RequestRecipientEndpoint, index: 0x0181},
		{name: "interface", recipient: RequestRecipientInterface, want: []byte{0, 0}},
		{name: "unknown interface", recipient: RequestRecipientInterface, index: 5},
		{name: "endpoint in", recipient: RequestRecipientEndpoint, index: 0x81, want: []byte{0, 0}},
		{name: "endpoint in halted", recipient: RequestRecipientEndpoint, index: 0x81, halt: true, want: []byte{1, 0}},
		{name: "endpoint out", recipient: RequestRecipientEndpoint, index: 0x02, want: []byte{0, 0}},
		{name: "disabled direction", recipient: RequestRecipientEndpoint, index: 0x01},
		{name: "reserved bits", recipient: RequestRecipientEndpoint, index: 0x91},
		{name: "beyond total", recipient: RequestRecipientEndpoint, index: 0x83},
		{name: "other recipient", recipient: RequestRecipientOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8)
			h.configure()
			if tt.halt {
				h.hal.SetTxStatus(1, hal.StatusStall)
			}

			GetStatusSetup(&h.ctrl.setup, tt.recipient, tt.index)
			h.ctrl.setup.Value = tt.value
			if tt.length != 0 {
				h.ctrl.setup.Length = tt.length
			}

			p := h.ctrl.getStatus()
			if tt.want == nil {
				assert.Nil(t, p)
				return
			}
			require.NotNil(t, p)
			require.Equal(t, 2, p.Len())
			assert.Equal(t, tt.want, p.Fetch(0, 2))
		})
	}
}

func TestGetStatusInterfaceUnconfigured(t *testing.T) {
	h := newHarness(t, 8)
	GetStatusSetup(&h.ctrl.setup, RequestRecipientInterface, 0)
	assert.Nil(t, h.ctrl.getStatus())
}

func TestEndpointFeatureDirection(t *testing.T) {
	h := newHarness(t, 8)
	h.configure()

	GetSetFeatureSetup(&h.ctrl.setup, RequestRecipientEndpoint, FeatureEndpointHalt, 0x81)
	require.Equal(t, ResultSuccess, h.ctrl.setEndpointFeature())
	assert.Equal(t, hal.StatusStall, h.hal.TxStatus(1))
	assert.Equal(t, hal.StatusDisabled, h.hal.RxStatus(1), "OUT direction untouched")

	GetSetFeatureSetup(&h.ctrl.setup, RequestRecipientEndpoint, FeatureEndpointHalt, 0x02)
	require.Equal(t, ResultSuccess, h.ctrl.setEndpointFeature())
	assert.Equal(t, hal.StatusStall, h.hal.RxStatus(2))
	assert.Equal(t, hal.StatusDisabled, h.hal.TxStatus(2), "IN direction untouched")

	GetClearFeatureSetup(&h.ctrl.setup, RequestRecipientEndpoint, FeatureEndpointHalt, 0x02)
	require.Equal(t, ResultSuccess, h.ctrl.clearFeature())
	assert.Equal(t, hal.StatusValid, h.hal.RxStatus(2))
	assert.Zero(t, h.hal.RxToggle(2))
	assert.Equal(t, hal.StatusStall, h.hal.TxStatus(1), "other endpoint still halted")
}

func TestClearFeatureEndpointZeroRearmsReceive(t *testing.T) {
	h := newHarness(t, 16)
	h.configure()
	h.hal.SetRxStatus(0, hal.StatusStall)
	h.hal.SetRxCount(0, 0)

	GetClearFeatureSetup(&h.ctrl.setup, RequestRecipientEndpoint, FeatureEndpointHalt, 0x00)
	require.Equal(t, ResultSuccess, h.ctrl.clearFeature())
	assert.Equal(t, hal.StatusValid, h.hal.RxStatus(0))
	assert.Equal(t, 16, h.hal.RxCount(0))
}

func TestClearFeatureRejects(t *testing.T) {
	tests := []struct {
		name      string
		recipient uint8
		feature   uint16
		index     uint16
	}{
		{"wrong selector", RequestRecipientEndpoint, FeatureDeviceRemoteWakeup, 0x81},
		{"index high byte", RequestRecipientEndpoint, FeatureEndpointHalt, 0x0181},
		{"beyond total", RequestRecipientEndpoint, FeatureEndpointHalt, 0x83},
		{"disabled direction", RequestRecipientEndpoint, FeatureEndpointHalt, 0x01},
		{"interface", RequestRecipientInterface, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 8)
			h.configure()
			GetClearFeatureSetup(&h.ctrl.setup, tt.recipient, tt.feature, tt.index)
			assert.Equal(t, ResultUnsupported, h.ctrl.clearFeature())
		})
	}
}

func TestSetDeviceAddressBindsEndpoints(t *testing.T) {
	h := newHarness(t, 8)
	h.ctrl.setDeviceAddress(42)

	assert.Equal(t, uint8(42), h.hal.Address())
	assert.Equal(t, uint8(42), h.ctrl.Device().Address)
	for ep := uint8(0); ep < h.ctrl.dev.TotalEndpoints; ep++ {
		assert.Equal(t, ep, h.hal.EndpointAddress(ep))
	}
	assert.Equal(t, []uint8{42}, h.addresses)
}

func TestDescriptorProducerTypes(t *testing.T) {
	h := newHarness(t, 8)

	for _, typ := range []uint8{DescriptorTypeDevice, DescriptorTypeConfiguration, DescriptorTypeString} {
		GetDescriptorSetup(&h.ctrl.setup, typ, 0, 255)
		p, ok := h.ctrl.descriptorProducer()
		assert.True(t, ok, "type %d", typ)
		assert.NotNil(t, p, "type %d", typ)
	}

	GetDescriptorSetup(&h.ctrl.setup, DescriptorTypeInterface, 0, 255)
	_, ok := h.ctrl.descriptorProducer()
	assert.False(t, ok)
}
