package device

import (
	"fmt"
	"strings"

	"github.com/ardnew/usbctrl/pkg"
)

// Endpoint transfer types (USB 2.0 Spec Table 9-13).
const (
	EndpointTypeControl     = 0x00 // Control transfer
	EndpointTypeIsochronous = 0x01 // Isochronous transfer
	EndpointTypeBulk        = 0x02 // Bulk transfer
	EndpointTypeInterrupt   = 0x03 // Interrupt transfer
)

// Endpoint directions.
const (
	EndpointDirectionOut = 0x00 // Host to device
	EndpointDirectionIn  = 0x80 // Device to host
)

// NewEndpointDescriptor returns an endpoint descriptor for the given address,
// transfer type, packet size and polling interval.
func NewEndpointDescriptor(address, transferType uint8, maxPacketSize uint16, interval uint8) EndpointDescriptor {
	return EndpointDescriptor{
		Length:          EndpointDescriptorSize,
		DescriptorType:  DescriptorTypeEndpoint,
		EndpointAddress: address,
		Attributes:      transferType & 0x03,
		MaxPacketSize:   maxPacketSize,
		Interval:        interval,
	}
}

// TransferTypeName returns a human-readable transfer type name.
func TransferTypeName(t uint8) string {
	switch t & 0x03 {
	case EndpointTypeControl:
		return "Control"
	case EndpointTypeIsochronous:
		return "Isochronous"
	case EndpointTypeBulk:
		return "Bulk"
	case EndpointTypeInterrupt:
		return "Interrupt"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// ParseTransferType converts a transfer type name to its attribute value.
func ParseTransferType(name string) (uint8, error) {
	switch strings.ToLower(name) {
	case "control":
		return EndpointTypeControl, nil
	case "isochronous", "iso":
		return EndpointTypeIsochronous, nil
	case "bulk":
		return EndpointTypeBulk, nil
	case "interrupt", "int":
		return EndpointTypeInterrupt, nil
	default:
		return 0, fmt.Errorf("transfer type %q: %w", name, pkg.ErrInvalidParameter)
	}
}

// DirectionName returns a human-readable direction name.
func DirectionName(dir uint8) string {
	if dir&EndpointDirectionIn != 0 {
		return "IN"
	}
	return "OUT"
}
