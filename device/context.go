package device

// Features holds the device feature flags reported by GET_STATUS.
type Features struct {
	RemoteWakeup bool // Remote wakeup enabled by the host
	SelfPowered  bool // Device currently runs from its own supply
}

// Device status bits (USB 2.0 Spec Figure 9-4).
const (
	StatusSelfPowered  = 1 << 0 // Device is self-powered
	StatusRemoteWakeup = 1 << 1 // Remote wakeup enabled
)

// Endpoint status bits (USB 2.0 Spec Figure 9-6).
const (
	StatusHalt = 1 << 0 // Endpoint is halted
)

// Word returns the features serialized as the device GET_STATUS word.
func (f Features) Word() uint16 {
	var w uint16
	if f.SelfPowered {
		w |= StatusSelfPowered
	}
	if f.RemoteWakeup {
		w |= StatusRemoteWakeup
	}
	return w
}

// DeviceContext is the device-wide state owned by the control pipe.
//
// Only the standard request handlers mutate it in response to accepted
// requests. It persists across control transfers and is cleared by a bus
// reset.
type DeviceContext struct {
	Configuration       uint8    // Current configuration value (0 = unconfigured)
	Interface           uint8    // Interface last selected by SET_INTERFACE
	AlternateSetting    uint8    // Alternate setting of that interface
	Features            Features // Remote wakeup and power source
	TotalEndpoints      uint8    // Endpoint registers in use, EP0 included
	TotalConfigurations uint8    // Configurations the device offers
	Address             uint8    // Bus address applied after SET_ADDRESS
}

// IsConfigured returns true if a non-zero configuration is selected.
func (d *DeviceContext) IsConfigured() bool {
	return d.Configuration != 0
}

// Reset returns the context to the state after a bus reset. The totals and
// the power source are properties of the device and are kept.
func (d *DeviceContext) Reset() {
	d.Configuration = 0
	d.Interface = 0
	d.AlternateSetting = 0
	d.Features.RemoteWakeup = false
	d.Address = 0
}

// TransferContext is the streaming state of the control transfer in flight.
type TransferContext struct {
	RemainingIn  int      // Bytes still to send (IN data stage)
	OffsetIn     int      // Send cursor
	RemainingOut int      // Bytes still to receive (OUT data stage)
	OffsetOut    int      // Receive cursor
	PacketSize   int      // Endpoint-0 max packet size
	Producer     Producer // Payload source or sink

	// zeroLengthPending is set when the IN payload is shorter than wLength
	// and a whole number of packets; the data stage then ends with a ZLP.
	zeroLengthPending bool
}

// Reset clears the transfer, keeping the packet size.
func (t *TransferContext) Reset() {
	t.RemainingIn = 0
	t.OffsetIn = 0
	t.RemainingOut = 0
	t.OffsetOut = 0
	t.Producer = nil
	t.zeroLengthPending = false
}

// ZeroLengthPending reports whether the IN data stage still owes the host a
// zero-length packet.
func (t *TransferContext) ZeroLengthPending() bool {
	return t.zeroLengthPending
}
