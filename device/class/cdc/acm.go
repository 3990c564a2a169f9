package cdc

import (
	"sync"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/pkg"
)

// ACM implements device.Class for a CDC-ACM (Abstract Control Model)
// function: a communications interface followed by its data interface.
//
// Only the endpoint-0 class requests are handled here. Line coding written
// by SET_LINE_CODING takes effect when the host reads the status packet.
type ACM struct {
	*device.BaseClass

	controlIface uint8
	dataIface    uint8

	lineCoding   LineCoding
	controlState uint16

	// SET_LINE_CODING data stage
	pending [LineCodingSize]byte
	sink    device.BufferSink

	// GET_LINE_CODING response
	responseBuf [LineCodingSize]byte

	// Callbacks
	onLineCodingChange   func(*LineCoding)
	onControlStateChange func(dtr, rts bool)
	onBreak              func(millis uint16)

	mutex sync.RWMutex
}

// NewACM creates a CDC-ACM class whose communications interface is
// controlIface. The data interface is controlIface+1.
func NewACM(controlIface uint8) *ACM {
	return &ACM{
		controlIface: controlIface,
		dataIface:    controlIface + 1,
		lineCoding:   DefaultLineCoding,
	}
}

// Attach binds the class to the descriptor table that serves the standard
// descriptors. An unattached class stalls standard descriptor and interface
// requests.
func (a *ACM) Attach(desc *device.Descriptors) *ACM {
	a.BaseClass = device.NewBaseClass(desc)
	return a
}

// ControlInterface returns the communications interface number.
func (a *ACM) ControlInterface() uint8 {
	return a.controlIface
}

// FunctionalDescriptors returns the header, call management, ACM and union
// functional descriptors of the communications interface.
func (a *ACM) FunctionalDescriptors() []byte {
	buf := make([]byte, HeaderDescriptorSize+CallManagementDescriptorSize+ACMDescriptorSize+UnionDescriptorSize)
	n := (&HeaderDescriptor{CDCVersion: 0x0110}).MarshalTo(buf)
	n += (&CallManagementDescriptor{DataInterface: a.dataIface}).MarshalTo(buf[n:])
	n += (&ACMDescriptor{Capabilities: ACMCapLineCoding | ACMCapSendBreak}).MarshalTo(buf[n:])
	n += (&UnionDescriptor{MasterInterface: a.controlIface, SlaveInterface0: a.dataIface}).MarshalTo(buf[n:])
	return buf[:n]
}

// ConfigureDevice adds the communications and data interfaces to the
// current configuration of builder.
func (a *ACM) ConfigureDevice(builder *device.DeviceBuilder, notifyEPAddr, dataInEPAddr, dataOutEPAddr uint8) *device.DeviceBuilder {
	return builder.
		AddInterface(ClassCDC, SubclassACM, ProtocolAT).
		WithClassDescriptors(a.FunctionalDescriptors()).
		AddEndpoint(notifyEPAddr|device.EndpointDirectionIn, device.EndpointTypeInterrupt, 8, 16).
		AddInterface(ClassCDCData, SubclassNone, ProtocolNone).
		AddEndpoint(dataInEPAddr|device.EndpointDirectionIn, device.EndpointTypeBulk, 64, 0).
		AddEndpoint(dataOutEPAddr&0x0F, device.EndpointTypeBulk, 64, 0)
}

// SetOnLineCodingChange sets the callback for line coding changes.
func (a *ACM) SetOnLineCodingChange(cb func(*LineCoding)) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.onLineCodingChange = cb
}

// SetOnControlStateChange sets the callback for control line state changes.
func (a *ACM) SetOnControlStateChange(cb func(dtr, rts bool)) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.onControlStateChange = cb
}

// SetOnBreak sets the callback for break signaling.
func (a *ACM) SetOnBreak(cb func(millis uint16)) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.onBreak = cb
}

// LineCoding returns the current line coding configuration.
func (a *ACM) LineCoding() LineCoding {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.lineCoding
}

// DTR returns the current DTR (Data Terminal Ready) state.
func (a *ACM) DTR() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.controlState&ControlLineDTR != 0
}

// RTS returns the current RTS (Request To Send) state.
func (a *ACM) RTS() bool {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.controlState&ControlLineRTS != 0
}

// SerialStateNotification returns the SERIAL_STATE notification the
// application sends on the interrupt endpoint.
func (a *ACM) SerialStateNotification(state uint16) []byte {
	s := device.SetupPacket{
		RequestType: device.RequestDirectionDeviceToHost | device.RequestTypeClass | device.RequestRecipientInterface,
		Request:     NotificationSerialState,
		Index:       uint16(a.controlIface),
		Length:      2,
	}
	buf := make([]byte, device.SetupPacketSize+2)
	s.MarshalTo(buf)
	buf[8] = byte(state)
	buf[9] = byte(state >> 8)
	return buf
}

func (a *ACM) addressed(setup *device.SetupPacket) bool {
	return setup.IsClass() && setup.IsInterfaceRecipient() && setup.IndexLow() == a.controlIface
}

// NoDataSetup handles SET_CONTROL_LINE_STATE and SEND_BREAK.
func (a *ACM) NoDataSetup(setup *device.SetupPacket) device.Result {
	if !a.addressed(setup) {
		return device.ResultUnsupported
	}

	switch setup.Request {
	case RequestSetControlLineState:
		a.mutex.Lock()
		a.controlState = setup.Value
		cb := a.onControlStateChange
		dtr := a.controlState&ControlLineDTR != 0
		rts := a.controlState&ControlLineRTS != 0
		a.mutex.Unlock()

		pkg.LogDebug(pkg.ComponentClass, "control line state set",
			"dtr", dtr,
			"rts", rts)

		if cb != nil {
			cb(dtr, rts)
		}
		return device.ResultSuccess

	case RequestSendBreak:
		millis := setup.Value

		a.mutex.RLock()
		cb := a.onBreak
		a.mutex.RUnlock()

		pkg.LogDebug(pkg.ComponentClass, "break signaled",
			"duration_ms", millis)

		if cb != nil {
			cb(millis)
		}
		return device.ResultSuccess

	default:
		return device.ResultUnsupported
	}
}

// DataSetup handles SET_LINE_CODING and GET_LINE_CODING.
func (a *ACM) DataSetup(setup *device.SetupPacket) (device.Producer, device.Result) {
	if !a.addressed(setup) {
		return nil, device.ResultUnsupported
	}

	switch setup.Request {
	case RequestSetLineCoding:
		if setup.Length != LineCodingSize {
			return nil, device.ResultUnsupported
		}
		clear(a.pending[:])
		a.sink = device.BufferSink{Buf: a.pending[:], Length: LineCodingSize}
		return &a.sink, device.ResultSuccess

	case RequestGetLineCoding:
		a.mutex.RLock()
		n := a.lineCoding.MarshalTo(a.responseBuf[:])
		a.mutex.RUnlock()
		return device.BytesProducer(a.responseBuf[:n]), device.ResultSuccess

	default:
		return nil, device.ResultUnsupported
	}
}

// StatusInComplete applies a SET_LINE_CODING payload once the host has read
// the status packet.
func (a *ACM) StatusInComplete(setup *device.SetupPacket) {
	if !a.addressed(setup) || setup.Request != RequestSetLineCoding {
		return
	}

	a.mutex.Lock()
	if !ParseLineCoding(a.sink.Data(), &a.lineCoding) {
		a.mutex.Unlock()
		pkg.LogWarn(pkg.ComponentClass, "short line coding",
			"len", a.sink.Received())
		return
	}
	cb := a.onLineCodingChange
	lc := a.lineCoding
	a.mutex.Unlock()

	pkg.LogDebug(pkg.ComponentClass, "line coding set",
		"baud", lc.DTERate,
		"dataBits", lc.DataBits,
		"parity", lc.ParityType,
		"stopBits", lc.CharFormat)

	if cb != nil {
		cb(&lc)
	}
}

var _ device.Class = (*ACM)(nil)
