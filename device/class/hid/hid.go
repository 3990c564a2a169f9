package hid

import (
	"sync"

	"github.com/ardnew/usbctrl/device"
	"github.com/ardnew/usbctrl/pkg"
)

// MaxReportSize is the maximum HID report size.
const MaxReportSize = 64

// HID implements device.Class for a single HID interface.
//
// Standard descriptors are served by the attached descriptor table. Input
// reports requested with GET_REPORT are answered asynchronously: until the
// application queues a report the control transfer pauses, and the
// application resumes it with device.Control.Resume.
type HID struct {
	*device.BaseClass

	iface uint8

	// Report descriptor (stored by reference)
	reportDescriptor []byte

	hidDescriptor HIDDescriptor
	hidBuf        [HIDDescriptorSize]byte

	protocol uint8 // 0 = boot, 1 = report
	idleRate uint8 // Idle rate in 4ms units (0 = infinite)

	// Input report served by the next GET_REPORT
	input      [MaxReportSize]byte
	inputLen   int
	inputReady bool

	// SET_REPORT data stage
	outBuf [MaxReportSize]byte
	sink   device.BufferSink

	// Single-byte GET_IDLE/GET_PROTOCOL responses
	responseBuf [1]byte

	// Callbacks
	onOutputReport  func(data []byte)
	onFeatureReport func(reportID uint8, data []byte)
	onSetProtocol   func(protocol uint8)
	onSetIdle       func(rate uint8, reportID uint8)

	mutex sync.Mutex
}

// New creates a HID class for interface number iface with the given report
// descriptor. The report descriptor is stored by reference.
func New(iface uint8, reportDescriptor []byte) *HID {
	return &HID{
		iface:            iface,
		reportDescriptor: reportDescriptor,
		hidDescriptor: HIDDescriptor{
			HIDVersion:     0x0111, // HID 1.11
			CountryCode:    CountryNone,
			NumDescriptors: 1,
			ReportDescLen:  uint16(len(reportDescriptor)),
		},
		protocol: ProtocolReport,
	}
}

// Attach binds the class to the descriptor table that serves the standard
// descriptors. An unattached class stalls standard descriptor and interface
// requests.
func (h *HID) Attach(desc *device.Descriptors) *HID {
	h.BaseClass = device.NewBaseClass(desc)
	return h
}

// Interface returns the interface number the class answers for.
func (h *HID) Interface() uint8 {
	return h.iface
}

// ClassDescriptor returns the serialized HID descriptor.
func (h *HID) ClassDescriptor() []byte {
	var buf [HIDDescriptorSize]byte
	n := h.hidDescriptor.MarshalTo(buf[:])
	return buf[:n]
}

// ConfigureDevice adds the HID interface with an interrupt IN endpoint to the
// current configuration of builder.
func (h *HID) ConfigureDevice(builder *device.DeviceBuilder, inEPAddr, subclass, protocol, interval uint8) *device.DeviceBuilder {
	return builder.
		AddInterface(ClassHID, subclass, protocol).
		WithClassDescriptors(h.ClassDescriptor()).
		AddEndpoint(inEPAddr|device.EndpointDirectionIn, device.EndpointTypeInterrupt, 8, interval)
}

// SetOnOutputReport sets the callback for output reports from the host.
func (h *HID) SetOnOutputReport(cb func(data []byte)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onOutputReport = cb
}

// SetOnFeatureReport sets the callback for feature reports from the host.
func (h *HID) SetOnFeatureReport(cb func(reportID uint8, data []byte)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onFeatureReport = cb
}

// SetOnSetProtocol sets the callback for protocol changes.
func (h *HID) SetOnSetProtocol(cb func(protocol uint8)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onSetProtocol = cb
}

// SetOnSetIdle sets the callback for idle rate changes.
func (h *HID) SetOnSetIdle(cb func(rate uint8, reportID uint8)) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.onSetIdle = cb
}

// Protocol returns the current protocol (boot or report).
func (h *HID) Protocol() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.protocol
}

// IdleRate returns the current idle rate.
func (h *HID) IdleRate() uint8 {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.idleRate
}

// ReportDescriptor returns the report descriptor.
func (h *HID) ReportDescriptor() []byte {
	return h.reportDescriptor
}

// QueueInputReport stores the report served by the next GET_REPORT. If a
// GET_REPORT is paused the caller resumes it afterwards.
func (h *HID) QueueInputReport(data []byte) error {
	if len(data) > MaxReportSize {
		return pkg.ErrBufferTooSmall
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.inputLen = copy(h.input[:], data)
	h.inputReady = true
	return nil
}

// QueueKeyboardReport stores a keyboard report for the next GET_REPORT.
func (h *HID) QueueKeyboardReport(report *KeyboardReport) error {
	var buf [KeyboardReportSize]byte
	n := report.MarshalTo(buf[:])
	if n == 0 {
		return pkg.ErrBufferTooSmall
	}
	return h.QueueInputReport(buf[:n])
}

// addressed reports whether setup targets this interface.
func (h *HID) addressed(setup *device.SetupPacket) bool {
	return setup.IsInterfaceRecipient() && setup.IndexLow() == h.iface
}

// NoDataSetup handles SET_IDLE and SET_PROTOCOL.
func (h *HID) NoDataSetup(setup *device.SetupPacket) device.Result {
	if !setup.IsClass() || !h.addressed(setup) {
		return device.ResultUnsupported
	}

	switch setup.Request {
	case RequestSetIdle:
		rate := setup.ValueHigh()
		reportID := setup.ValueLow()

		h.mutex.Lock()
		h.idleRate = rate
		cb := h.onSetIdle
		h.mutex.Unlock()

		pkg.LogDebug(pkg.ComponentClass, "SET_IDLE",
			"rate", rate,
			"reportID", reportID)

		if cb != nil {
			cb(rate, reportID)
		}
		return device.ResultSuccess

	case RequestSetProtocol:
		protocol := setup.ValueLow()
		if protocol > ProtocolReport {
			return device.ResultUnsupported
		}

		h.mutex.Lock()
		h.protocol = protocol
		cb := h.onSetProtocol
		h.mutex.Unlock()

		pkg.LogDebug(pkg.ComponentClass, "SET_PROTOCOL",
			"protocol", protocol)

		if cb != nil {
			cb(protocol)
		}
		return device.ResultSuccess

	default:
		return device.ResultUnsupported
	}
}

// DataSetup handles the HID descriptor requests and the class requests with
// a data stage.
func (h *HID) DataSetup(setup *device.SetupPacket) (device.Producer, device.Result) {
	if !h.addressed(setup) {
		return nil, device.ResultUnsupported
	}

	if setup.IsStandard() && setup.Request == device.RequestGetDescriptor {
		return h.getDescriptor(setup)
	}
	if !setup.IsClass() {
		return nil, device.ResultUnsupported
	}

	switch setup.Request {
	case RequestGetReport:
		return h.getReport(setup)

	case RequestSetReport:
		n := int(setup.Length)
		if n > MaxReportSize {
			return nil, device.ResultUnsupported
		}
		clear(h.outBuf[:])
		h.sink = device.BufferSink{Buf: h.outBuf[:], Length: n}
		return &h.sink, device.ResultSuccess

	case RequestGetIdle:
		h.mutex.Lock()
		h.responseBuf[0] = h.idleRate
		h.mutex.Unlock()
		return device.BytesProducer(h.responseBuf[:]), device.ResultSuccess

	case RequestGetProtocol:
		h.mutex.Lock()
		h.responseBuf[0] = h.protocol
		h.mutex.Unlock()
		return device.BytesProducer(h.responseBuf[:]), device.ResultSuccess

	default:
		return nil, device.ResultUnsupported
	}
}

func (h *HID) getDescriptor(setup *device.SetupPacket) (device.Producer, device.Result) {
	switch setup.DescriptorType() {
	case DescriptorTypeHID:
		n := h.hidDescriptor.MarshalTo(h.hidBuf[:])
		return device.BytesProducer(h.hidBuf[:n]), device.ResultSuccess

	case DescriptorTypeReport:
		return device.BytesProducer(h.reportDescriptor), device.ResultSuccess

	default:
		return nil, device.ResultUnsupported
	}
}

func (h *HID) getReport(setup *device.SetupPacket) (device.Producer, device.Result) {
	if setup.ValueHigh() != ReportTypeInput {
		return nil, device.ResultUnsupported
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.inputReady {
		pkg.LogDebug(pkg.ComponentClass, "GET_REPORT waiting for input report",
			"id", setup.ValueLow())
		return nil, device.ResultNotReady
	}
	h.inputReady = false

	pkg.LogDebug(pkg.ComponentClass, "GET_REPORT",
		"id", setup.ValueLow(),
		"len", h.inputLen)

	return device.BytesProducer(h.input[:h.inputLen]), device.ResultSuccess
}

// StatusInComplete delivers a SET_REPORT payload once the host has read the
// status packet.
func (h *HID) StatusInComplete(setup *device.SetupPacket) {
	if !setup.IsClass() || setup.Request != RequestSetReport || !h.addressed(setup) {
		return
	}

	data := h.sink.Data()
	reportType := setup.ValueHigh()
	reportID := setup.ValueLow()

	pkg.LogDebug(pkg.ComponentClass, "SET_REPORT",
		"type", reportType,
		"id", reportID,
		"len", len(data))

	h.mutex.Lock()
	outputCb := h.onOutputReport
	featureCb := h.onFeatureReport
	h.mutex.Unlock()

	switch reportType {
	case ReportTypeOutput:
		if outputCb != nil {
			outputCb(data)
		}
	case ReportTypeFeature:
		if featureCb != nil {
			featureCb(reportID, data)
		}
	}
}

var _ device.Class = (*HID)(nil)
