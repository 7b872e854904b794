package ncam

// Handle is an opaque reference to a native camera service object. Handles
// are only meaningful to the Driver that issued them; the zero value is
// never a valid handle.
type Handle uint64

// NilHandle is the invalid handle value.
const NilHandle Handle = 0

// Facing identifies which way a camera's lens points. The values match the
// camera service's lens-facing metadata enum.
type Facing int32

const (
	FacingFront    Facing = 0
	FacingBack     Facing = 1
	FacingExternal Facing = 2
)

func (f Facing) String() string {
	switch f {
	case FacingFront:
		return "front"
	case FacingBack:
		return "back"
	case FacingExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Pixel formats used in stream configurations. The values match the camera
// service's image format enum.
const (
	FormatYUV420 int32 = 0x23
	FormatJPEG   int32 = 0x100
	FormatRAW16  int32 = 0x20
)

// MetadataTag selects an entry in a camera characteristics blob.
type MetadataTag uint32

const (
	TagLensFacing MetadataTag = iota
	TagSensorOrientation
	TagAvailableStreamConfigurations
)

// Direction markers inside a stream configuration metadata entry.
const (
	streamDirectionOutput int32 = 0
	streamDirectionInput  int32 = 1
)

// StreamConfiguration is the (format, width, height) triple negotiated
// before a capture session is opened. Immutable once selected.
type StreamConfiguration struct {
	Format int32
	Width  int32
	Height int32
}

// RequestTemplate selects the capture request preset a request is created
// from.
type RequestTemplate int32

const (
	TemplatePreview RequestTemplate = 1
	TemplateStill   RequestTemplate = 2
)

// Plane is one raw plane of a delivered image. Data is a borrowed view into
// the driver's buffer; it is only valid until the owning image is released.
type Plane struct {
	Data        []byte
	RowStride   int32
	PixelStride int32
}

// ListenerToken identifies a registered frame handler. The driver hands the
// token back to the trampoline on every frame-available callback; it never
// sees the handler itself.
type ListenerToken uint64

// ListenerFunc is the frame-available trampoline. Drivers invoke it on their
// own internal threads, once per delivered frame.
type ListenerFunc func(token ListenerToken, reader Handle)

// StateEventKind classifies asynchronous device and session state callbacks.
type StateEventKind int

const (
	EventDeviceDisconnected StateEventKind = iota
	EventDeviceError
	EventSessionClosed
	EventSessionReady
	EventSessionActive
)

func (k StateEventKind) String() string {
	switch k {
	case EventDeviceDisconnected:
		return "device disconnected"
	case EventDeviceError:
		return "device error"
	case EventSessionClosed:
		return "session closed"
	case EventSessionReady:
		return "session ready"
	case EventSessionActive:
		return "session active"
	default:
		return "unknown event"
	}
}

// StateEvent is an asynchronous device or session state notification.
// Delivery is best effort: drivers drop events rather than block when the
// channel is full.
type StateEvent struct {
	Kind StateEventKind
	Code int32 // driver error code for EventDeviceError, otherwise zero
}

// Driver models the raw camera service interface: opaque handles, integer
// status codes and callbacks on driver-owned threads. Wrappers in this
// package add ownership and lifetime guarantees on top.
//
// Thread contract: unless noted otherwise a call is safe from any goroutine;
// the service serializes handle mutation internally. The exceptions are
// documented on the wrapper types that expose them.
type Driver interface {
	// Manager lifecycle.
	CreateManager() (Handle, Status)
	DeleteManager(mgr Handle) Status

	// Camera enumeration. CameraIDs borrows from the list handle and is
	// invalid after DeleteCameraIDList.
	CameraIDList(mgr Handle) (Handle, Status)
	CameraIDs(list Handle) ([]string, Status)
	DeleteCameraIDList(list Handle) Status

	// Static per-camera metadata.
	CameraCharacteristics(mgr Handle, cameraID string) (Handle, Status)
	CharacteristicsEntry(chars Handle, tag MetadataTag) ([]int32, Status)
	FreeCharacteristics(chars Handle) Status

	// Device open is asynchronous: a non-OK status reports immediate
	// submission failure only. Later disconnect/error callbacks arrive on
	// the events channel.
	OpenDevice(mgr Handle, cameraID string, events chan<- StateEvent) (Handle, Status)
	CloseDevice(dev Handle) Status

	// Image reader and frame delivery.
	NewImageReader(cfg StreamConfiguration, maxImages int32) (Handle, Status)
	ReaderSurface(reader Handle) (Handle, Status)
	SetImageListener(reader Handle, token ListenerToken, fn ListenerFunc) Status
	ClearImageListener(reader Handle) Status
	AcquireLatestImage(reader Handle) (Handle, Status)
	ImagePlane(img Handle, plane int32) (Plane, Status)
	DeleteImage(img Handle) Status
	DeleteImageReader(reader Handle) Status

	// Session sink registration.
	CreateSessionOutput(surface Handle) (Handle, Status)
	FreeSessionOutput(out Handle) Status
	CreateOutputContainer() (Handle, Status)
	ContainerAdd(container, out Handle) Status
	ContainerRemove(container, out Handle) Status
	FreeOutputContainer(container Handle) Status

	// Request plumbing.
	CreateOutputTarget(surface Handle) (Handle, Status)
	FreeOutputTarget(target Handle) Status
	CreateCaptureRequest(dev Handle, tmpl RequestTemplate) (Handle, Status)
	RequestAddTarget(req, target Handle) Status
	RequestRemoveTarget(req, target Handle) Status
	FreeCaptureRequest(req Handle) Status

	// Session lifecycle.
	CreateCaptureSession(dev, container Handle, events chan<- StateEvent) (Handle, Status)
	SetRepeatingRequest(session, req Handle) Status
	CloseSession(session Handle) Status
}
