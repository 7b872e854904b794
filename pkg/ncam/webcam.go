package ncam

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// WebcamDriver implements Driver on top of desktop video capture. It probes
// capture indices sequentially to enumerate devices, synthesizes the static
// metadata a desktop webcam does not publish (back facing, zero sensor
// orientation) and delivers frames as single-plane JPEG images from a read
// loop goroutine per repeating session.
type WebcamDriver struct {
	// MaxProbe bounds how many capture indices enumeration tries.
	MaxProbe int

	mu      sync.Mutex
	next    Handle
	objects map[Handle]*webcamObject
	ids     []string
}

type webcamObject struct {
	kind HandleKind

	// device
	index  int
	cap    *gocv.VideoCapture
	events chan<- StateEvent

	// reader
	cfg       StreamConfiguration
	maxImages int32
	queue     []Handle
	token     ListenerToken
	listener  ListenerFunc
	surface   Handle

	// surface, target, image
	reader Handle

	// image
	data []byte

	// container
	output Handle

	// request
	targets []Handle

	// session
	device Handle
	stop   chan struct{}
	done   chan struct{}
}

// NewWebcamDriver returns a driver over the local capture devices.
func NewWebcamDriver() *WebcamDriver {
	return &WebcamDriver{
		MaxProbe: 5,
		objects:  make(map[Handle]*webcamObject),
	}
}

func (d *WebcamDriver) alloc(kind HandleKind) (Handle, *webcamObject) {
	d.next++
	obj := &webcamObject{kind: kind}
	d.objects[d.next] = obj
	return d.next, obj
}

func (d *WebcamDriver) get(h Handle, kind HandleKind) (*webcamObject, Status) {
	obj, ok := d.objects[h]
	if !ok || obj.kind != kind {
		return nil, StatusBadHandle
	}
	return obj, StatusOK
}

func (d *WebcamDriver) release(h Handle, kind HandleKind) Status {
	if _, st := d.get(h, kind); st != StatusOK {
		return st
	}
	delete(d.objects, h)
	return StatusOK
}

func (d *WebcamDriver) CreateManager() (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, _ := d.alloc(KindManager)
	return h, StatusOK
}

func (d *WebcamDriver) DeleteManager(mgr Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(mgr, KindManager)
}

func (d *WebcamDriver) CameraIDList(mgr Handle) (Handle, Status) {
	d.mu.Lock()
	if _, st := d.get(mgr, KindManager); st != StatusOK {
		d.mu.Unlock()
		return NilHandle, st
	}
	probed := d.ids
	d.mu.Unlock()

	// Probe outside the lock, opening each index costs tens of
	// milliseconds.
	if probed == nil {
		probed = []string{}
		for i := 0; i < d.MaxProbe; i++ {
			cap, err := gocv.OpenVideoCapture(i)
			if err != nil {
				continue
			}
			cap.Close()
			probed = append(probed, strconv.Itoa(i))
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = probed
	h, _ := d.alloc(KindIDList)
	return h, StatusOK
}

func (d *WebcamDriver) CameraIDs(list Handle) ([]string, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(list, KindIDList); st != StatusOK {
		return nil, st
	}
	return append([]string(nil), d.ids...), StatusOK
}

func (d *WebcamDriver) DeleteCameraIDList(list Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(list, KindIDList)
}

func (d *WebcamDriver) CameraCharacteristics(mgr Handle, cameraID string) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(mgr, KindManager); st != StatusOK {
		return NilHandle, st
	}
	index, err := strconv.Atoi(cameraID)
	if err != nil {
		return NilHandle, StatusInvalidParameter
	}
	h, obj := d.alloc(KindCharacteristics)
	obj.index = index
	return h, StatusOK
}

func (d *WebcamDriver) CharacteristicsEntry(chars Handle, tag MetadataTag) ([]int32, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(chars, KindCharacteristics); st != StatusOK {
		return nil, st
	}
	switch tag {
	case TagLensFacing:
		// Webcams face the user, but they are the only camera there is:
		// report them as back facing so the default selection policy
		// finds them.
		return []int32{int32(FacingBack)}, StatusOK
	case TagSensorOrientation:
		return []int32{0}, StatusOK
	case TagAvailableStreamConfigurations:
		return []int32{
			FormatJPEG, 640, 480, streamDirectionOutput,
			FormatJPEG, 1280, 720, streamDirectionOutput,
		}, StatusOK
	default:
		return nil, StatusInvalidParameter
	}
}

func (d *WebcamDriver) FreeCharacteristics(chars Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(chars, KindCharacteristics)
}

func (d *WebcamDriver) OpenDevice(mgr Handle, cameraID string, events chan<- StateEvent) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(mgr, KindManager); st != StatusOK {
		return NilHandle, st
	}
	index, err := strconv.Atoi(cameraID)
	if err != nil {
		return NilHandle, StatusInvalidParameter
	}
	cap, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return NilHandle, StatusDisconnected
	}
	if !cap.IsOpened() {
		cap.Close()
		return NilHandle, StatusDisconnected
	}
	h, obj := d.alloc(KindDevice)
	obj.index = index
	obj.cap = cap
	obj.events = events
	return h, StatusOK
}

func (d *WebcamDriver) CloseDevice(dev Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(dev, KindDevice)
	if st != StatusOK {
		return st
	}
	if obj.cap != nil {
		obj.cap.Close()
		obj.cap = nil
	}
	delete(d.objects, dev)
	return StatusOK
}

func (d *WebcamDriver) NewImageReader(cfg StreamConfiguration, maxImages int32) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if maxImages < 1 {
		return NilHandle, StatusInvalidParameter
	}
	rh, robj := d.alloc(KindReader)
	robj.cfg = cfg
	robj.maxImages = maxImages
	sh, sobj := d.alloc(KindSurface)
	sobj.reader = rh
	robj.surface = sh
	return rh, StatusOK
}

func (d *WebcamDriver) ReaderSurface(reader Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(reader, KindReader)
	if st != StatusOK {
		return NilHandle, st
	}
	return obj.surface, StatusOK
}

func (d *WebcamDriver) SetImageListener(reader Handle, token ListenerToken, fn ListenerFunc) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(reader, KindReader)
	if st != StatusOK {
		return st
	}
	obj.token = token
	obj.listener = fn
	return StatusOK
}

func (d *WebcamDriver) ClearImageListener(reader Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(reader, KindReader)
	if st != StatusOK {
		return st
	}
	obj.token = 0
	obj.listener = nil
	return StatusOK
}

func (d *WebcamDriver) AcquireLatestImage(reader Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(reader, KindReader)
	if st != StatusOK {
		return NilHandle, st
	}
	if len(obj.queue) == 0 {
		return NilHandle, StatusNoBufferAvail
	}
	newest := obj.queue[len(obj.queue)-1]
	for _, stale := range obj.queue[:len(obj.queue)-1] {
		delete(d.objects, stale)
	}
	obj.queue = obj.queue[:0]
	return newest, StatusOK
}

func (d *WebcamDriver) ImagePlane(img Handle, plane int32) (Plane, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(img, KindImage)
	if st != StatusOK {
		return Plane{}, st
	}
	if plane != 0 {
		return Plane{}, StatusInvalidParameter
	}
	return Plane{Data: obj.data, RowStride: int32(len(obj.data)), PixelStride: 1}, StatusOK
}

func (d *WebcamDriver) DeleteImage(img Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(img, KindImage)
}

func (d *WebcamDriver) DeleteImageReader(reader Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get(reader, KindReader)
	if st != StatusOK {
		return st
	}
	for _, h := range obj.queue {
		delete(d.objects, h)
	}
	delete(d.objects, obj.surface)
	delete(d.objects, reader)
	return StatusOK
}

func (d *WebcamDriver) CreateSessionOutput(surface Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(surface, KindSurface); st != StatusOK {
		return NilHandle, st
	}
	h, _ := d.alloc(KindSessionOutput)
	return h, StatusOK
}

func (d *WebcamDriver) FreeSessionOutput(out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(out, KindSessionOutput)
}

func (d *WebcamDriver) CreateOutputContainer() (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h, _ := d.alloc(KindContainer)
	return h, StatusOK
}

func (d *WebcamDriver) ContainerAdd(container, out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	cobj, st := d.get(container, KindContainer)
	if st != StatusOK {
		return st
	}
	if _, st := d.get(out, KindSessionOutput); st != StatusOK {
		return st
	}
	if cobj.output != NilHandle {
		return StatusInvalidParameter
	}
	cobj.output = out
	return StatusOK
}

func (d *WebcamDriver) ContainerRemove(container, out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	cobj, st := d.get(container, KindContainer)
	if st != StatusOK {
		return st
	}
	if cobj.output != out {
		return StatusInvalidParameter
	}
	cobj.output = NilHandle
	return StatusOK
}

func (d *WebcamDriver) FreeOutputContainer(container Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(container, KindContainer)
}

func (d *WebcamDriver) CreateOutputTarget(surface Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sobj, st := d.get(surface, KindSurface)
	if st != StatusOK {
		return NilHandle, st
	}
	h, obj := d.alloc(KindTarget)
	obj.reader = sobj.reader
	return h, StatusOK
}

func (d *WebcamDriver) FreeOutputTarget(target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(target, KindTarget)
}

func (d *WebcamDriver) CreateCaptureRequest(dev Handle, tmpl RequestTemplate) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(dev, KindDevice); st != StatusOK {
		return NilHandle, st
	}
	h, _ := d.alloc(KindRequest)
	return h, StatusOK
}

func (d *WebcamDriver) RequestAddTarget(req, target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	robj, st := d.get(req, KindRequest)
	if st != StatusOK {
		return st
	}
	if _, st := d.get(target, KindTarget); st != StatusOK {
		return st
	}
	robj.targets = append(robj.targets, target)
	return StatusOK
}

func (d *WebcamDriver) RequestRemoveTarget(req, target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	robj, st := d.get(req, KindRequest)
	if st != StatusOK {
		return st
	}
	for i, t := range robj.targets {
		if t == target {
			robj.targets = append(robj.targets[:i], robj.targets[i+1:]...)
			return StatusOK
		}
	}
	return StatusInvalidParameter
}

func (d *WebcamDriver) FreeCaptureRequest(req Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release(req, KindRequest)
}

func (d *WebcamDriver) CreateCaptureSession(dev, container Handle, events chan<- StateEvent) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get(dev, KindDevice); st != StatusOK {
		return NilHandle, st
	}
	cobj, st := d.get(container, KindContainer)
	if st != StatusOK {
		return NilHandle, st
	}
	if cobj.output == NilHandle {
		return NilHandle, StatusStreamConfigure
	}
	h, obj := d.alloc(KindSession)
	obj.device = dev
	obj.events = events
	return h, StatusOK
}

func (d *WebcamDriver) SetRepeatingRequest(session, req Handle) Status {
	d.mu.Lock()
	sobj, st := d.get(session, KindSession)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	robj, st := d.get(req, KindRequest)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	if len(robj.targets) == 0 {
		d.mu.Unlock()
		return StatusInvalidParameter
	}
	target := d.objects[robj.targets[0]]
	reader, st := d.get(target.reader, KindReader)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	device, st := d.get(sobj.device, KindDevice)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}

	device.cap.Set(gocv.VideoCaptureFrameWidth, float64(reader.cfg.Width))
	device.cap.Set(gocv.VideoCaptureFrameHeight, float64(reader.cfg.Height))

	stop := make(chan struct{})
	done := make(chan struct{})
	sobj.stop = stop
	sobj.done = done
	d.mu.Unlock()

	go d.captureLoop(device.cap, target.reader, sobj.events, stop, done)
	return StatusOK
}

func (d *WebcamDriver) CloseSession(session Handle) Status {
	d.mu.Lock()
	obj, st := d.get(session, KindSession)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	if obj.stop != nil {
		close(obj.stop)
		obj.stop = nil
	}
	done := obj.done
	delete(d.objects, session)
	d.mu.Unlock()

	// The capture loop may be blocked inside a device read. The caller
	// closes the device right after this returns, so block until the loop
	// confirms it is off the capture object.
	if done != nil {
		<-done
	}
	return StatusOK
}

// captureLoop is the repeating request: it reads frames until the session
// closes, encodes them to JPEG and delivers them through the reader's
// listener. done is closed on exit; CloseSession waits on it so the device
// is never released under an in-progress read.
func (d *WebcamDriver) captureLoop(cap *gocv.VideoCapture, readerHandle Handle, events chan<- StateEvent, stop, done chan struct{}) {
	defer close(done)
	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := cap.Read(&mat); !ok || mat.Empty() {
			if events != nil {
				select {
				case events <- StateEvent{Kind: EventDeviceError, Code: int32(StatusDisconnected)}:
				default:
				}
			}
			return
		}
		buf, err := gocv.IMEncode(".jpg", mat)
		if err != nil {
			continue
		}
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		d.mu.Lock()
		reader, st := d.get(readerHandle, KindReader)
		if st != StatusOK {
			// Reader already torn down.
			d.mu.Unlock()
			return
		}
		if int32(len(reader.queue)) >= reader.maxImages {
			oldest := reader.queue[0]
			reader.queue = reader.queue[1:]
			delete(d.objects, oldest)
		}
		h, obj := d.alloc(KindImage)
		obj.reader = readerHandle
		obj.data = data
		reader.queue = append(reader.queue, h)
		fn, token := reader.listener, reader.token
		d.mu.Unlock()

		if fn != nil {
			fn(token, readerHandle)
		}
	}
}

var _ Driver = (*WebcamDriver)(nil)
var _ Driver = (*FakeDriver)(nil)

// DriverByName maps a configuration string to a driver implementation.
func DriverByName(name string) (Driver, error) {
	switch name {
	case "webcam", "":
		return NewWebcamDriver(), nil
	case "fake":
		d := NewFakeDriver()
		d.Interval = 66 * time.Millisecond // ~15 fps
		return d, nil
	default:
		return nil, fmt.Errorf("unknown camera driver %q", name)
	}
}
