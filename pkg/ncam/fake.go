package ncam

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"
)

// HandleKind classifies native objects for the fake driver's bookkeeping.
type HandleKind int

const (
	KindManager HandleKind = iota
	KindIDList
	KindCharacteristics
	KindDevice
	KindReader
	KindSurface
	KindSessionOutput
	KindContainer
	KindTarget
	KindRequest
	KindSession
	KindImage
	kindCount
)

func (k HandleKind) String() string {
	names := [...]string{
		"manager", "id list", "characteristics", "device", "reader",
		"surface", "session output", "container", "target", "request",
		"session", "image",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// FakeCamera describes one simulated physical camera.
type FakeCamera struct {
	ID          string
	Facing      Facing
	Orientation int32
	Streams     []StreamConfiguration
}

// FakeDriver is an in-process stand-in for the hardware camera service. It
// hands out real opaque handles, counts every create and destroy per handle
// kind, records API misuse (double free, free while still linked, deleting a
// reader with an acquired image outstanding) and can inject a failure into
// any named call. Frames are synthetic; they are delivered either manually
// through PumpFrame or continuously when Interval is set.
//
// All methods are safe for concurrent use. Listener callbacks run on the
// goroutine that pumps the frame, which for interval mode is a driver-owned
// goroutine, matching the hardware threading model.
type FakeDriver struct {
	// Interval enables continuous delivery when non-zero. Set before the
	// repeating request is issued.
	Interval time.Duration

	mu        sync.Mutex
	cameras   []FakeCamera
	objects   map[Handle]*fakeObject
	next      Handle
	created   [kindCount]int
	destroyed [kindCount]int
	misuse    []string
	failures  map[string]*failPlan
	frameSeq  uint64
}

type failPlan struct {
	after  int
	status Status
}

type fakeObject struct {
	kind   HandleKind
	camera *FakeCamera

	// reader
	cfg       StreamConfiguration
	maxImages int32
	queue     []Handle
	token     ListenerToken
	listener  ListenerFunc
	surface   Handle

	// surface, image
	reader Handle

	// image
	planes   []Plane
	acquired bool

	// container
	output Handle

	// request
	targets []Handle

	// session
	device    Handle
	repeating Handle
	stop      chan struct{}

	// device, session
	events chan<- StateEvent
}

// NewFakeDriver creates a fake service exposing the given cameras. With no
// arguments it exposes a single back-facing camera with a 90 degree sensor
// orientation offering small YUV and JPEG streams.
func NewFakeDriver(cameras ...FakeCamera) *FakeDriver {
	if len(cameras) == 0 {
		cameras = []FakeCamera{{
			ID:          "0",
			Facing:      FacingBack,
			Orientation: 90,
			Streams: []StreamConfiguration{
				{Format: FormatYUV420, Width: 640, Height: 480},
				{Format: FormatJPEG, Width: 1920, Height: 1080},
				{Format: FormatJPEG, Width: 640, Height: 480},
			},
		}}
	}
	return &FakeDriver{
		cameras:  cameras,
		objects:  make(map[Handle]*fakeObject),
		failures: make(map[string]*failPlan),
	}
}

// FailNext makes the next invocation of the named driver call return the
// given status.
func (d *FakeDriver) FailNext(op string, status Status) {
	d.FailAfter(op, 0, status)
}

// FailAfter makes the named call succeed n times and fail on call n+1.
func (d *FakeDriver) FailAfter(op string, n int, status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = &failPlan{after: n, status: status}
}

// Created returns how many handles of the given kind were created.
func (d *FakeDriver) Created(kind HandleKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Destroyed returns how many handles of the given kind were released.
func (d *FakeDriver) Destroyed(kind HandleKind) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.destroyed[kind]
}

// Outstanding returns the kinds with live handles and their counts. An empty
// map means every created handle was released exactly once.
func (d *FakeDriver) Outstanding() map[HandleKind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[HandleKind]int)
	for k := HandleKind(0); k < kindCount; k++ {
		if n := d.created[k] - d.destroyed[k]; n != 0 {
			out[k] = n
		}
	}
	return out
}

// Misuse returns the recorded API contract violations.
func (d *FakeDriver) Misuse() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.misuse...)
}

// Disconnect simulates the hardware reporting the device lost. Best effort:
// dropped when the event channel is full, like the real service.
func (d *FakeDriver) Disconnect(dev Handle) {
	d.mu.Lock()
	obj, ok := d.objects[dev]
	var events chan<- StateEvent
	if ok && obj.kind == KindDevice {
		events = obj.events
	}
	d.mu.Unlock()
	if events != nil {
		select {
		case events <- StateEvent{Kind: EventDeviceDisconnected}:
		default:
		}
	}
}

func (d *FakeDriver) fail(op string) (Status, bool) {
	if plan, ok := d.failures[op]; ok {
		if plan.after == 0 {
			delete(d.failures, op)
			return plan.status, true
		}
		plan.after--
	}
	return StatusOK, false
}

func (d *FakeDriver) alloc(kind HandleKind) (Handle, *fakeObject) {
	d.next++
	obj := &fakeObject{kind: kind}
	d.objects[d.next] = obj
	d.created[kind]++
	return d.next, obj
}

func (d *FakeDriver) get(op string, h Handle, kind HandleKind) (*fakeObject, Status) {
	obj, ok := d.objects[h]
	if !ok || obj.kind != kind {
		d.misuse = append(d.misuse, fmt.Sprintf("%s: bad %s handle %d", op, kind, h))
		return nil, StatusBadHandle
	}
	return obj, StatusOK
}

func (d *FakeDriver) release(op string, h Handle, kind HandleKind) Status {
	if _, st := d.get(op, h, kind); st != StatusOK {
		return st
	}
	delete(d.objects, h)
	d.destroyed[kind]++
	return StatusOK
}

func (d *FakeDriver) CreateManager() (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateManager"); ok {
		return NilHandle, st
	}
	h, _ := d.alloc(KindManager)
	return h, StatusOK
}

func (d *FakeDriver) DeleteManager(mgr Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("DeleteManager", mgr, KindManager)
}

func (d *FakeDriver) CameraIDList(mgr Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CameraIDList"); ok {
		return NilHandle, st
	}
	if _, st := d.get("CameraIDList", mgr, KindManager); st != StatusOK {
		return NilHandle, st
	}
	h, _ := d.alloc(KindIDList)
	return h, StatusOK
}

func (d *FakeDriver) CameraIDs(list Handle) ([]string, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, st := d.get("CameraIDs", list, KindIDList); st != StatusOK {
		return nil, st
	}
	ids := make([]string, len(d.cameras))
	for i, cam := range d.cameras {
		ids[i] = cam.ID
	}
	return ids, StatusOK
}

func (d *FakeDriver) DeleteCameraIDList(list Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("DeleteCameraIDList", list, KindIDList)
}

func (d *FakeDriver) CameraCharacteristics(mgr Handle, cameraID string) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CameraCharacteristics"); ok {
		return NilHandle, st
	}
	if _, st := d.get("CameraCharacteristics", mgr, KindManager); st != StatusOK {
		return NilHandle, st
	}
	cam := d.findCamera(cameraID)
	if cam == nil {
		return NilHandle, StatusInvalidParameter
	}
	h, obj := d.alloc(KindCharacteristics)
	obj.camera = cam
	return h, StatusOK
}

func (d *FakeDriver) CharacteristicsEntry(chars Handle, tag MetadataTag) ([]int32, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get("CharacteristicsEntry", chars, KindCharacteristics)
	if st != StatusOK {
		return nil, st
	}
	switch tag {
	case TagLensFacing:
		return []int32{int32(obj.camera.Facing)}, StatusOK
	case TagSensorOrientation:
		return []int32{obj.camera.Orientation}, StatusOK
	case TagAvailableStreamConfigurations:
		entry := make([]int32, 0, len(obj.camera.Streams)*4)
		for _, s := range obj.camera.Streams {
			entry = append(entry, s.Format, s.Width, s.Height, streamDirectionOutput)
		}
		return entry, StatusOK
	default:
		return nil, StatusInvalidParameter
	}
}

func (d *FakeDriver) FreeCharacteristics(chars Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("FreeCharacteristics", chars, KindCharacteristics)
}

func (d *FakeDriver) OpenDevice(mgr Handle, cameraID string, events chan<- StateEvent) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("OpenDevice"); ok {
		return NilHandle, st
	}
	if _, st := d.get("OpenDevice", mgr, KindManager); st != StatusOK {
		return NilHandle, st
	}
	cam := d.findCamera(cameraID)
	if cam == nil {
		return NilHandle, StatusInvalidParameter
	}
	h, obj := d.alloc(KindDevice)
	obj.camera = cam
	obj.events = events
	return h, StatusOK
}

func (d *FakeDriver) CloseDevice(dev Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	for h, obj := range d.objects {
		if obj.kind == KindSession && obj.device == dev {
			d.misuse = append(d.misuse, fmt.Sprintf("CloseDevice: session %d still open", h))
		}
	}
	return d.release("CloseDevice", dev, KindDevice)
}

func (d *FakeDriver) NewImageReader(cfg StreamConfiguration, maxImages int32) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("NewImageReader"); ok {
		return NilHandle, st
	}
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

func (d *FakeDriver) ReaderSurface(reader Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("ReaderSurface"); ok {
		return NilHandle, st
	}
	obj, st := d.get("ReaderSurface", reader, KindReader)
	if st != StatusOK {
		return NilHandle, st
	}
	return obj.surface, StatusOK
}

func (d *FakeDriver) SetImageListener(reader Handle, token ListenerToken, fn ListenerFunc) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("SetImageListener"); ok {
		return st
	}
	obj, st := d.get("SetImageListener", reader, KindReader)
	if st != StatusOK {
		return st
	}
	obj.token = token
	obj.listener = fn
	return StatusOK
}

func (d *FakeDriver) ClearImageListener(reader Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get("ClearImageListener", reader, KindReader)
	if st != StatusOK {
		return st
	}
	obj.token = 0
	obj.listener = nil
	return StatusOK
}

func (d *FakeDriver) AcquireLatestImage(reader Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("AcquireLatestImage"); ok {
		return NilHandle, st
	}
	obj, st := d.get("AcquireLatestImage", reader, KindReader)
	if st != StatusOK {
		return NilHandle, st
	}
	if len(obj.queue) == 0 {
		return NilHandle, StatusNoBufferAvail
	}
	// Newest wins; older undelivered frames are discarded by the service.
	newest := obj.queue[len(obj.queue)-1]
	for _, stale := range obj.queue[:len(obj.queue)-1] {
		delete(d.objects, stale)
		d.destroyed[KindImage]++
	}
	obj.queue = obj.queue[:0]
	d.objects[newest].acquired = true
	return newest, StatusOK
}

func (d *FakeDriver) ImagePlane(img Handle, plane int32) (Plane, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get("ImagePlane", img, KindImage)
	if st != StatusOK {
		return Plane{}, st
	}
	if plane < 0 || int(plane) >= len(obj.planes) {
		return Plane{}, StatusInvalidParameter
	}
	return obj.planes[plane], StatusOK
}

func (d *FakeDriver) DeleteImage(img Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("DeleteImage", img, KindImage)
}

func (d *FakeDriver) DeleteImageReader(reader Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	obj, st := d.get("DeleteImageReader", reader, KindReader)
	if st != StatusOK {
		return st
	}
	for h, o := range d.objects {
		if o.kind == KindImage && o.reader == reader && o.acquired {
			d.misuse = append(d.misuse, fmt.Sprintf("DeleteImageReader: image %d still acquired", h))
		}
	}
	// Undelivered frames go with the reader.
	for _, h := range obj.queue {
		delete(d.objects, h)
		d.destroyed[KindImage]++
	}
	delete(d.objects, obj.surface)
	d.destroyed[KindSurface]++
	delete(d.objects, reader)
	d.destroyed[KindReader]++
	return StatusOK
}

func (d *FakeDriver) CreateSessionOutput(surface Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateSessionOutput"); ok {
		return NilHandle, st
	}
	if _, st := d.get("CreateSessionOutput", surface, KindSurface); st != StatusOK {
		return NilHandle, st
	}
	h, _ := d.alloc(KindSessionOutput)
	return h, StatusOK
}

func (d *FakeDriver) FreeSessionOutput(out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("FreeSessionOutput", out, KindSessionOutput)
}

func (d *FakeDriver) CreateOutputContainer() (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateOutputContainer"); ok {
		return NilHandle, st
	}
	h, _ := d.alloc(KindContainer)
	return h, StatusOK
}

func (d *FakeDriver) ContainerAdd(container, out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("ContainerAdd"); ok {
		return st
	}
	cobj, st := d.get("ContainerAdd", container, KindContainer)
	if st != StatusOK {
		return st
	}
	if _, st := d.get("ContainerAdd", out, KindSessionOutput); st != StatusOK {
		return st
	}
	if cobj.output != NilHandle {
		return StatusInvalidParameter
	}
	cobj.output = out
	return StatusOK
}

func (d *FakeDriver) ContainerRemove(container, out Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	cobj, st := d.get("ContainerRemove", container, KindContainer)
	if st != StatusOK {
		return st
	}
	if cobj.output != out {
		return StatusInvalidParameter
	}
	cobj.output = NilHandle
	return StatusOK
}

func (d *FakeDriver) FreeOutputContainer(container Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if obj, ok := d.objects[container]; ok && obj.kind == KindContainer && obj.output != NilHandle {
		d.misuse = append(d.misuse, fmt.Sprintf("FreeOutputContainer: container %d freed with output attached", container))
	}
	return d.release("FreeOutputContainer", container, KindContainer)
}

func (d *FakeDriver) CreateOutputTarget(surface Handle) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateOutputTarget"); ok {
		return NilHandle, st
	}
	sobj, st := d.get("CreateOutputTarget", surface, KindSurface)
	if st != StatusOK {
		return NilHandle, st
	}
	h, obj := d.alloc(KindTarget)
	obj.reader = sobj.reader
	return h, StatusOK
}

func (d *FakeDriver) FreeOutputTarget(target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.release("FreeOutputTarget", target, KindTarget)
}

func (d *FakeDriver) CreateCaptureRequest(dev Handle, tmpl RequestTemplate) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateCaptureRequest"); ok {
		return NilHandle, st
	}
	if _, st := d.get("CreateCaptureRequest", dev, KindDevice); st != StatusOK {
		return NilHandle, st
	}
	if tmpl != TemplatePreview && tmpl != TemplateStill {
		return NilHandle, StatusInvalidParameter
	}
	h, _ := d.alloc(KindRequest)
	return h, StatusOK
}

func (d *FakeDriver) RequestAddTarget(req, target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("RequestAddTarget"); ok {
		return st
	}
	robj, st := d.get("RequestAddTarget", req, KindRequest)
	if st != StatusOK {
		return st
	}
	if _, st := d.get("RequestAddTarget", target, KindTarget); st != StatusOK {
		return st
	}
	robj.targets = append(robj.targets, target)
	return StatusOK
}

func (d *FakeDriver) RequestRemoveTarget(req, target Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	robj, st := d.get("RequestRemoveTarget", req, KindRequest)
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

func (d *FakeDriver) FreeCaptureRequest(req Handle) Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if obj, ok := d.objects[req]; ok && obj.kind == KindRequest && len(obj.targets) > 0 {
		d.misuse = append(d.misuse, fmt.Sprintf("FreeCaptureRequest: request %d freed with target attached", req))
	}
	return d.release("FreeCaptureRequest", req, KindRequest)
}

func (d *FakeDriver) CreateCaptureSession(dev, container Handle, events chan<- StateEvent) (Handle, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.fail("CreateCaptureSession"); ok {
		return NilHandle, st
	}
	if _, st := d.get("CreateCaptureSession", dev, KindDevice); st != StatusOK {
		return NilHandle, st
	}
	cobj, st := d.get("CreateCaptureSession", container, KindContainer)
	if st != StatusOK {
		return NilHandle, st
	}
	if cobj.output == NilHandle {
		return NilHandle, StatusStreamConfigure
	}
	h, obj := d.alloc(KindSession)
	obj.device = dev
	obj.events = events
	d.notify(events, StateEvent{Kind: EventSessionReady})
	return h, StatusOK
}

func (d *FakeDriver) SetRepeatingRequest(session, req Handle) Status {
	d.mu.Lock()
	if st, ok := d.fail("SetRepeatingRequest"); ok {
		d.mu.Unlock()
		return st
	}
	sobj, st := d.get("SetRepeatingRequest", session, KindSession)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	robj, st := d.get("SetRepeatingRequest", req, KindRequest)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	if len(robj.targets) == 0 {
		d.mu.Unlock()
		return StatusInvalidParameter
	}
	sobj.repeating = req
	d.notify(sobj.events, StateEvent{Kind: EventSessionActive})

	interval := d.Interval
	if interval > 0 && sobj.stop == nil {
		stop := make(chan struct{})
		sobj.stop = stop
		d.mu.Unlock()
		go d.pumpLoop(session, interval, stop)
		return StatusOK
	}
	d.mu.Unlock()
	return StatusOK
}

func (d *FakeDriver) CloseSession(session Handle) Status {
	d.mu.Lock()
	obj, st := d.get("CloseSession", session, KindSession)
	if st != StatusOK {
		d.mu.Unlock()
		return st
	}
	if obj.stop != nil {
		close(obj.stop)
		obj.stop = nil
	}
	events := obj.events
	delete(d.objects, session)
	d.destroyed[KindSession]++
	d.mu.Unlock()
	d.notify(events, StateEvent{Kind: EventSessionClosed})
	return StatusOK
}

// PumpFrame synthesizes one frame for every reader wired into a repeating
// session and invokes its listener on the calling goroutine. It reports how
// many listeners were invoked.
func (d *FakeDriver) PumpFrame() int {
	type delivery struct {
		fn     ListenerFunc
		token  ListenerToken
		reader Handle
	}
	var deliveries []delivery

	d.mu.Lock()
	for _, obj := range d.objects {
		if obj.kind != KindSession || obj.repeating == NilHandle {
			continue
		}
		req := d.objects[obj.repeating]
		if req == nil || len(req.targets) == 0 {
			continue
		}
		target := d.objects[req.targets[0]]
		if target == nil {
			continue
		}
		reader := d.objects[target.reader]
		if reader == nil || reader.listener == nil {
			continue
		}
		d.enqueueFrame(target.reader, reader)
		deliveries = append(deliveries, delivery{fn: reader.listener, token: reader.token, reader: target.reader})
	}
	d.mu.Unlock()

	// Listeners run outside the driver lock; they call back into the
	// service to acquire the frame.
	for _, dl := range deliveries {
		dl.fn(dl.token, dl.reader)
	}
	return len(deliveries)
}

func (d *FakeDriver) pumpLoop(session Handle, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.PumpFrame()
		}
	}
}

// enqueueFrame appends a synthetic image to the reader queue, discarding the
// oldest frame when the queue is at capacity. Caller holds d.mu.
func (d *FakeDriver) enqueueFrame(readerHandle Handle, reader *fakeObject) {
	if int32(len(reader.queue)) >= reader.maxImages {
		oldest := reader.queue[0]
		reader.queue = reader.queue[1:]
		delete(d.objects, oldest)
		d.destroyed[KindImage]++
	}
	d.frameSeq++
	h, obj := d.alloc(KindImage)
	obj.reader = readerHandle
	obj.planes = synthesizeFrame(reader.cfg, d.frameSeq)
	reader.queue = append(reader.queue, h)
}

func (d *FakeDriver) notify(events chan<- StateEvent, ev StateEvent) {
	if events == nil {
		return
	}
	select {
	case events <- ev:
	default:
	}
}

func (d *FakeDriver) findCamera(id string) *FakeCamera {
	for i := range d.cameras {
		if d.cameras[i].ID == id {
			return &d.cameras[i]
		}
	}
	return nil
}

// synthesizeFrame builds plane data for one fake frame: a moving gradient so
// consecutive frames differ.
func synthesizeFrame(cfg StreamConfiguration, seq uint64) []Plane {
	w, h := int(cfg.Width), int(cfg.Height)
	if cfg.Format == FormatYUV420 {
		y := make([]byte, w*h)
		for row := 0; row < h; row++ {
			for col := 0; col < w; col++ {
				y[row*w+col] = byte(row + col + int(seq))
			}
		}
		cw, ch := w/2, h/2
		u := make([]byte, cw*ch)
		v := make([]byte, cw*ch)
		for i := range u {
			u[i] = 128
			v[i] = 128
		}
		return []Plane{
			{Data: y, RowStride: int32(w), PixelStride: 1},
			{Data: u, RowStride: int32(cw), PixelStride: 1},
			{Data: v, RowStride: int32(cw), PixelStride: 1},
		}
	}

	// Everything else is delivered as a single compressed plane.
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			img.Set(col, row, color.RGBA{R: byte(col + int(seq)), G: byte(row), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		// Synthetic input over an in-memory writer; encoding cannot fail
		// for valid dimensions.
		panic(err)
	}
	return []Plane{{Data: buf.Bytes(), RowStride: int32(buf.Len()), PixelStride: 1}}
}
