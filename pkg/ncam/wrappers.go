package ncam

import (
	"fmt"
	"log"
	"sync"
)

// Each native handle is held by exactly one owning wrapper. A wrapper's
// Close releases the handle exactly once, unlinking dependent children from
// their peers first. Unlink failures are logged, never propagated: by the
// time a wrapper is being torn down the peer may already be gone and there
// is no recovery action left.
//
// Thread contract per type:
//   - Manager, Device, CaptureSession: any goroutine, but Close must not
//     run concurrently with other calls on the same wrapper.
//   - ImageReader: AcquireLatest is safe from driver callback goroutines
//     concurrently with Close; everything else follows the rule above.
//   - Image: confined to the callback invocation that acquired it.

// Manager owns the connection to the camera service. It is created first
// and must be released last.
type Manager struct {
	drv Driver
	h   Handle
	log *log.Logger
}

// OpenManager connects to the camera service.
func OpenManager(drv Driver, logger *log.Logger) (*Manager, error) {
	h, st := drv.CreateManager()
	if st != StatusOK {
		return nil, st.Err("CreateManager")
	}
	return &Manager{drv: drv, h: h, log: logger}, nil
}

// Close releases the service connection. Safe to call more than once.
func (m *Manager) Close() {
	if m.h == NilHandle {
		return
	}
	if st := m.drv.DeleteManager(m.h); st != StatusOK {
		m.log.Printf("ncam: DeleteManager failed: %s", st)
	}
	m.h = NilHandle
}

// IdentifierList is a borrowed snapshot of the available camera ids. Scoped
// to a single enumeration call.
type identifierList struct {
	drv Driver
	h   Handle
	log *log.Logger
}

func (m *Manager) idList() (*identifierList, []string, error) {
	h, st := m.drv.CameraIDList(m.h)
	if st != StatusOK {
		return nil, nil, st.Err("CameraIDList")
	}
	l := &identifierList{drv: m.drv, h: h, log: m.log}
	ids, st := m.drv.CameraIDs(h)
	if st != StatusOK {
		l.Close()
		return nil, nil, st.Err("CameraIDs")
	}
	return l, ids, nil
}

func (l *identifierList) Close() {
	if l.h == NilHandle {
		return
	}
	if st := l.drv.DeleteCameraIDList(l.h); st != StatusOK {
		l.log.Printf("ncam: DeleteCameraIDList failed: %s", st)
	}
	l.h = NilHandle
}

// characteristics is a borrowed per-camera metadata blob, created per lookup
// and released after reading.
type characteristics struct {
	drv Driver
	h   Handle
	log *log.Logger
}

func (m *Manager) characteristics(cameraID string) (*characteristics, error) {
	h, st := m.drv.CameraCharacteristics(m.h, cameraID)
	if st != StatusOK {
		return nil, st.Err("CameraCharacteristics")
	}
	return &characteristics{drv: m.drv, h: h, log: m.log}, nil
}

func (c *characteristics) entry(tag MetadataTag) ([]int32, error) {
	data, st := c.drv.CharacteristicsEntry(c.h, tag)
	if st != StatusOK {
		return nil, st.Err("CharacteristicsEntry")
	}
	return data, nil
}

func (c *characteristics) Close() {
	if c.h == NilHandle {
		return
	}
	if st := c.drv.FreeCharacteristics(c.h); st != StatusOK {
		c.log.Printf("ncam: FreeCharacteristics failed: %s", st)
	}
	c.h = NilHandle
}

// Device is an opened camera. It owns at most one active output container;
// closing the device releases the container (output removed first) before
// the device handle itself.
type Device struct {
	drv       Driver
	h         Handle
	log       *log.Logger
	container *outputContainer
}

// OpenDevice opens the camera with the given id. The open call is
// asynchronous; a nil error only means the request was submitted. Later
// disconnect/error notifications arrive on the events channel.
func (m *Manager) OpenDevice(cameraID string, events chan<- StateEvent) (*Device, error) {
	h, st := m.drv.OpenDevice(m.h, cameraID, events)
	if st != StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrDeviceOpenFailed, st.Err("OpenDevice"))
	}
	return &Device{drv: m.drv, h: h, log: m.log}, nil
}

// CreateRequest creates a capture request from the given template.
func (d *Device) CreateRequest(tmpl RequestTemplate) (*CaptureRequest, error) {
	h, st := d.drv.CreateCaptureRequest(d.h, tmpl)
	if st != StatusOK {
		return nil, st.Err("CreateCaptureRequest")
	}
	return &CaptureRequest{drv: d.drv, h: h, log: d.log}, nil
}

// CreateSession binds the device to the container's registered outputs and
// takes ownership of the container. Exactly one session may be active per
// device.
func (d *Device) CreateSession(container *outputContainer, events chan<- StateEvent) (*CaptureSession, error) {
	h, st := d.drv.CreateCaptureSession(d.h, container.h, events)
	if st != StatusOK {
		return nil, st.Err("CreateCaptureSession")
	}
	d.container = container
	return &CaptureSession{drv: d.drv, h: h, log: d.log}, nil
}

// Close releases the owned container and then the device. All dependent
// sessions must already be closed.
func (d *Device) Close() {
	if d.h == NilHandle {
		return
	}
	if d.container != nil {
		d.container.Close()
		d.container = nil
	}
	if st := d.drv.CloseDevice(d.h); st != StatusOK {
		d.log.Printf("ncam: CloseDevice failed: %s", st)
	}
	d.h = NilHandle
}

// RenderSurface is the buffer queue endpoint the hardware writes frames
// into. It is owned by the image reader that exposed it and carries no
// release call of its own.
type RenderSurface struct {
	h Handle
}

// outputContainer registers a render surface as a session sink. The output
// must be removed from the container before either is freed.
type outputContainer struct {
	drv    Driver
	h      Handle
	log    *log.Logger
	output *sessionOutput
}

// newOutputContainer creates a container holding a single session output for
// the given surface.
func newOutputContainer(drv Driver, logger *log.Logger, surface RenderSurface) (*outputContainer, error) {
	ch, st := drv.CreateOutputContainer()
	if st != StatusOK {
		return nil, st.Err("CreateOutputContainer")
	}
	c := &outputContainer{drv: drv, h: ch, log: logger}

	oh, st := drv.CreateSessionOutput(surface.h)
	if st != StatusOK {
		c.Close()
		return nil, st.Err("CreateSessionOutput")
	}
	out := &sessionOutput{drv: drv, h: oh, log: logger}

	if st := drv.ContainerAdd(ch, oh); st != StatusOK {
		out.Close()
		c.Close()
		return nil, st.Err("ContainerAdd")
	}
	c.output = out
	return c, nil
}

func (c *outputContainer) Close() {
	if c.h == NilHandle {
		return
	}
	if c.output != nil {
		if st := c.drv.ContainerRemove(c.h, c.output.h); st != StatusOK {
			c.log.Printf("ncam: ContainerRemove failed: %s", st)
		}
		c.output.Close()
		c.output = nil
	}
	if st := c.drv.FreeOutputContainer(c.h); st != StatusOK {
		c.log.Printf("ncam: FreeOutputContainer failed: %s", st)
	}
	c.h = NilHandle
}

type sessionOutput struct {
	drv Driver
	h   Handle
	log *log.Logger
}

func (o *sessionOutput) Close() {
	if o.h == NilHandle {
		return
	}
	if st := o.drv.FreeSessionOutput(o.h); st != StatusOK {
		o.log.Printf("ncam: FreeSessionOutput failed: %s", st)
	}
	o.h = NilHandle
}

// outputTarget binds a capture request to a render surface. It references
// the surface without owning it and must be removed from its request before
// being freed.
type outputTarget struct {
	drv Driver
	h   Handle
	log *log.Logger
}

func newOutputTarget(drv Driver, logger *log.Logger, surface RenderSurface) (*outputTarget, error) {
	h, st := drv.CreateOutputTarget(surface.h)
	if st != StatusOK {
		return nil, st.Err("CreateOutputTarget")
	}
	return &outputTarget{drv: drv, h: h, log: logger}, nil
}

func (t *outputTarget) Close() {
	if t.h == NilHandle {
		return
	}
	if st := t.drv.FreeOutputTarget(t.h); st != StatusOK {
		t.log.Printf("ncam: FreeOutputTarget failed: %s", st)
	}
	t.h = NilHandle
}

// CaptureRequest is one configured capture description. It owns at most one
// output target, which is detached before the request is freed.
type CaptureRequest struct {
	drv    Driver
	h      Handle
	log    *log.Logger
	target *outputTarget
}

// AddTarget attaches the surface to the request and transfers ownership of
// the created target to it.
func (r *CaptureRequest) AddTarget(surface RenderSurface) error {
	t, err := newOutputTarget(r.drv, r.log, surface)
	if err != nil {
		return err
	}
	if st := r.drv.RequestAddTarget(r.h, t.h); st != StatusOK {
		t.Close()
		return st.Err("RequestAddTarget")
	}
	r.target = t
	return nil
}

// detachTarget unlinks and frees the owned target. Tolerates an unlink
// failure from a peer that is already gone.
func (r *CaptureRequest) detachTarget() {
	if r.target == nil {
		return
	}
	if st := r.drv.RequestRemoveTarget(r.h, r.target.h); st != StatusOK {
		r.log.Printf("ncam: RequestRemoveTarget failed: %s", st)
	}
	r.target.Close()
	r.target = nil
}

// Close detaches the target and frees the request.
func (r *CaptureRequest) Close() {
	if r.h == NilHandle {
		return
	}
	r.detachTarget()
	if st := r.drv.FreeCaptureRequest(r.h); st != StatusOK {
		r.log.Printf("ncam: FreeCaptureRequest failed: %s", st)
	}
	r.h = NilHandle
}

// CaptureSession is an active streaming session. Once started it owns the
// repeating capture request.
type CaptureSession struct {
	drv     Driver
	h       Handle
	log     *log.Logger
	request *CaptureRequest
}

// StartRepeating submits the request as the session's repeating capture and
// takes ownership of it.
func (s *CaptureSession) StartRepeating(request *CaptureRequest) error {
	if st := s.drv.SetRepeatingRequest(s.h, request.h); st != StatusOK {
		return st.Err("SetRepeatingRequest")
	}
	s.request = request
	return nil
}

// Close tears the session down in the required order: the request's target
// is unlinked first, then the session is closed, then the request is freed.
func (s *CaptureSession) Close() {
	if s.h == NilHandle {
		return
	}
	if s.request != nil {
		s.request.detachTarget()
	}
	if st := s.drv.CloseSession(s.h); st != StatusOK {
		s.log.Printf("ncam: CloseSession failed: %s", st)
	}
	s.h = NilHandle
	if s.request != nil {
		s.request.Close()
		s.request = nil
	}
}

// ImageReader is the frame delivery endpoint. It owns the render surface it
// exposes and the registered listener. The reader handle is not deleted
// until every image acquired from it has been released; Close blocks until
// the in-flight count drains.
type ImageReader struct {
	drv Driver
	log *log.Logger

	mu       sync.Mutex
	drained  *sync.Cond
	h        Handle
	inflight int
	closing  bool

	surface  RenderSurface
	listener bool
}

// NewImageReader creates a reader for the given stream configuration.
// maxImages bounds how many undelivered frames the driver may queue.
func NewImageReader(drv Driver, logger *log.Logger, cfg StreamConfiguration, maxImages int32) (*ImageReader, error) {
	h, st := drv.NewImageReader(cfg, maxImages)
	if st != StatusOK {
		return nil, st.Err("NewImageReader")
	}
	r := &ImageReader{drv: drv, log: logger, h: h}
	r.drained = sync.NewCond(&r.mu)

	sh, st := drv.ReaderSurface(h)
	if st != StatusOK {
		r.Close()
		return nil, st.Err("ReaderSurface")
	}
	r.surface = RenderSurface{h: sh}
	return r, nil
}

// Surface returns the reader's render surface. The surface stays valid for
// the life of the reader.
func (r *ImageReader) Surface() RenderSurface {
	return r.surface
}

// SetListener registers the frame-available trampoline under the given
// token.
func (r *ImageReader) SetListener(token ListenerToken, fn ListenerFunc) error {
	if st := r.drv.SetImageListener(r.h, token, fn); st != StatusOK {
		return st.Err("SetImageListener")
	}
	r.listener = true
	return nil
}

// AcquireLatest acquires the newest available image, dropping older
// undelivered frames. It fails once Close has begun, which is how a late
// callback observes teardown instead of touching a freed handle.
func (r *ImageReader) AcquireLatest() (*Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closing || r.h == NilHandle {
		return nil, fmt.Errorf("%w: reader is shut down", ErrFrameAcquireFailed)
	}
	h, st := r.drv.AcquireLatestImage(r.h)
	if st != StatusOK {
		return nil, fmt.Errorf("%w: %w", ErrFrameAcquireFailed, st.Err("AcquireLatestImage"))
	}
	r.inflight++
	return &Image{reader: r, h: h}, nil
}

// Close unregisters the listener, waits for in-flight images to be released
// and deletes the reader handle.
func (r *ImageReader) Close() {
	r.mu.Lock()
	if r.closing || r.h == NilHandle {
		r.mu.Unlock()
		return
	}
	r.closing = true

	if r.listener {
		if st := r.drv.ClearImageListener(r.h); st != StatusOK {
			r.log.Printf("ncam: ClearImageListener failed: %s", st)
		}
		r.listener = false
	}

	for r.inflight > 0 {
		r.drained.Wait()
	}

	if st := r.drv.DeleteImageReader(r.h); st != StatusOK {
		r.log.Printf("ncam: DeleteImageReader failed: %s", st)
	}
	r.h = NilHandle
	r.mu.Unlock()
}

// Image is one delivered frame, a borrowed view scoped to the callback
// invocation that acquired it. Plane data becomes invalid at Close.
type Image struct {
	reader *ImageReader
	h      Handle
}

// Plane returns the raw data of the given plane index.
func (img *Image) Plane(idx int32) (Plane, error) {
	p, st := img.reader.drv.ImagePlane(img.h, idx)
	if st != StatusOK {
		return Plane{}, st.Err("ImagePlane")
	}
	return p, nil
}

// Close releases the frame back to the driver and decrements the reader's
// in-flight count.
func (img *Image) Close() {
	if img.h == NilHandle {
		return
	}
	r := img.reader
	if st := r.drv.DeleteImage(img.h); st != StatusOK {
		r.log.Printf("ncam: DeleteImage failed: %s", st)
	}
	img.h = NilHandle

	r.mu.Lock()
	r.inflight--
	if r.inflight == 0 {
		r.drained.Broadcast()
	}
	r.mu.Unlock()
}
