package ncam

import (
	"fmt"
	"log"
	"sync"
)

// State is the capture pipeline lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateEnumerating
	StateConfiguringStream
	StateOpeningDevice
	StateBuildingGraph
	StateStreaming
	StateTearingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEnumerating:
		return "enumerating"
	case StateConfiguringStream:
		return "configuring stream"
	case StateOpeningDevice:
		return "opening device"
	case StateBuildingGraph:
		return "building graph"
	case StateStreaming:
		return "streaming"
	case StateTearingDown:
		return "tearing down"
	default:
		return "unknown"
	}
}

// Host is the platform bridge the controller consults before and during
// pipeline construction.
type Host interface {
	HasPermission() bool
	RequestPermission()
	DeviceRotationDegrees() int
}

// ControllerConfig carries the collaborators and policy for a Controller.
type ControllerConfig struct {
	Driver    Driver
	Host      Host
	Converter Converter
	Decode    DecodeFunc // optional payload scanner
	Post      PostFunc
	Logger    *log.Logger

	Facing    Facing // camera selection policy, back-facing by default
	Format    int32  // target stream format, JPEG by default
	MaxImages int32  // reader queue depth, 2 by default
}

// Controller is the top-level start/stop state machine exposed to the UI
// layer. It owns at most one active resource graph; the caller owns the
// Controller, there is no package-level pipeline slot.
//
// The internal lock serializes StartCapture and StopCapture against each
// other. It deliberately does not serialize them against an already
// dispatched frame callback; that race is closed by the listener registry
// and the reader's in-flight count instead.
type Controller struct {
	drv     Driver
	host    Host
	convert Converter
	decode  DecodeFunc
	post    PostFunc
	log     *log.Logger

	facing    Facing
	format    int32
	maxImages int32

	mu     sync.RWMutex
	state  State
	active *pipeline
}

// NewController validates the config and returns an idle controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Driver == nil || cfg.Host == nil || cfg.Converter == nil || cfg.Post == nil {
		return nil, fmt.Errorf("ncam: controller config requires Driver, Host, Converter and Post")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("ncam: controller config requires a Logger")
	}
	if cfg.Format == 0 {
		cfg.Format = FormatJPEG
	}
	if cfg.MaxImages == 0 {
		cfg.MaxImages = 2
	}
	return &Controller{
		drv:       cfg.Driver,
		host:      cfg.Host,
		convert:   cfg.Converter,
		decode:    cfg.Decode,
		post:      cfg.Post,
		log:       cfg.Logger,
		facing:    cfg.Facing,
		format:    cfg.Format,
		maxImages: cfg.MaxImages,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Streaming reports whether a pipeline is active.
func (c *Controller) Streaming() bool {
	return c.State() == StateStreaming
}

// StartCapture builds the resource graph and starts continuous capture.
// A false result with a nil error means the camera permission was just
// requested; the caller should retry after the grant. Starting an already
// streaming pipeline is idempotent and returns success without building a
// second graph. On any build failure every already-created resource is
// released before the typed error is returned.
func (c *Controller) StartCapture() (bool, error) {
	// Permission is a precondition, not an error path: its resolution is
	// asynchronous and outside this package's control.
	if !c.host.HasPermission() {
		c.host.RequestPermission()
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStreaming {
		return true, nil
	}

	p := &pipeline{}
	if err := c.build(p); err != nil {
		c.state = StateTearingDown
		p.teardown(c.log)
		c.state = StateIdle
		return false, err
	}

	c.active = p
	c.state = StateStreaming
	c.log.Printf("ncam: pipeline streaming %dx%d format %#x rotation %s",
		p.cfg.Width, p.cfg.Height, p.cfg.Format, p.rotation)
	return true, nil
}

// StopCapture tears the active graph down in reverse construction order.
// Stopping an idle pipeline is a no-op. Teardown is unconditional and best
// effort; individual release failures are logged by the wrappers, not
// surfaced.
func (c *Controller) StopCapture() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateStreaming {
		return
	}
	c.state = StateTearingDown
	c.active.teardown(c.log)
	c.active = nil
	c.state = StateIdle
	c.log.Printf("ncam: pipeline stopped")
}

// pipeline is one active resource graph. Fields are ordered roughly by
// construction; teardown releases them in exact reverse.
type pipeline struct {
	manager *Manager
	device  *Device
	session *CaptureSession
	reader  *ImageReader
	token   ListenerToken

	cfg      StreamConfiguration
	rotation Rotation

	events     chan StateEvent
	eventsDone chan struct{}
}

// build runs the construction state machine. The caller holds the
// controller lock; on error the caller unwinds via teardown.
func (c *Controller) build(p *pipeline) error {
	// Enumerating
	c.state = StateEnumerating
	mgr, err := OpenManager(c.drv, c.log)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	p.manager = mgr

	cameraID, err := mgr.SelectCamera(c.facing)
	if err != nil {
		return err
	}

	// ConfiguringStream
	c.state = StateConfiguringStream
	cfg, err := mgr.SelectStreamConfiguration(cameraID, c.format)
	if err != nil {
		return err
	}
	orientation, err := mgr.SensorOrientation(cameraID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedConfiguration, err)
	}
	p.cfg = cfg
	p.rotation = ResolveRotation(orientation, c.host.DeviceRotationDegrees())

	// OpeningDevice
	c.state = StateOpeningDevice
	p.events = make(chan StateEvent, 16)
	p.eventsDone = make(chan struct{})
	go c.drainEvents(p.events, p.eventsDone)

	device, err := mgr.OpenDevice(cameraID, p.events)
	if err != nil {
		return err
	}
	p.device = device

	// BuildingGraph
	c.state = StateBuildingGraph
	reader, err := NewImageReader(c.drv, c.log, cfg, c.maxImages)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	p.reader = reader

	container, err := newOutputContainer(c.drv, c.log, reader.Surface())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	session, err := device.CreateSession(container, p.events)
	if err != nil {
		// The device never took ownership of the container.
		container.Close()
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	p.session = session

	request, err := device.CreateRequest(TemplatePreview)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	if err := request.AddTarget(reader.Surface()); err != nil {
		request.Close()
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}

	bridge := newBridge(reader, cfg, p.rotation, c.convert, c.decode, c.post, c.log)
	p.token = frameListeners.register(bridge)
	if err := reader.SetListener(p.token, dispatchFrame); err != nil {
		request.Close()
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}

	if err := session.StartRepeating(request); err != nil {
		request.Close()
		return fmt.Errorf("%w: %w", ErrPipelineBuildFailed, err)
	}
	return nil
}

// teardown releases whatever part of the graph exists, in exact reverse
// construction order: request target unlink and session close, container
// output removal and device close, reader delete (after in-flight frames
// drain), then manager delete. The registry token is removed only after the
// reader has confirmed the listener unregistered.
func (p *pipeline) teardown(logger *log.Logger) {
	if p.session != nil {
		p.session.Close()
		p.session = nil
	}
	if p.device != nil {
		p.device.Close()
		p.device = nil
	}
	if p.reader != nil {
		p.reader.Close()
		p.reader = nil
	}
	if p.token != 0 {
		frameListeners.unregister(p.token)
		p.token = 0
	}
	if p.manager != nil {
		p.manager.Close()
		p.manager = nil
	}
	if p.eventsDone != nil {
		close(p.eventsDone)
		p.eventsDone = nil
	}
}

// drainEvents logs asynchronous device and session state callbacks.
// Disconnect and error events do not abort the active session; they are
// informational until a reconnect strategy exists.
func (c *Controller) drainEvents(events <-chan StateEvent, done <-chan struct{}) {
	for {
		select {
		case ev := <-events:
			if ev.Kind == EventDeviceError {
				c.log.Printf("ncam: state event: %s (code %d)", ev.Kind, ev.Code)
			} else {
				c.log.Printf("ncam: state event: %s", ev.Kind)
			}
		case <-done:
			return
		}
	}
}
