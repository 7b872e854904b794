package ncam_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hwerle/camauth/internal/convert"
	"github.com/hwerle/camauth/internal/host"
	"github.com/hwerle/camauth/pkg/ncam"
)

// capture collects everything the pipeline posts to the UI loop.
type capture struct {
	mu       sync.Mutex
	frames   []ncam.Frame
	payloads []string
}

func (c *capture) post(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := msg.(type) {
	case ncam.Frame:
		c.frames = append(c.frames, v)
	case ncam.CodeScanned:
		c.payloads = append(c.payloads, v.Payload)
	}
}

func (c *capture) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *capture) lastFrame() ncam.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames[len(c.frames)-1]
}

func (c *capture) payloadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func newTestController(t *testing.T, drv ncam.Driver, h ncam.Host, sink *capture, decode ncam.DecodeFunc) *ncam.Controller {
	t.Helper()
	ctrl, err := ncam.NewController(ncam.ControllerConfig{
		Driver:    drv,
		Host:      h,
		Converter: convert.Converter{},
		Decode:    decode,
		Post:      sink.post,
		Logger:    testLogger(),
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return ctrl
}

func checkClean(t *testing.T, drv *ncam.FakeDriver) {
	t.Helper()
	if out := drv.Outstanding(); len(out) != 0 {
		t.Errorf("leaked handles: %v", out)
	}
	if mis := drv.Misuse(); len(mis) != 0 {
		t.Errorf("driver misuse recorded: %v", mis)
	}
}

func TestControllerConfigValidation(t *testing.T) {
	base := ncam.ControllerConfig{
		Driver:    ncam.NewFakeDriver(),
		Host:      host.Desktop{},
		Converter: convert.Converter{},
		Post:      func(any) {},
		Logger:    testLogger(),
	}

	if _, err := ncam.NewController(base); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	missingPost := base
	missingPost.Post = nil
	if _, err := ncam.NewController(missingPost); err == nil {
		t.Error("config without Post accepted")
	}

	missingLogger := base
	missingLogger.Logger = nil
	if _, err := ncam.NewController(missingLogger); err == nil {
		t.Error("config without Logger accepted")
	}
}

func TestStartStopReleasesAllHandles(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	ok, err := ctrl.StartCapture()
	if err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v), want (true, nil)", ok, err)
	}
	if !ctrl.Streaming() {
		t.Fatalf("controller not streaming after start, state %s", ctrl.State())
	}

	for i := 0; i < 3; i++ {
		if n := drv.PumpFrame(); n != 1 {
			t.Fatalf("PumpFrame delivered to %d listeners, want 1", n)
		}
	}
	if sink.frameCount() != 3 {
		t.Errorf("posted %d frames, want 3", sink.frameCount())
	}

	// Default camera: smallest JPEG stream is 640x480, sensor mounted at 90
	// degrees, so delivered frames come out portrait.
	f := sink.lastFrame()
	if f.Width != 480 || f.Height != 640 {
		t.Errorf("frame is %dx%d, want 480x640", f.Width, f.Height)
	}
	if len(f.Pix) != f.Width*f.Height*4 {
		t.Errorf("frame has %d bytes, want %d", len(f.Pix), f.Width*f.Height*4)
	}

	ctrl.StopCapture()
	if ctrl.State() != ncam.StateIdle {
		t.Errorf("state after stop = %s, want idle", ctrl.State())
	}
	checkClean(t, drv)
}

func TestStartCaptureIdempotent(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("first StartCapture = (%v, %v)", ok, err)
	}
	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("second StartCapture = (%v, %v), want (true, nil)", ok, err)
	}
	if got := drv.Created(ncam.KindManager); got != 1 {
		t.Errorf("%d managers created, want 1: restart must not build a second graph", got)
	}

	ctrl.StopCapture()
	checkClean(t, drv)
}

func TestStopCaptureWhenIdleIsNoop(t *testing.T) {
	drv := ncam.NewFakeDriver()
	ctrl := newTestController(t, drv, host.Desktop{}, &capture{}, nil)

	ctrl.StopCapture()
	if ctrl.State() != ncam.StateIdle {
		t.Errorf("state = %s, want idle", ctrl.State())
	}
	if got := drv.Created(ncam.KindManager); got != 0 {
		t.Errorf("%d managers created by an idle stop", got)
	}
}

func TestStartCapturePermissionGate(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	h := &host.Scripted{Granted: false}
	ctrl := newTestController(t, drv, h, sink, nil)

	ok, err := ctrl.StartCapture()
	if err != nil {
		t.Fatalf("StartCapture without permission errored: %v", err)
	}
	if ok {
		t.Fatal("StartCapture reported streaming without permission")
	}
	if h.Requested != 1 {
		t.Errorf("permission requested %d times, want 1", h.Requested)
	}
	if got := drv.Created(ncam.KindManager); got != 0 {
		t.Errorf("resources created before permission grant: %d managers", got)
	}

	// Retry after the grant resolves.
	h.Granted = true
	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture after grant = (%v, %v)", ok, err)
	}
	ctrl.StopCapture()
	checkClean(t, drv)
}

func TestBuildFailureReleasesEverything(t *testing.T) {
	ops := []string{
		"CreateManager",
		"CameraIDList",
		"CameraCharacteristics",
		"OpenDevice",
		"NewImageReader",
		"CreateOutputContainer",
		"CreateSessionOutput",
		"ContainerAdd",
		"CreateCaptureSession",
		"CreateCaptureRequest",
		"CreateOutputTarget",
		"RequestAddTarget",
		"SetImageListener",
		"SetRepeatingRequest",
	}
	for _, op := range ops {
		t.Run(op, func(t *testing.T) {
			drv := ncam.NewFakeDriver()
			drv.FailNext(op, ncam.StatusNotEnoughMemory)
			ctrl := newTestController(t, drv, host.Desktop{}, &capture{}, nil)

			ok, err := ctrl.StartCapture()
			if err == nil || ok {
				t.Fatalf("StartCapture with failing %s = (%v, %v), want error", op, ok, err)
			}
			if ctrl.State() != ncam.StateIdle {
				t.Errorf("state after failed start = %s, want idle", ctrl.State())
			}
			checkClean(t, drv)
		})
	}
}

func TestBuildFailureErrorClasses(t *testing.T) {
	drv := ncam.NewFakeDriver()
	drv.FailNext("OpenDevice", ncam.StatusPermissionDenied)
	ctrl := newTestController(t, drv, host.Desktop{}, &capture{}, nil)
	if _, err := ctrl.StartCapture(); !errors.Is(err, ncam.ErrDeviceOpenFailed) {
		t.Errorf("open failure = %v, want ErrDeviceOpenFailed", err)
	}

	drv = ncam.NewFakeDriver()
	drv.FailNext("NewImageReader", ncam.StatusNotEnoughMemory)
	ctrl = newTestController(t, drv, host.Desktop{}, &capture{}, nil)
	if _, err := ctrl.StartCapture(); !errors.Is(err, ncam.ErrPipelineBuildFailed) {
		t.Errorf("reader failure = %v, want ErrPipelineBuildFailed", err)
	}
}

func TestStartCaptureNoMatchingCamera(t *testing.T) {
	drv := ncam.NewFakeDriver(ncam.FakeCamera{
		ID:     "selfie",
		Facing: ncam.FacingFront,
		Streams: []ncam.StreamConfiguration{
			{Format: ncam.FormatJPEG, Width: 640, Height: 480},
		},
	})
	ctrl := newTestController(t, drv, host.Desktop{}, &capture{}, nil)

	ok, err := ctrl.StartCapture()
	if ok || !errors.Is(err, ncam.ErrNoMatchingCamera) {
		t.Errorf("StartCapture = (%v, %v), want ErrNoMatchingCamera", ok, err)
	}
	checkClean(t, drv)
}

func TestStartCaptureUnsupportedFormat(t *testing.T) {
	drv := ncam.NewFakeDriver(ncam.FakeCamera{
		ID:     "0",
		Facing: ncam.FacingBack,
		Streams: []ncam.StreamConfiguration{
			{Format: ncam.FormatYUV420, Width: 640, Height: 480},
		},
	})
	// Default format is JPEG, which this camera does not offer.
	ctrl := newTestController(t, drv, host.Desktop{}, &capture{}, nil)

	ok, err := ctrl.StartCapture()
	if ok || !errors.Is(err, ncam.ErrUnsupportedConfiguration) {
		t.Errorf("StartCapture = (%v, %v), want ErrUnsupportedConfiguration", ok, err)
	}
	checkClean(t, drv)
}

func TestAcquireFailureSkipsFrame(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v)", ok, err)
	}

	drv.FailNext("AcquireLatestImage", ncam.StatusNoBufferAvail)
	drv.PumpFrame()
	if sink.frameCount() != 0 {
		t.Errorf("posted %d frames through a failed acquire, want 0", sink.frameCount())
	}

	// The next frame goes through; one dropped frame never kills the session.
	drv.PumpFrame()
	if sink.frameCount() != 1 {
		t.Errorf("posted %d frames after recovery, want 1", sink.frameCount())
	}
	if !ctrl.Streaming() {
		t.Error("session stopped streaming after a dropped frame")
	}

	ctrl.StopCapture()
	checkClean(t, drv)
}

func TestDecodedPayloadPosted(t *testing.T) {
	const payload = "otpauth://totp/Example:alice?secret=GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	decode := func(f ncam.Frame) (string, bool) {
		return payload, true
	}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, decode)

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v)", ok, err)
	}
	drv.PumpFrame()

	if sink.payloadCount() != 1 {
		t.Fatalf("posted %d payloads, want 1", sink.payloadCount())
	}
	sink.mu.Lock()
	got := sink.payloads[0]
	sink.mu.Unlock()
	if got != payload {
		t.Errorf("posted payload %q, want %q", got, payload)
	}

	ctrl.StopCapture()
	checkClean(t, drv)
}

func TestStopDuringContinuousDelivery(t *testing.T) {
	drv := ncam.NewFakeDriver()
	drv.Interval = 2 * time.Millisecond
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v)", ok, err)
	}
	time.Sleep(20 * time.Millisecond)

	// Stop races against in-flight deliveries; the in-flight count and the
	// listener registry make this safe regardless of interleaving.
	ctrl.StopCapture()
	time.Sleep(10 * time.Millisecond)

	if sink.frameCount() == 0 {
		t.Error("no frames delivered before stop")
	}
	checkClean(t, drv)
}

func TestFrameCallbackAfterStopIsIgnored(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v)", ok, err)
	}
	ctrl.StopCapture()

	// The session is gone, so the pump finds no listener to invoke.
	if n := drv.PumpFrame(); n != 0 {
		t.Errorf("PumpFrame after stop invoked %d listeners, want 0", n)
	}
	if sink.frameCount() != 0 {
		t.Errorf("posted %d frames after stop", sink.frameCount())
	}
	checkClean(t, drv)
}

func TestRestartAfterStop(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl := newTestController(t, drv, host.Desktop{}, sink, nil)

	for i := 0; i < 3; i++ {
		if ok, err := ctrl.StartCapture(); err != nil || !ok {
			t.Fatalf("cycle %d StartCapture = (%v, %v)", i, ok, err)
		}
		drv.PumpFrame()
		ctrl.StopCapture()
	}
	if sink.frameCount() != 3 {
		t.Errorf("posted %d frames over 3 cycles, want 3", sink.frameCount())
	}
	checkClean(t, drv)
}

func TestYUVStreamDelivery(t *testing.T) {
	drv := ncam.NewFakeDriver()
	sink := &capture{}
	ctrl, err := ncam.NewController(ncam.ControllerConfig{
		Driver:    drv,
		Host:      host.Desktop{},
		Converter: convert.Converter{},
		Post:      sink.post,
		Logger:    testLogger(),
		Format:    ncam.FormatYUV420,
	})
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}

	if ok, err := ctrl.StartCapture(); err != nil || !ok {
		t.Fatalf("StartCapture = (%v, %v)", ok, err)
	}
	drv.PumpFrame()

	if sink.frameCount() != 1 {
		t.Fatalf("posted %d frames, want 1", sink.frameCount())
	}
	// YUV 640x480 rotated by the 90 degree sensor mount.
	f := sink.lastFrame()
	if f.Width != 480 || f.Height != 640 {
		t.Errorf("frame is %dx%d, want 480x640", f.Width, f.Height)
	}

	ctrl.StopCapture()
	checkClean(t, drv)
}
