package ncam

import (
	"testing"
	"time"
)

func TestWebcamCloseSessionWaitsForCaptureLoop(t *testing.T) {
	d := NewWebcamDriver()

	// Build a session by hand; the loop itself needs capture hardware, so a
	// stand-in goroutine models its lifetime: it leaves the capture object
	// only after stop, then signals done the way the loop's defer does.
	d.mu.Lock()
	sh, sobj := d.alloc(KindSession)
	stop := make(chan struct{})
	done := make(chan struct{})
	sobj.stop = stop
	sobj.done = done
	d.mu.Unlock()

	offDevice := make(chan struct{})
	go func() {
		<-stop
		time.Sleep(10 * time.Millisecond) // a read in progress
		close(offDevice)
		close(done)
	}()

	if st := d.CloseSession(sh); st != StatusOK {
		t.Fatalf("CloseSession = %s", st)
	}

	// By the time CloseSession returns the device may be released, so the
	// loop must already be off it.
	select {
	case <-offDevice:
	default:
		t.Error("CloseSession returned while the capture loop still held the device")
	}
}

func TestWebcamCloseSessionWithoutLoop(t *testing.T) {
	d := NewWebcamDriver()

	// A session whose repeating request never started has no loop to join.
	d.mu.Lock()
	sh, _ := d.alloc(KindSession)
	d.mu.Unlock()

	if st := d.CloseSession(sh); st != StatusOK {
		t.Fatalf("CloseSession = %s", st)
	}
	if st := d.CloseSession(sh); st != StatusBadHandle {
		t.Errorf("second CloseSession = %s, want bad handle", st)
	}
}
