package ncam

import (
	"errors"
	"fmt"
)

// Status is the raw integer result code returned by every driver call. Zero
// means success; the negative values mirror the camera service's error base.
type Status int32

const (
	StatusOK Status = 0

	statusErrorBase Status = -10000

	StatusUnknown          Status = statusErrorBase
	StatusInvalidParameter Status = statusErrorBase - 1
	StatusBadHandle        Status = statusErrorBase - 2
	StatusDisconnected     Status = statusErrorBase - 3
	StatusNotEnoughMemory  Status = statusErrorBase - 4
	StatusPermissionDenied Status = statusErrorBase - 5
	StatusStreamConfigure  Status = statusErrorBase - 6
	StatusNoBufferAvail    Status = statusErrorBase - 7
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidParameter:
		return "invalid parameter"
	case StatusBadHandle:
		return "bad handle"
	case StatusDisconnected:
		return "device disconnected"
	case StatusNotEnoughMemory:
		return "not enough memory"
	case StatusPermissionDenied:
		return "permission denied"
	case StatusStreamConfigure:
		return "stream configuration rejected"
	case StatusNoBufferAvail:
		return "no buffer available"
	default:
		return fmt.Sprintf("camera status %d", int32(s))
	}
}

// Err converts a status code into an error, nil for StatusOK. The op string
// names the driver call that produced the code.
func (s Status) Err(op string) error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Op: op, Code: s}
}

// StatusError carries the failing driver call and its raw status code.
type StatusError struct {
	Op   string
	Code Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

// Capture pipeline error taxonomy. Errors returned by StartCapture wrap one
// of these sentinels together with the underlying StatusError.
var (
	ErrNoMatchingCamera         = errors.New("no camera matches the requested facing")
	ErrUnsupportedConfiguration = errors.New("no supported stream configuration")
	ErrDeviceOpenFailed         = errors.New("failed to open camera device")
	ErrPipelineBuildFailed      = errors.New("failed to build capture pipeline")
	ErrFrameAcquireFailed       = errors.New("failed to acquire frame")
	ErrPermissionDenied         = errors.New("camera permission denied")
)
