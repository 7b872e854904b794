// Package host bridges the platform queries the capture pipeline needs:
// camera permission state and the current device rotation.
package host

// Desktop is the host bridge for desktop sessions, where camera access is
// mediated by the OS device permissions and the display never rotates.
type Desktop struct{}

func (Desktop) HasPermission() bool { return true }

func (Desktop) RequestPermission() {}

func (Desktop) DeviceRotationDegrees() int { return 0 }

// Scripted is a host bridge with settable answers, for tests and for
// exercising the permission flow without a platform.
type Scripted struct {
	Granted   bool
	Requested int
	Rotation  int
}

func (s *Scripted) HasPermission() bool { return s.Granted }

func (s *Scripted) RequestPermission() { s.Requested++ }

func (s *Scripted) DeviceRotationDegrees() int { return s.Rotation }
