package ncam

// Rotation is the compensation angle applied to delivered frames, bucketed
// to quarter turns.
type Rotation int

const (
	Deg0 Rotation = iota
	Deg90
	Deg180
	Deg270
)

func (r Rotation) String() string {
	switch r {
	case Deg90:
		return "90°"
	case Deg180:
		return "180°"
	case Deg270:
		return "270°"
	default:
		return "0°"
	}
}

// Degrees returns the rotation as a plain angle.
func (r Rotation) Degrees() int {
	return int(r) * 90
}

// SwapsDimensions reports whether applying the rotation exchanges width and
// height.
func (r Rotation) SwapsDimensions() bool {
	return r == Deg90 || r == Deg270
}

// ResolveRotation computes the frame compensation angle from the sensor's
// mounting orientation and the current device rotation, both in degrees. The
// difference is bucketed into quarter turns with boundaries at 45, 135, 225
// and 315 degrees. This models a back-facing camera; a front-facing sensor
// would need the mirrored formula.
func ResolveRotation(sensorOrientationDeg, deviceRotationDeg int) Rotation {
	deg := (sensorOrientationDeg - deviceRotationDeg) % 360
	if deg < 0 {
		deg += 360
	}

	switch {
	case deg >= 45 && deg < 135:
		return Deg90
	case deg >= 135 && deg < 225:
		return Deg180
	case deg >= 225 && deg < 315:
		return Deg270
	default:
		// 0..45 and 315..360
		return Deg0
	}
}
