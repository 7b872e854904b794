package ncam

import "fmt"

// SelectCamera returns the id of the first camera whose lens facing matches
// the requested policy. Every characteristics blob opened during the scan is
// released before returning, including the rejected ones.
func (m *Manager) SelectCamera(facing Facing) (string, error) {
	list, ids, err := m.idList()
	if err != nil {
		return "", err
	}
	defer list.Close()

	for _, id := range ids {
		got, err := m.lensFacing(id)
		if err != nil {
			m.log.Printf("ncam: skipping camera %q: %v", id, err)
			continue
		}
		if got == facing {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: wanted %s among %d cameras", ErrNoMatchingCamera, facing, len(ids))
}

func (m *Manager) lensFacing(cameraID string) (Facing, error) {
	chars, err := m.characteristics(cameraID)
	if err != nil {
		return 0, err
	}
	defer chars.Close()

	entry, err := chars.entry(TagLensFacing)
	if err != nil {
		return 0, err
	}
	if len(entry) < 1 {
		return 0, fmt.Errorf("empty lens facing entry for camera %q", cameraID)
	}
	return Facing(entry[0]), nil
}

// SensorOrientation reads the camera's sensor mounting orientation in
// degrees.
func (m *Manager) SensorOrientation(cameraID string) (int, error) {
	chars, err := m.characteristics(cameraID)
	if err != nil {
		return 0, err
	}
	defer chars.Close()

	entry, err := chars.entry(TagSensorOrientation)
	if err != nil {
		return 0, err
	}
	if len(entry) < 1 {
		return 0, fmt.Errorf("empty sensor orientation entry for camera %q", cameraID)
	}
	return int(entry[0]), nil
}

// SelectStreamConfiguration picks the capture configuration for the given
// camera: among the output streams matching the target format, the one with
// the smallest width. Lower resolution means lower preview latency, which
// matters more here than quality.
func (m *Manager) SelectStreamConfiguration(cameraID string, format int32) (StreamConfiguration, error) {
	chars, err := m.characteristics(cameraID)
	if err != nil {
		return StreamConfiguration{}, err
	}
	defer chars.Close()

	entry, err := chars.entry(TagAvailableStreamConfigurations)
	if err != nil {
		return StreamConfiguration{}, err
	}

	// The entry is a flat list of (format, width, height, direction)
	// quadruples.
	var selected *StreamConfiguration
	for i := 0; i+3 < len(entry); i += 4 {
		if entry[i] != format || entry[i+3] != streamDirectionOutput {
			continue
		}
		cfg := StreamConfiguration{Format: entry[i], Width: entry[i+1], Height: entry[i+2]}
		if selected == nil || cfg.Width < selected.Width {
			selected = &cfg
		}
	}
	if selected == nil {
		return StreamConfiguration{}, fmt.Errorf("%w: format %#x not offered by camera %q", ErrUnsupportedConfiguration, format, cameraID)
	}
	return *selected, nil
}
