// internal/tui/update.go
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwerle/camauth/internal/codes"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	// Handle various message types
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logViewport.Width = msg.Width

	case tickMsg:
		m.currentTime = time.Time(msg)
		return m, timeTickCmd()

	case FrameMsg:
		m.frameWidth = msg.Width
		m.frameHeight = msg.Height
		m.framesReceived++

	case CodeScannedMsg:
		m.lastPayload = string(msg)
		code, added, err := m.store.AddURI(string(msg))
		if err != nil {
			m.addScannerMessage(fmt.Sprintf("Rejected scan: %v", err), true)
			return m, nil
		}
		if !added {
			m.addScannerMessage(fmt.Sprintf("Already have %q", code.Name), false)
			return m, nil
		}
		m.controller.StopCapture()
		m.addScannerMessage(fmt.Sprintf("Added %q", code.Name), false)
		m.status = fmt.Sprintf("Added %q", code.Name)
		m.activeTab = codesTab

	case tea.KeyMsg:
		// The add form owns the keyboard while it is visible, apart from
		// the keys that navigate away from it.
		if m.activeTab == addTab {
			return m.updateAddForm(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			m.controller.StopCapture()
			return m, tea.Quit
		case "1":
			m.activeTab = codesTab
		case "2":
			m.activeTab = scannerTab
		case "3":
			m.activeTab = addTab
		case "4":
			m.activeTab = serverTab

		case "up":
			if m.activeTab == codesTab && m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.activeTab == codesTab && m.selected < len(m.store.List())-1 {
				m.selected++
			}

		case "d":
			if m.activeTab == codesTab {
				list := m.store.List()
				if m.selected < len(list) {
					removed := list[m.selected]
					if err := m.store.Remove(removed.ID); err != nil {
						m.status = fmt.Sprintf("Error removing code: %v", err)
					} else {
						m.status = fmt.Sprintf("Removed %q", removed.Name)
						if m.selected > 0 {
							m.selected--
						}
					}
				}
			}

		case "enter", "c":
			if m.activeTab == scannerTab {
				if m.controller.Streaming() {
					return m, nil
				}
				m.status = "Starting camera..."
				started, err := m.controller.StartCapture()
				if err != nil {
					m.addScannerMessage(fmt.Sprintf("Error starting capture: %v", err), true)
					return m, nil
				}
				if !started {
					m.addScannerMessage("Waiting for camera permission, press enter to retry", false)
					m.status = "Camera permission requested"
					return m, nil
				}
				m.framesReceived = 0
				m.addScannerMessage("Camera started, point it at a QR code", false)
				m.status = "Scanning..."
			}

		case "x", "b", "backspace", "esc":
			if m.activeTab == scannerTab && m.controller.Streaming() {
				m.controller.StopCapture()
				m.addScannerMessage("Camera stopped", false)
				m.status = "Scanner idle"
			}

		case "s":
			if m.activeTab == serverTab {
				if m.server.IsRunning() {
					if err := m.server.Stop(); err != nil {
						m.status = fmt.Sprintf("Error stopping server: %v", err)
					} else {
						m.status = "Server stopped"
					}
				} else {
					if err := m.server.Start(); err != nil {
						m.status = fmt.Sprintf("Error starting server: %v", err)
					} else {
						m.status = fmt.Sprintf("Server started on port %s", m.server.Port())
					}
				}
			}

		case "tab":
			// Cycle through tabs
			m.activeTab = (m.activeTab + 1) % tabType(len(m.tabs))
		}
	}
	return m, nil
}

// updateAddForm routes key events to the manual-entry form.
func (m Model) updateAddForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.controller.StopCapture()
		return m, tea.Quit

	case "esc":
		m.resetAddForm()
		m.activeTab = codesTab
		return m, nil

	case "tab", "shift+tab", "up", "down":
		if msg.String() == "shift+tab" || msg.String() == "up" {
			m.focusedInput = (m.focusedInput + inputCount - 1) % inputCount
		} else {
			m.focusedInput = (m.focusedInput + 1) % inputCount
		}
		for i := range m.inputs {
			if i == m.focusedInput {
				m.inputs[i].Focus()
			} else {
				m.inputs[i].Blur()
			}
		}
		return m, nil

	case "enter":
		if m.focusedInput < inputSecret {
			m.focusedInput++
			for i := range m.inputs {
				if i == m.focusedInput {
					m.inputs[i].Focus()
				} else {
					m.inputs[i].Blur()
				}
			}
			return m, nil
		}

		code := codes.Code{
			Name:   strings.TrimSpace(m.inputs[inputName].Value()),
			Secret: strings.TrimSpace(m.inputs[inputSecret].Value()),
			Digits: 6,
			Period: 30,
		}
		added, err := m.store.Add(code)
		if err != nil {
			m.status = fmt.Sprintf("Error adding code: %v", err)
			return m, nil
		}
		m.resetAddForm()
		m.status = fmt.Sprintf("Added %q", added.Name)
		m.activeTab = codesTab
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focusedInput], cmd = m.inputs[m.focusedInput].Update(msg)
	return m, cmd
}

func (m *Model) resetAddForm() {
	for i := range m.inputs {
		m.inputs[i].SetValue("")
		m.inputs[i].Blur()
	}
	m.focusedInput = inputName
	m.inputs[inputName].Focus()
}
