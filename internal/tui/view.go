// internal/tui/view.go
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/hwerle/camauth/internal/codes"
)

// Style definitions
var (
	headerStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("237")).
			Foreground(lipgloss.Color("250")).
			Padding(0, 1)

	mainContentStyle = lipgloss.NewStyle().
				Padding(1, 0)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1)

	activeTabStyle = tabStyle.
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("0"))

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("237")).
				Foreground(lipgloss.Color("255"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	codeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("120")).
			Bold(true)
)

// View renders the UI
func (m Model) View() string {
	timeStr := m.currentTime.Format("Mon Jan 2 15:04:05 2006")

	// Header with tabs
	headerContent := lipgloss.JoinHorizontal(
		lipgloss.Center,
		"🔐 CamAuth",
		lipgloss.NewStyle().
			Width(m.width-14).
			Align(lipgloss.Right).
			Render(timeStr),
	)

	header := headerStyle.Width(m.width).Render(headerContent)

	// Tabs
	tabs := m.renderTabs()

	// Main content from active tab
	mainContent := mainContentStyle.Render(m.renderActiveTabContent())

	// Status bar
	statusBar := statusBarStyle.Width(m.width).Render(
		fmt.Sprintf("Status: %s | Tab or Num 1-4: Switch Views | Press q to quit", m.status),
	)

	// Combine all sections
	return fmt.Sprintf("%s\n%s\n%s\n%s", header, tabs, mainContent, statusBar)
}

// Helper function to render tabs
func (m Model) renderTabs() string {
	var renderedTabs []string

	for _, t := range m.tabs {
		style := tabStyle
		if t.id == m.activeTab {
			style = activeTabStyle
		}
		renderedTabs = append(renderedTabs, style.Render(t.title))
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		renderedTabs...,
	)
}

// Helper function to render active tab content
func (m Model) renderActiveTabContent() string {
	switch m.activeTab {
	case codesTab:
		return m.renderCodes()
	case scannerTab:
		return m.renderScanner()
	case addTab:
		return m.renderAddForm()
	case serverTab:
		var content strings.Builder

		status := "Stopped"
		if m.server.IsRunning() {
			status = fmt.Sprintf("Running on port %s", m.server.Port())
		}
		content.WriteString(fmt.Sprintf("Preview Server Status:\n"+
			"• Status: %s\n"+
			"• Port: %s\n"+
			"• Press 's' to start/stop server\n\n", status, m.server.Port()))
		content.WriteString("Recent Logs:\n")
		content.WriteString("------------\n")

		logs := m.server.GetRecentLogs(10)
		for _, entry := range logs {
			content.WriteString(fmt.Sprintf("%s\n", dimStyle.Render(entry.Message)))
		}

		return content.String()
	}
	return ""
}

func (m Model) renderCodes() string {
	list := m.store.List()
	if len(list) == 0 {
		return "No codes stored.\n\n" +
			"• Press '2' to scan a QR code\n" +
			"• Press '3' to enter a secret by hand"
	}

	var content strings.Builder
	for i, c := range list {
		content.WriteString(m.renderCodeRow(i, c))
		content.WriteString("\n")
	}
	content.WriteString("\n")
	content.WriteString(dimStyle.Render("up/down: select • d: delete • 2: scan • 3: add"))
	return content.String()
}

func (m Model) renderCodeRow(i int, c codes.Code) string {
	current, err := c.Current(m.currentTime)
	if err != nil {
		current = "??????"
	}
	remaining := int(codes.Remaining(m.currentTime, c.Period).Seconds())

	name := c.Name
	if c.Issuer != "" {
		name = c.Issuer + " (" + c.Name + ")"
	}

	row := fmt.Sprintf("%-32s %s  %2ds", name, codeStyle.Render(current), remaining)
	if i == m.selected {
		return selectedRowStyle.Render("> " + row)
	}
	return "  " + row
}

func (m Model) renderScanner() string {
	var content strings.Builder

	if m.controller.Streaming() {
		content.WriteString(fmt.Sprintf("Camera: streaming (%dx%d, %d frames)\n",
			m.frameWidth, m.frameHeight, m.framesReceived))
		content.WriteString("Point the camera at an otpauth QR code.\n")
		content.WriteString("• Press 'x' to stop\n")
		if m.server.IsRunning() {
			content.WriteString(fmt.Sprintf("• Preview at http://localhost:%s/\n", m.server.Port()))
		}
	} else {
		content.WriteString(fmt.Sprintf("Camera: idle (state %s)\n", m.controller.State()))
		content.WriteString("• Press enter to start scanning\n")
	}

	if len(m.scannerMessages) > 0 {
		content.WriteString("\nRecent Activity:\n")
		for _, msg := range m.scannerMessages {
			line := fmt.Sprintf("[%s] %s", msg.timestamp.Format("15:04:05"), msg.text)
			if msg.isError {
				content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render(line))
			} else {
				content.WriteString(dimStyle.Render(line))
			}
			content.WriteString("\n")
		}
	}

	return content.String()
}

func (m Model) renderAddForm() string {
	var content strings.Builder
	content.WriteString("Add a code manually:\n\n")
	content.WriteString("Name:   " + m.inputs[inputName].View() + "\n")
	content.WriteString("Secret: " + m.inputs[inputSecret].View() + "\n\n")
	content.WriteString(dimStyle.Render("tab: next field • enter: save • esc: cancel"))
	return content.String()
}
