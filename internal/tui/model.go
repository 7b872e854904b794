// internal/tui/model.go
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwerle/camauth/internal/codes"
	"github.com/hwerle/camauth/internal/config"
	"github.com/hwerle/camauth/internal/server"
	"github.com/hwerle/camauth/pkg/ncam"
)

type tabType int

const (
	codesTab tabType = iota
	scannerTab
	addTab
	serverTab
)

type tab struct {
	title string
	id    tabType
}

// Logging Setup

type Verbosity int

const (
	VerbosityError Verbosity = iota
	VerbosityInfo
	VerbosityDebug
)

type logUpdateMsg struct{}

func (m *Model) addLog(level, message string) tea.Cmd {
	logEntry := fmt.Sprintf("[%s] %s", level, message)
	m.logs = append(m.logs, logEntry)

	// Cap log buffer size
	if len(m.logs) > 1000 {
		m.logs = m.logs[1:]
	}

	// Update the log viewport content
	m.logViewport.SetContent(strings.Join(m.logs, "\n"))
	// Return a tea.Cmd to force a TUI refresh
	return func() tea.Msg {
		return logUpdateMsg{}
	}
}

func (m *Model) logCallback(level string, message string) {
	// Use m.addLog but ignore the tea.Cmd it returns
	_ = m.addLog(level, message)
}

func (m *Model) shouldShowLog(level string) bool {
	switch m.verbosity {
	case VerbosityDebug:
		return true
	case VerbosityInfo:
		return level != "DEBUG"
	case VerbosityError:
		return level == "ERROR"
	default:
		return false
	}
}

type scannerMessage struct {
	text      string
	timestamp time.Time
	isError   bool
}

// Msg types
type tickMsg time.Time

// FrameMsg carries one converted preview frame into the UI loop.
type FrameMsg ncam.Frame

// CodeScannedMsg carries a decoded otpauth payload into the UI loop.
type CodeScannedMsg string

const (
	inputName = iota
	inputSecret
	inputCount
)

// Model holds our application state
type Model struct {
	configPath      string
	config          *config.AppConfig
	width           int
	height          int
	status          string
	startTime       time.Time
	currentTime     time.Time
	activeTab       tabType
	tabs            []tab
	server          *server.Server
	store           *codes.Store
	controller      *ncam.Controller
	selected        int
	frameWidth      int
	frameHeight     int
	framesReceived  int
	lastPayload     string
	scannerMessages []scannerMessage
	inputs          []textinput.Model
	focusedInput    int
	logViewport     viewport.Model
	logs            []string // Log messages
	verbosity       Verbosity
}

// New returns a Model with initial state
func New(configPath string, cfg *config.AppConfig, store *codes.Store, controller *ncam.Controller) Model {
	now := time.Now()

	nameInput := textinput.New()
	nameInput.Placeholder = "Account name"
	nameInput.CharLimit = 64
	nameInput.Focus()

	secretInput := textinput.New()
	secretInput.Placeholder = "Base32 secret"
	secretInput.CharLimit = 128

	// Create the model first
	m := Model{
		configPath:  configPath,
		config:      cfg,
		status:      "Starting up...",
		startTime:   now,
		currentTime: now,
		activeTab:   codesTab,
		store:       store,
		controller:  controller,
		tabs: []tab{
			{title: "Codes", id: codesTab},
			{title: "Scanner", id: scannerTab},
			{title: "Add", id: addTab},
			{title: "Server", id: serverTab},
		},
		inputs:       []textinput.Model{nameInput, secretInput},
		focusedInput: inputName,
		logViewport: func() viewport.Model {
			vp := viewport.New(0, 10)
			vp.MouseWheelEnabled = true
			vp.YPosition = 0
			return vp
		}(),
		logs:      make([]string, 0),
		verbosity: VerbosityInfo,
	}

	// Initialize the preview server after creating the Model
	m.server = server.New(cfg.Server.Port, m.logCallback)
	if cfg.Server.Enabled {
		if err := m.server.Start(); err != nil {
			m.addLog("ERROR", fmt.Sprintf("Error starting server: %v", err))
		}
	}

	if n := len(store.List()); n > 0 {
		m.status = fmt.Sprintf("%d code(s) loaded", n)
	} else {
		m.status = "No codes yet. Scan or add one!"
	}

	return m
}

// Server exposes the preview server so frames can be fanned out to it.
func (m Model) Server() *server.Server {
	return m.server
}

// Init runs any initial IO
func (m Model) Init() tea.Cmd {
	return timeTickCmd()
}

func (m *Model) addScannerMessage(msg string, isError bool) {
	now := time.Now()
	if isError {
		m.status = "Error: " + msg
	}

	message := scannerMessage{
		text:      msg,
		timestamp: now,
		isError:   isError,
	}

	m.scannerMessages = append(m.scannerMessages, message)
	if len(m.scannerMessages) > 10 {
		m.scannerMessages = m.scannerMessages[1:]
	}
}

// Helper command for time updates
func timeTickCmd() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
