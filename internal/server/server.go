// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// previewPage is the inline page served at /. It draws binary websocket
// frames (JPEG) onto an <img> so the scanner view can be checked remotely.
const previewPage = `<!DOCTYPE html>
<html>
<head><title>CamAuth Preview</title></head>
<body style="background:#111;margin:0">
<img id="preview" style="display:block;margin:auto;max-width:100%"/>
<script>
var ws = new WebSocket("ws://" + location.host + "/ws/preview");
ws.binaryType = "blob";
ws.onmessage = function(ev) {
  var img = document.getElementById("preview");
  var url = URL.createObjectURL(ev.data);
  img.onload = function() { URL.revokeObjectURL(url); };
  img.src = url;
};
</script>
</body>
</html>`

type Server struct {
	server          *http.Server
	port            string
	isRunning       bool
	logBuffer       []LogEntry
	logMutex        sync.RWMutex
	upgrader        websocket.Upgrader
	wsConnections   map[*websocket.Conn]bool
	wsConnectionsMu sync.RWMutex
	logCallback     func(level, message string) // Callback for forwarding logs
}

func New(port string, logCallback func(level, message string)) *Server {
	return &Server{
		port:        port,
		logBuffer:   make([]LogEntry, 0, 100),
		logCallback: logCallback,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		wsConnections: make(map[*websocket.Conn]bool),
	}
}

func (s *Server) Start() error {
	if s.isRunning {
		s.addLog("ERROR", fmt.Sprintf("Server is already running on port %s", s.port))
		return fmt.Errorf("server is already running")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/preview", s.handleWebSocketPreview)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, previewPage)
	})

	s.server = &http.Server{
		Addr:    ":" + s.port,
		Handler: mux,
	}

	go func() {
		s.addLog("INFO", fmt.Sprintf("Starting server on port %s", s.port))
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.addLog("ERROR", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	s.isRunning = true
	s.addLog("INFO", fmt.Sprintf("Server is running on port %s", s.port))
	return nil
}

func (s *Server) Stop() error {
	if !s.isRunning {
		s.addLog("ERROR", "Server stop requested, but server is not running")
		return fmt.Errorf("server is not running")
	}

	s.addLog("INFO", "Stopping server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.addLog("ERROR", fmt.Sprintf("Server shutdown error: %v", err))
		return fmt.Errorf("server shutdown error: %v", err)
	}

	s.isRunning = false
	s.addLog("INFO", "Server stopped successfully!")
	return nil
}

func (s *Server) IsRunning() bool {
	return s.isRunning
}

func (s *Server) Port() string {
	return s.port
}

func (s *Server) SetPort(port string) error {
	if s.isRunning {
		return fmt.Errorf("cannot change port while server is running")
	}
	s.port = port
	return nil
}

func (s *Server) handleWebSocketPreview(w http.ResponseWriter, r *http.Request) {
	s.addLog("INFO", fmt.Sprintf("Websocket connection attempt from: %s", r.RemoteAddr))
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.addLog("ERROR", fmt.Sprintf("Error upgrading websocket connection: %v", err))
		return
	}

	s.addLog("INFO", fmt.Sprintf("Websocket connection established from: %s", r.RemoteAddr))

	s.wsConnectionsMu.Lock()
	s.wsConnections[conn] = true
	s.wsConnectionsMu.Unlock()

	defer func() {
		conn.Close()
		s.wsConnectionsMu.Lock()
		delete(s.wsConnections, conn)
		s.wsConnectionsMu.Unlock()
	}()

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) BroadcastFrame(frameBytes []byte) {
	s.wsConnectionsMu.Lock()
	defer s.wsConnectionsMu.Unlock()
	for conn := range s.wsConnections {
		if err := conn.WriteMessage(websocket.BinaryMessage, frameBytes); err != nil {
			s.addLog("ERROR", fmt.Sprintf("Error writing message to websocket: %v", err))
			conn.Close()
			delete(s.wsConnections, conn)
		}
	}
}

func (s *Server) GetRecentLogs(n int) []LogEntry {
	s.logMutex.RLock()
	defer s.logMutex.RUnlock()
	if n > len(s.logBuffer) {
		n = len(s.logBuffer)
	}
	out := make([]LogEntry, n)
	copy(out, s.logBuffer[len(s.logBuffer)-n:])
	return out
}

func (s *Server) addLog(level, message string) {
	logEntry := LogEntry{
		Timestamp: time.Now(),
		Message:   fmt.Sprintf("[%s] %s", level, message),
	}

	s.logMutex.Lock()
	s.logBuffer = append(s.logBuffer, logEntry)
	if len(s.logBuffer) > 100 {
		s.logBuffer = s.logBuffer[1:]
	}
	s.logMutex.Unlock()

	if s.logCallback != nil {
		s.logCallback(level, message)
	}
}
