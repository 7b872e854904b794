// internal/tui/poster.go
package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwerle/camauth/pkg/ncam"
)

// Poster forwards capture pipeline messages onto the bubbletea event loop.
// The pipeline is built before the tea.Program exists, so the program is
// attached after construction; messages posted before Attach are dropped.
type Poster struct {
	mu      sync.RWMutex
	program *tea.Program
}

func (p *Poster) Attach(program *tea.Program) {
	p.mu.Lock()
	p.program = program
	p.mu.Unlock()
}

// Post satisfies ncam.PostFunc. Safe to call from driver threads.
func (p *Poster) Post(msg any) {
	p.mu.RLock()
	program := p.program
	p.mu.RUnlock()
	if program == nil {
		return
	}

	switch v := msg.(type) {
	case ncam.Frame:
		program.Send(FrameMsg(v))
	case ncam.CodeScanned:
		program.Send(CodeScannedMsg(v.Payload))
	default:
		program.Send(msg)
	}
}
