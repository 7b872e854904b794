package ncam

import "sync"

// The camera service only carries a small integer through its listener
// callback, never a pointer. This process-wide table maps that token to the
// live bridge; a token is registered before the listener is installed and
// removed only after the listener is confirmed unregistered, so a late
// callback resolves to "not found" rather than to freed memory.
type listenerRegistry struct {
	mu   sync.RWMutex
	next ListenerToken
	m    map[ListenerToken]*Bridge
}

var frameListeners = &listenerRegistry{m: make(map[ListenerToken]*Bridge)}

func (r *listenerRegistry) register(b *Bridge) ListenerToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	token := r.next
	r.m[token] = b
	return token
}

func (r *listenerRegistry) lookup(token ListenerToken) (*Bridge, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.m[token]
	return b, ok
}

func (r *listenerRegistry) unregister(token ListenerToken) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, token)
}

// dispatchFrame is the trampoline handed to drivers as the frame-available
// listener. It runs on a driver-owned thread.
func dispatchFrame(token ListenerToken, _ Handle) {
	if b, ok := frameListeners.lookup(token); ok {
		b.onImageAvailable()
	}
}
