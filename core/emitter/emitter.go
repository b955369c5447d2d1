package emitter

import (
	"sync"
)

// Listener handles an emitted event payload
type Listener func(data any)

// Emitter is a synchronous in-process event bus. Listeners run on the
// emitting goroutine in registration order.
type Emitter struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New creates an empty emitter
func New() *Emitter {
	return &Emitter{listeners: make(map[string][]Listener)}
}

// On registers a listener for event
func (e *Emitter) On(event string, listener Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener)
}

// Emit calls every listener registered for event. A nil emitter is a no-op.
func (e *Emitter) Emit(event string, data any) {
	if e == nil {
		return
	}

	e.mu.RLock()
	listeners := make([]Listener, len(e.listeners[event]))
	copy(listeners, e.listeners[event])
	e.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Off removes every listener for event
func (e *Emitter) Off(event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.listeners, event)
}
