package therm

import (
	"sync"

	"github.com/homeclimate/thermoms/temp"
)

// Event names emitted by a thermostat.
const (
	EventValueChanged       = "value_changed"
	EventCurrentTempChanged = "current_temp_changed"
)

// Handler is a callback for thermostat events. Handlers are invoked
// synchronously, in registration order.
type Handler func(t *Thermostat, v temp.Temp)

// Registry is a per-thermostat registry of event callbacks.
type Registry struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// On registers a handler for the given event.
func (r *Registry) On(event string, h Handler) {
	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], h)
	r.mu.Unlock()
}

// Trigger delivers the event to all registered handlers in order.
func (r *Registry) Trigger(event string, t *Thermostat, v temp.Temp) {
	r.mu.Lock()
	handlers := make([]Handler, len(r.handlers[event]))
	copy(handlers, r.handlers[event])
	r.mu.Unlock()

	for _, h := range handlers {
		h(t, v)
	}
}
