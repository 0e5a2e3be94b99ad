package registry

import "sync/atomic"

// Holder gives concurrent readers access to the current registry
type Holder struct {
	current atomic.Pointer[Registry]
}

// Load returns the current registry, or nil before the first one is published
func (h *Holder) Load() *Registry {
	return h.current.Load()
}

// Store publishes reg as the current registry
func (h *Holder) Store(reg *Registry) {
	h.current.Store(reg)
}

// Ready reports whether a registry has been published
func (h *Holder) Ready() bool {
	return h.current.Load() != nil
}
