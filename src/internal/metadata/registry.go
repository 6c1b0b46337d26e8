// FILE: src/internal/metadata/registry.go
package metadata

import (
	"maps"
	"sync"
)

// Registry holds process-wide metadata defaults applied to every event.
// It starts empty and is mutated only through Add, Remove and Clear.
type Registry struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{values: make(map[string]string)}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry used by handlers that were not
// given one explicitly
func Default() *Registry {
	return defaultRegistry
}

// Add sets or overwrites a default
func (r *Registry) Add(key string, value any) {
	formatted := FormatValue(value)
	r.mu.Lock()
	r.values[key] = formatted
	r.mu.Unlock()
}

// Remove deletes a single default
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	delete(r.values, key)
	r.mu.Unlock()
}

// Clear removes all defaults
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.values)
	r.mu.Unlock()
}

// Snapshot returns a copy safe for the caller to mutate
func (r *Registry) Snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.values)
}

// Len returns the number of defaults
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.values)
}
