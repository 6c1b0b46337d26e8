// FILE: src/internal/metadata/scope.go
package metadata

import (
	"context"
	"maps"
	"sync"
)

type scopeKey struct{}

// Scope is one node of a binding chain. Every Bind derives a new node from
// the node carried by its context, so a frame is only visible through the
// context Bind returned and contexts derived from it. Goroutines sharing a
// parent context never observe each other's bindings.
type Scope struct {
	parent *Scope
	// base is set on fork roots only
	base map[string]string

	mu     sync.Mutex
	values map[string]string
	closed bool
}

// scopeFrom returns the innermost node carried by ctx, or nil
func scopeFrom(ctx context.Context) *Scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	return s
}

// Fork detaches ctx from its binding chain. The new chain starts from a
// snapshot of the current resolution, so closing a binding afterwards does
// not affect the fork.
func Fork(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, scopeKey{}, &Scope{base: Resolve(ctx)})
}

// Resolve flattens the chain carried by ctx into a fresh map, inner
// frames shadowing outer ones
func Resolve(ctx context.Context) map[string]string {
	var chain []*Scope
	for s := scopeFrom(ctx); s != nil; s = s.parent {
		chain = append(chain, s)
	}

	out := make(map[string]string)
	for i := len(chain) - 1; i >= 0; i-- {
		chain[i].copyInto(out)
	}
	return out
}

// Depth returns the number of open frames visible from ctx
func Depth(ctx context.Context) int {
	n := 0
	for s := scopeFrom(ctx); s != nil; s = s.parent {
		s.mu.Lock()
		if s.values != nil && !s.closed {
			n++
		}
		s.mu.Unlock()
	}
	return n
}

func (s *Scope) copyInto(out map[string]string) {
	maps.Copy(out, s.base)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		maps.Copy(out, s.values)
	}
}

func (s *Scope) set(key, value string) {
	s.mu.Lock()
	if !s.closed {
		s.values[key] = value
	}
	s.mu.Unlock()
}

func (s *Scope) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}

func (s *Scope) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
