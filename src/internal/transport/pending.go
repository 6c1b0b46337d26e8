// FILE: src/internal/transport/pending.go
package transport

import "sync"

// Pending counts outstanding submissions. Unlike sync.WaitGroup it allows
// Add concurrently with Wait.
type Pending struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int64
}

func NewPending() *Pending {
	p := &Pending{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pending) Add() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *Pending) Done() {
	p.mu.Lock()
	p.n--
	if p.n <= 0 {
		p.n = 0
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// Wait blocks until the count drops to zero
func (p *Pending) Wait() {
	p.mu.Lock()
	for p.n > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Len returns the current count
func (p *Pending) Len() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}
