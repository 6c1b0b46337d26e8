// FILE: src/internal/filter/filter.go
package filter

import (
	"sync/atomic"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Filter decides which events are shipped. The events-only gate runs first
// and drops anything without an event type; pattern filters follow.
type Filter struct {
	eventsOnly atomic.Bool
	chain      *Chain
	logger     *log.Logger

	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
	totalGated     atomic.Uint64
}

// New creates a filter. configs may be empty.
func New(eventsOnly bool, configs []Config, logger *log.Logger) (*Filter, error) {
	chain, err := NewChain(configs, logger)
	if err != nil {
		return nil, err
	}
	f := &Filter{
		chain:  chain,
		logger: logger,
	}
	f.eventsOnly.Store(eventsOnly)
	return f, nil
}

// ShouldShip reports whether evt passes the current filtering rules
func (f *Filter) ShouldShip(evt *core.StructuredEvent) bool {
	f.totalProcessed.Add(1)

	if f.eventsOnly.Load() && !evt.IsBusinessEvent() {
		f.totalGated.Add(1)
		return false
	}
	if !f.chain.Apply(evt) {
		return false
	}

	f.totalPassed.Add(1)
	return true
}

// SetEventsOnly toggles the events-only gate; takes effect on the next event
func (f *Filter) SetEventsOnly(on bool) {
	if f.eventsOnly.Swap(on) != on {
		f.logger.Info("msg", "Events-only filter changed",
			"component", "filter",
			"events_only", on)
	}
}

// EventsOnly returns the current gate setting
func (f *Filter) EventsOnly() bool {
	return f.eventsOnly.Load()
}

// GetStats returns filter statistics
func (f *Filter) GetStats() map[string]any {
	return map[string]any{
		"events_only":     f.eventsOnly.Load(),
		"total_processed": f.totalProcessed.Load(),
		"total_passed":    f.totalPassed.Load(),
		"total_gated":     f.totalGated.Load(),
		"chain":           f.chain.GetStats(),
	}
}
