// FILE: src/internal/filter/chain.go
package filter

import (
	"fmt"
	"sync/atomic"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Chain applies pattern filters in order; all must pass.
type Chain struct {
	filters []*Pattern
	logger  *log.Logger

	totalProcessed atomic.Uint64
	totalPassed    atomic.Uint64
}

// NewChain builds a chain from [[filters]] entries
func NewChain(configs []Config, logger *log.Logger) (*Chain, error) {
	chain := &Chain{
		filters: make([]*Pattern, 0, len(configs)),
		logger:  logger,
	}

	for i, cfg := range configs {
		p, err := NewPattern(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("filter[%d]: %w", i, err)
		}
		chain.filters = append(chain.filters, p)
	}

	if len(configs) > 0 {
		logger.Info("msg", "Filter chain created",
			"component", "filter_chain",
			"filter_count", len(configs))
	}
	return chain, nil
}

// Apply runs the event through every filter in the chain
func (c *Chain) Apply(evt *core.StructuredEvent) bool {
	c.totalProcessed.Add(1)

	for i, p := range c.filters {
		if !p.Apply(evt) {
			c.logger.Debug("msg", "Event filtered out",
				"component", "filter_chain",
				"filter_index", i,
				"filter_type", p.config.Type)
			return false
		}
	}

	c.totalPassed.Add(1)
	return true
}

// Len returns the number of filters
func (c *Chain) Len() int {
	return len(c.filters)
}

// GetStats returns aggregated statistics for the chain
func (c *Chain) GetStats() map[string]any {
	filterStats := make([]map[string]any, len(c.filters))
	for i, p := range c.filters {
		filterStats[i] = p.GetStats()
	}

	return map[string]any{
		"filter_count":    len(c.filters),
		"total_processed": c.totalProcessed.Load(),
		"total_passed":    c.totalPassed.Load(),
		"filters":         filterStats,
	}
}
