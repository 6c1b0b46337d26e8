// FILE: src/internal/filter/pattern.go
package filter

import (
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
)

// Type is the action of a pattern filter
type Type string

// Logic combines the patterns of one filter
type Logic string

const (
	TypeInclude Type = "include"
	TypeExclude Type = "exclude"

	LogicOr  Logic = "or"
	LogicAnd Logic = "and"
)

// Config is one [[filters]] entry
type Config struct {
	Type     Type     `toml:"type"`
	Logic    Logic    `toml:"logic"`
	Patterns []string `toml:"patterns"`
}

// Pattern applies regex matching to event descriptions
type Pattern struct {
	config   Config
	patterns []*regexp.Regexp
	mu       sync.RWMutex
	logger   *log.Logger

	totalProcessed atomic.Uint64
	totalMatched   atomic.Uint64
	totalDropped   atomic.Uint64
}

// NewPattern compiles a pattern filter, defaulting to include/or
func NewPattern(cfg Config, logger *log.Logger) (*Pattern, error) {
	if cfg.Type == "" {
		cfg.Type = TypeInclude
	}
	if cfg.Logic == "" {
		cfg.Logic = LogicOr
	}

	p := &Pattern{
		config: cfg,
		logger: logger,
	}
	compiled, err := compile(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	p.patterns = compiled

	logger.Debug("msg", "Pattern filter created",
		"component", "filter",
		"type", cfg.Type,
		"logic", cfg.Logic,
		"pattern_count", len(compiled))

	return p, nil
}

// Apply reports whether the event passes this filter
func (p *Pattern) Apply(evt *core.StructuredEvent) bool {
	p.totalProcessed.Add(1)

	p.mu.RLock()
	patterns := p.patterns
	p.mu.RUnlock()

	if len(patterns) == 0 {
		return true
	}

	matched := p.matches(patterns, evt.Description)
	if matched {
		p.totalMatched.Add(1)
	}

	pass := matched
	if p.config.Type == TypeExclude {
		pass = !matched
	}
	if !pass {
		p.totalDropped.Add(1)
	}
	return pass
}

func (p *Pattern) matches(patterns []*regexp.Regexp, text string) bool {
	switch p.config.Logic {
	case LogicOr:
		for _, re := range patterns {
			if re.MatchString(text) {
				return true
			}
		}
		return false

	case LogicAnd:
		for _, re := range patterns {
			if !re.MatchString(text) {
				return false
			}
		}
		return true

	default:
		p.logger.Warn("msg", "Unknown filter logic",
			"component", "filter",
			"logic", p.config.Logic)
		return false
	}
}

// UpdatePatterns swaps the compiled pattern set
func (p *Pattern) UpdatePatterns(patterns []string) error {
	compiled, err := compile(patterns)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.patterns = compiled
	p.config.Patterns = patterns
	p.mu.Unlock()

	p.logger.Info("msg", "Filter patterns updated",
		"component", "filter",
		"pattern_count", len(patterns))
	return nil
}

// GetStats returns pattern filter statistics
func (p *Pattern) GetStats() map[string]any {
	p.mu.RLock()
	count := len(p.patterns)
	p.mu.RUnlock()

	return map[string]any{
		"type":            p.config.Type,
		"logic":           p.config.Logic,
		"pattern_count":   count,
		"total_processed": p.totalProcessed.Load(),
		"total_matched":   p.totalMatched.Load(),
		"total_dropped":   p.totalDropped.Load(),
	}
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for i, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern[%d] '%s': %w", i, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Validate checks a filter config without building it
func Validate(cfg Config) error {
	switch cfg.Type {
	case TypeInclude, TypeExclude, "":
	default:
		return fmt.Errorf("invalid type '%s' (must be 'include' or 'exclude')", cfg.Type)
	}
	switch cfg.Logic {
	case LogicOr, LogicAnd, "":
	default:
		return fmt.Errorf("invalid logic '%s' (must be 'or' or 'and')", cfg.Logic)
	}
	_, err := compile(cfg.Patterns)
	return err
}
