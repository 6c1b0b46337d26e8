// FILE: src/internal/filter/filter_test.go
package filter

import (
	"sync"
	"testing"

	"kinlog/src/internal/core"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newEvent(eventType, description string) *core.StructuredEvent {
	return &core.StructuredEvent{
		Level:       core.LevelInfo,
		EventType:   eventType,
		Description: description,
	}
}

func TestNewPattern(t *testing.T) {
	logger := newTestLogger()

	t.Run("SuccessWithDefaults", func(t *testing.T) {
		p, err := NewPattern(Config{Patterns: []string{"test"}}, logger)
		require.NoError(t, err)
		assert.Equal(t, TypeInclude, p.config.Type)
		assert.Equal(t, LogicOr, p.config.Logic)
	})

	t.Run("SuccessWithCustomConfig", func(t *testing.T) {
		p, err := NewPattern(Config{
			Type:     TypeExclude,
			Logic:    LogicAnd,
			Patterns: []string{"test", "pattern"},
		}, logger)
		require.NoError(t, err)
		assert.Equal(t, TypeExclude, p.config.Type)
		assert.Equal(t, LogicAnd, p.config.Logic)
		assert.Len(t, p.patterns, 2)
	})

	t.Run("ErrorInvalidRegex", func(t *testing.T) {
		p, err := NewPattern(Config{Patterns: []string{"["}}, logger)
		assert.Error(t, err)
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "invalid regex pattern")
	})
}

func TestPattern_Apply(t *testing.T) {
	logger := newTestLogger()

	testCases := []struct {
		name        string
		cfg         Config
		description string
		expected    bool
	}{
		{"IncludeOrMatch", Config{Type: TypeInclude, Logic: LogicOr, Patterns: []string{"apple", "banana"}}, "an apple a day", true},
		{"IncludeOrNoMatch", Config{Type: TypeInclude, Logic: LogicOr, Patterns: []string{"apple", "banana"}}, "a cherry", false},
		{"IncludeAndMatch", Config{Type: TypeInclude, Logic: LogicAnd, Patterns: []string{"apple", "day"}}, "an apple a day", true},
		{"IncludeAndPartial", Config{Type: TypeInclude, Logic: LogicAnd, Patterns: []string{"apple", "night"}}, "an apple a day", false},
		{"ExcludeOrMatch", Config{Type: TypeExclude, Logic: LogicOr, Patterns: []string{"apple"}}, "an apple a day", false},
		{"ExcludeOrNoMatch", Config{Type: TypeExclude, Logic: LogicOr, Patterns: []string{"banana"}}, "an apple a day", true},
		{"NoPatterns", Config{Type: TypeInclude}, "anything", true},
		{"Regex", Config{Patterns: []string{`^order \d+ failed$`}}, "order 42 failed", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPattern(tc.cfg, logger)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p.Apply(newEvent("evt", tc.description)))
		})
	}
}

func TestPattern_UpdatePatterns(t *testing.T) {
	p, err := NewPattern(Config{Patterns: []string{"apple"}}, newTestLogger())
	require.NoError(t, err)

	evt := newEvent("evt", "banana split")
	assert.False(t, p.Apply(evt))

	require.NoError(t, p.UpdatePatterns([]string{"banana"}))
	assert.True(t, p.Apply(evt))

	assert.Error(t, p.UpdatePatterns([]string{"("}))
	assert.True(t, p.Apply(evt), "failed update keeps previous patterns")

	stats := p.GetStats()
	assert.Equal(t, uint64(3), stats["total_processed"])
	assert.Equal(t, uint64(1), stats["total_dropped"])
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Config{}))
	assert.NoError(t, Validate(Config{Type: TypeExclude, Logic: LogicAnd, Patterns: []string{"a"}}))
	assert.Error(t, Validate(Config{Type: "drop"}))
	assert.Error(t, Validate(Config{Logic: "xor"}))
	assert.Error(t, Validate(Config{Patterns: []string{"["}}))
}

func TestFilter_EventsOnly(t *testing.T) {
	f, err := New(true, nil, newTestLogger())
	require.NoError(t, err)

	plain := newEvent("", "plain diagnostic")
	business := newEvent("signup", "user signed up")

	assert.True(t, f.EventsOnly())
	assert.False(t, f.ShouldShip(plain))
	assert.True(t, f.ShouldShip(business))

	f.SetEventsOnly(false)
	assert.False(t, f.EventsOnly())
	assert.True(t, f.ShouldShip(plain))
	assert.True(t, f.ShouldShip(business))

	stats := f.GetStats()
	assert.Equal(t, uint64(4), stats["total_processed"])
	assert.Equal(t, uint64(3), stats["total_passed"])
	assert.Equal(t, uint64(1), stats["total_gated"])
}

func TestFilter_GateBeforePatterns(t *testing.T) {
	f, err := New(true, []Config{{Type: TypeExclude, Patterns: []string{"secret"}}}, newTestLogger())
	require.NoError(t, err)

	assert.False(t, f.ShouldShip(newEvent("", "hello")))
	assert.False(t, f.ShouldShip(newEvent("evt", "a secret")))
	assert.True(t, f.ShouldShip(newEvent("evt", "hello")))

	chainStats := f.GetStats()["chain"].(map[string]any)
	assert.Equal(t, uint64(2), chainStats["total_processed"], "gated events never reach the chain")
}

func TestFilter_ConcurrentToggle(t *testing.T) {
	f, err := New(true, nil, newTestLogger())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(on bool) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.SetEventsOnly(on)
			}
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.ShouldShip(newEvent("evt", "x"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(400), f.GetStats()["total_passed"])
}
