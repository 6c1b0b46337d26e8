// FILE: src/internal/session/session_test.go
package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(time.Hour, nil)
	defer m.Stop()

	s := m.Create("127.0.0.1:5000", "tcp")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())

	s.SetSubject("myApp")
	m.Touch(s, 3)
	m.Touch(s, 0)

	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Equal(t, "myApp", got.Subject())
	assert.Equal(t, uint64(3), got.Records())

	stats := m.GetStats()
	assert.Equal(t, 1, stats["total_sessions"])
	assert.Equal(t, map[string]int{"tcp": 1}, stats["sessions_by_transport"])

	m.Remove(s.ID)
	assert.Equal(t, 0, m.Count())
	m.Stop()
}

func TestManager_ExpireIdle(t *testing.T) {
	var mu sync.Mutex
	var expired []string

	m := NewManager(time.Minute, func(s *Session) {
		mu.Lock()
		expired = append(expired, s.RemoteAddr)
		mu.Unlock()
	})
	defer m.Stop()

	clock := time.Now()
	m.now = func() time.Time { return clock }

	idle := m.Create("10.0.0.1:1", "tcp")
	active := m.Create("10.0.0.2:1", "tcp")

	clock = clock.Add(2 * time.Minute)
	m.Touch(active, 1)
	m.expireIdle()

	mu.Lock()
	assert.Equal(t, []string{"10.0.0.1:1"}, expired)
	mu.Unlock()

	_, ok := m.Get(idle.ID)
	assert.False(t, ok)
	_, ok = m.Get(active.ID)
	assert.True(t, ok)
}
