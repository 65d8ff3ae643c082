package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitor_SetOnlineNotifiesOnChange(t *testing.T) {
	m := NewMonitor(false, nil)
	var mu sync.Mutex
	var seen []bool
	unsub := m.Subscribe(func(online bool) {
		mu.Lock()
		seen = append(seen, online)
		mu.Unlock()
	})

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(false)

	mu.Lock()
	assert.Equal(t, []bool{true, false}, seen)
	mu.Unlock()

	unsub()
	unsub()
	m.SetOnline(true)
	mu.Lock()
	assert.Len(t, seen, 2)
	mu.Unlock()
	assert.True(t, m.IsOnline())
}

func TestMonitor_Run(t *testing.T) {
	m := NewMonitor(false, nil)
	var healthy atomic.Bool
	healthy.Store(true)
	probe := func(ctx context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("unreachable")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, probe, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, m.IsOnline, time.Second, time.Millisecond)
	healthy.Store(false)
	require.Eventually(t, func() bool { return !m.IsOnline() }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMonitor_RunNilProbe(t *testing.T) {
	m := NewMonitor(true, nil)
	m.Run(context.Background(), nil, time.Millisecond)
	assert.True(t, m.IsOnline())
}
