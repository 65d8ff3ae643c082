// Package connectivity owns the process-wide online/offline signal.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/pkg/utils"
)

// ProbeFunc reports whether the remote side is reachable. A nil error means online.
type ProbeFunc func(ctx context.Context) error

// Monitor holds the current connectivity state and notifies subscribers when it flips.
type Monitor struct {
	online atomic.Bool
	logger *zap.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(online bool)
}

// NewMonitor returns a monitor with the given initial state.
func NewMonitor(online bool, logger *zap.Logger) *Monitor {
	m := &Monitor{
		logger: utils.OrNop(logger),
		subs:   make(map[int]func(bool)),
	}
	m.online.Store(online)
	return m
}

// IsOnline reports the last known state.
func (m *Monitor) IsOnline() bool {
	return m.online.Load()
}

// SetOnline records the state. Subscribers are called synchronously, only on change.
func (m *Monitor) SetOnline(online bool) {
	if m.online.Swap(online) == online {
		return
	}
	m.logger.Info("connectivity changed", zap.Bool("online", online))

	m.mu.Lock()
	fns := make([]func(bool), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(online)
	}
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (m *Monitor) Subscribe(fn func(online bool)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, probe ProbeFunc, interval time.Duration) {
	if probe == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	check := func() {
		err := probe(ctx)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger.Debug("connectivity probe failed", zap.Error(err))
		}
		m.SetOnline(err == nil)
	}

	check()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
