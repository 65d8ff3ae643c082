package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPool_runsJobs(t *testing.T) {
	p := NewPool(PoolConfig{NumWorkers: 3, QueueSize: 2})
	var n atomic.Int32
	for i := 0; i < 20; i++ {
		if err := p.Submit(context.Background(), func() { n.Add(1) }); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	p.Close()
	if n.Load() != 20 {
		t.Errorf("ran %d jobs, want 20", n.Load())
	}
}

func TestPool_submitAfterClose(t *testing.T) {
	p := NewPool(PoolConfig{})
	p.Close()
	p.Close()
	if err := p.Submit(context.Background(), func() {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Submit after Close: %v, want ErrPoolClosed", err)
	}
}

func TestPool_submitHonoursContext(t *testing.T) {
	p := NewPool(PoolConfig{NumWorkers: 1, QueueSize: 1})
	release := make(chan struct{})
	defer func() {
		close(release)
		p.Close()
	}()

	started := make(chan struct{})
	_ = p.Submit(context.Background(), func() { close(started); <-release })
	<-started
	_ = p.Submit(context.Background(), func() {}) // fills the queue

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.Submit(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Submit on full queue: %v, want deadline exceeded", err)
	}
}
