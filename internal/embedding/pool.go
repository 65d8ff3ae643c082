package embedding

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/kioku/pkg/utils"
)

var (
	defaultNumWorkers   = 2
	defaultJobQueueSize = 64
)

// ErrPoolClosed is returned when submitting to a closed pool.
var ErrPoolClosed = errors.New("embedding pool closed")

// PoolConfig is the configuration for the inference worker pool.
type PoolConfig struct {
	// NumWorkers is the number of background inference goroutines.
	NumWorkers int

	// QueueSize is the capacity of the buffered job channel.
	QueueSize int

	Logger *zap.Logger
}

// Pool runs inference jobs off the caller's goroutine.
type Pool struct {
	queue  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

// NewPool creates a pool and starts its workers.
func NewPool(c PoolConfig) *Pool {
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = defaultJobQueueSize
	}

	p := &Pool{
		queue:  make(chan func(), c.QueueSize),
		logger: utils.OrNop(c.Logger),
	}

	p.wg.Add(c.NumWorkers)
	for i := 0; i < c.NumWorkers; i++ {
		go p.worker(i)
	}
	return p
}

// Submit enqueues job, blocking while the queue is full. It returns ctx.Err() if ctx
// ends first, or ErrPoolClosed after Close.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.queue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued jobs to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("embedding worker started", zap.Int("worker_id", id))
	for job := range p.queue {
		job()
	}
	p.logger.Debug("embedding worker stopped", zap.Int("worker_id", id))
}
