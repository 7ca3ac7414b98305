// Package threadpool runs closures on a fixed set of worker goroutines.
package threadpool

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"go.uber.org/atomic"
)

const defaultQueueSize = 256

// ErrClosed is returned by Submit once the pool has been closed.
var ErrClosed = errors.New("thread pool is closed")

// Config holds configuration options for the Pool.
type Config struct {
	Workers   int          // Optional, defaults to runtime.NumCPU()
	QueueSize int          // Optional, defaults to 256
	Logger    *slog.Logger // Optional, defaults to slog.Default()
}

// Pool is a fixed-size worker pool. Tasks run in no particular order relative
// to each other and are never cancelled once queued.
type Pool struct {
	mu     sync.RWMutex
	closed bool

	tasks  chan func()
	wg     sync.WaitGroup
	logger *slog.Logger

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
}

// Stats is a snapshot of the pool counters.
type Stats struct {
	Submitted int64
	Completed int64
	Panicked  int64
}

// New starts a pool with the configured number of workers.
func New(config Config) *Pool {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	p := &Pool{
		tasks:  make(chan func(), queueSize),
		logger: logger.With("component", "ThreadPool"),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker(i)
	}
	p.logger.Debug("Started thread pool", "workers", workers, "queue_size", queueSize)
	return p
}

// Submit queues task for execution. It blocks while the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}
	p.submitted.Inc()
	p.tasks <- task
	return nil
}

// Close stops accepting tasks, lets the workers drain the queue and waits for
// them to exit.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Debug("Stopped thread pool", "completed", p.completed.Load(), "panicked", p.panicked.Load())
}

// Stats returns the current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(id, task)
	}
}

func (p *Pool) run(id int, task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.panicked.Inc()
			p.logger.Error("Task panicked", "worker", id, "panic", r)
		}
		p.completed.Inc()
	}()
	task()
}
