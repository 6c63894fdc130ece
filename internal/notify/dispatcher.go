package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	// The task is dropped, not retried.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Task is a unit of background work.  Its error is only logged.
type Task func(ctx context.Context) error

type job struct {
	name string
	run  Task
}

// DispatcherConfig sizes the worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// TaskTimeout bounds each task.  Zero means no bound.
	TaskTimeout time.Duration
}

// Dispatcher is a bounded fire-and-forget executor.  Submit never blocks;
// tasks run on a fixed set of workers and their failures stay inside the
// worker.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger logrus.FieldLogger
	queue  chan job

	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
}

// NewDispatcher builds a dispatcher.  Tasks queue up until Run starts the
// workers.
func NewDispatcher(cfg DispatcherConfig, logger logrus.FieldLogger) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Dispatcher{
		cfg:     cfg,
		logger:  logger,
		queue:   make(chan job, cfg.QueueSize),
		closing: make(chan struct{}),
	}
}

// Submit enqueues task without waiting for it to run.
func (d *Dispatcher) Submit(name string, task Task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- job{name: name, run: task}:
		return nil
	default:
		d.logger.WithField("task", name).Warn("dispatch queue full, dropping task")
		return ErrQueueFull
	}
}

// Run processes tasks until ctx is done or Close is called, then drains
// what is already queued and returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	var g errgroup.Group
	for i := 0; i < d.cfg.Workers; i++ {
		g.Go(func() error {
			for j := range d.queue {
				d.execute(j)
			}
			return nil
		})
	}

	select {
	case <-ctx.Done():
		d.Close()
	case <-d.closing:
	}
	return g.Wait()
}

// Close stops accepting tasks.  Queued tasks still run.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		close(d.closing)
	})
}

// execute runs one task, containing its errors and panics.
func (d *Dispatcher) execute(j job) {
	log := d.logger.WithField("task", j.name)
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("task panicked")
		}
	}()

	ctx := context.Background()
	if d.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.TaskTimeout)
		defer cancel()
	}
	if err := j.run(ctx); err != nil {
		log.WithError(err).Warn("task failed")
	}
}
