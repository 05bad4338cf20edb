package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned by Submit when the buffer has no room.
	ErrQueueFull = errors.New("queue full")
	// ErrQueueStopped is returned by Submit before Start or after Stop.
	ErrQueueStopped = errors.New("queue stopped")
)

// Handler processes one payload.
type Handler[T any] func(context.Context, T) error

// Config tunes a worker pool.
type Config struct {
	Workers     int
	BufferSize  int
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

type task[T any] struct {
	payload T
	attempt int
}

// Queue dispatches payloads to a fixed pool of goroutines and retries
// failures with linear backoff.
type Queue[T any] struct {
	name        string
	handler     Handler[T]
	workers     int
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	tasks   chan task[T]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	running bool
}

// New builds a queue. Zero config values get small defaults.
func New[T any](name string, handler Handler[T], cfg Config) *Queue[T] {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue[T]{
		name:        name,
		handler:     handler,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		logger:      cfg.Logger.With(zap.String("queue", name)),
		tasks:       make(chan task[T], cfg.BufferSize),
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (q *Queue[T]) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.running = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for in-flight handlers to return.
// Payloads still buffered, including ones waiting out a retry backoff, are
// then run once inline; failures are logged with their payload.
func (q *Queue[T]) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	drained, failed := q.drain()
	q.logger.Info("queue stopped", zap.Int("drained", drained), zap.Int("failed", failed))
}

func (q *Queue[T]) drain() (drained, failed int) {
	ctx := context.WithoutCancel(q.ctx)
	for {
		select {
		case t := <-q.tasks:
			if err := q.handler(ctx, t.payload); err != nil {
				failed++
				q.logger.Error("job dropped at shutdown", zap.Any("payload", t.payload), zap.Error(err))
				continue
			}
			drained++
		default:
			return drained, failed
		}
	}
}

// Submit enqueues payload without blocking.
func (q *Queue[T]) Submit(payload T) error {
	return q.push(task[T]{payload: payload})
}

func (q *Queue[T]) push(t task[T]) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("%s: %w", q.name, ErrQueueStopped)
	}
	select {
	case q.tasks <- t:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrQueueFull)
	}
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case t := <-q.tasks:
			t.attempt++
			if err := q.handler(q.ctx, t.payload); err != nil {
				q.retry(t, err)
			}
		}
	}
}

func (q *Queue[T]) retry(t task[T], err error) {
	if t.attempt >= q.maxAttempts {
		q.logger.Error("job exhausted retries", zap.Int("attempts", t.attempt), zap.Error(err))
		return
	}
	q.logger.Warn("job failed, retrying", zap.Int("attempt", t.attempt), zap.Error(err))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.backoff * time.Duration(t.attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			select {
			case q.tasks <- t:
			default:
				q.logger.Error("job dropped at shutdown", zap.Any("payload", t.payload), zap.Error(err))
			}
		case <-timer.C:
			if err := q.push(t); err != nil {
				q.logger.Error("failed to requeue job", zap.Error(err))
			}
		}
	}()
}
