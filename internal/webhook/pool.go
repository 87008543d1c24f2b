package webhook

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/paywave/paywave/internal/settlement"
)

// jobTimeout bounds one event, including both processor verification calls.
const jobTimeout = 30 * time.Second

// EventHandler processes one event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) error
}

// Pool runs events on a fixed set of workers after the callback has been
// acknowledged.
type Pool struct {
	jobs    chan Event
	handler EventHandler
	logger  *slog.Logger
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool creates a pool with a queue of bufferSize events.
func NewPool(bufferSize int, handler EventHandler, logger *slog.Logger) *Pool {
	return &Pool{
		jobs:    make(chan Event, bufferSize),
		handler: handler,
		logger:  logger,
	}
}

// Start launches workerCount workers.
func (p *Pool) Start(workerCount int) {
	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for event := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		err := p.handler.HandleEvent(ctx, event)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, settlement.ErrAlreadyApplied):
			p.logger.Info("webhook replay ignored", slog.String("event_key", event.Key()))
		default:
			p.logger.Error("webhook processing failed",
				slog.String("event_key", event.Key()),
				slog.Any("error", err),
			)
		}
	}
}

// Submit queues event without blocking. It returns false when the queue is
// full or the pool is shutting down so the caller can ask the processor to
// redeliver.
func (p *Pool) Submit(event Event) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	select {
	case p.jobs <- event:
		return true
	default:
		return false
	}
}

// Shutdown stops accepting events and waits for queued ones to finish or for
// ctx to expire.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
