// Package workers records click events off the request path.
package workers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hypd/urlshortener/internal/metrics"
	"github.com/hypd/urlshortener/internal/models"
)

// recordTimeout bounds a single click write.
const recordTimeout = 5 * time.Second

// ClickRecorder persists one click event. *services.ClickTracker implements it.
type ClickRecorder interface {
	RecordClick(ctx context.Context, event models.ClickEvent) error
}

// ClickPool is a buffered channel drained by a fixed set of worker goroutines.
// When the buffer is full, or the pool is closed, Enqueue records the click
// synchronously instead of dropping it.
type ClickPool struct {
	events      chan models.ClickEvent
	recorder    ClickRecorder
	workerCount int
	logger      *slog.Logger

	wg      sync.WaitGroup
	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewClickPool creates a pool. Start launches the workers.
func NewClickPool(recorder ClickRecorder, bufferSize, workerCount int, logger *slog.Logger) *ClickPool {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &ClickPool{
		events:      make(chan models.ClickEvent, bufferSize),
		recorder:    recorder,
		workerCount: workerCount,
		logger:      logger,
	}
}

// Start launches the worker goroutines. Calling it twice is a no-op.
func (p *ClickPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info("starting click workers",
		slog.Int("workers", p.workerCount),
		slog.Int("buffer", cap(p.events)))

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Enqueue hands the event to the workers without blocking.
func (p *ClickPool) Enqueue(ctx context.Context, event models.ClickEvent) {
	p.mu.RLock()
	if p.started && !p.closed && p.workerCount > 0 {
		select {
		case p.events <- event:
			p.mu.RUnlock()
			return
		default:
		}
	}
	p.mu.RUnlock()

	p.logger.DebugContext(ctx, "click buffer unavailable, recording synchronously",
		slog.String("short_code", event.ShortCode))
	p.record(context.WithoutCancel(ctx), event, "sync")
}

// Close stops accepting events and waits until the buffer is drained.
func (p *ClickPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("click workers stopped")
}

// worker exits when the channel is closed and empty.
func (p *ClickPool) worker(id int) {
	defer p.wg.Done()
	for event := range p.events {
		p.record(context.Background(), event, "async")
	}
	p.logger.Debug("click worker exited", slog.Int("worker", id))
}

func (p *ClickPool) record(ctx context.Context, event models.ClickEvent, path string) {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	if err := p.recorder.RecordClick(ctx, event); err != nil {
		metrics.ClicksRecorded.WithLabelValues(path, "error").Inc()
		p.logger.ErrorContext(ctx, "failed to record click",
			slog.Uint64("link_id", uint64(event.LinkID)),
			slog.String("short_code", event.ShortCode),
			slog.String("user_agent", event.UserAgent),
			slog.String("ip", event.IPAddress),
			slog.String("error", err.Error()))
		return
	}
	metrics.ClicksRecorded.WithLabelValues(path, "ok").Inc()
}
