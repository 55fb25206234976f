package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hypd/urlshortener/internal/logging"
	"github.com/hypd/urlshortener/internal/models"
)

type countingRecorder struct {
	mu     sync.Mutex
	events []models.ClickEvent
	block  chan struct{}
	fail   bool
}

func (r *countingRecorder) RecordClick(ctx context.Context, event models.ClickEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	if r.fail {
		return errors.New("boom")
	}
	return nil
}

func (r *countingRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestClickPool_DrainsOnClose(t *testing.T) {
	rec := &countingRecorder{}
	pool := NewClickPool(rec, 100, 4, logging.Discard())
	pool.Start()

	for i := 0; i < 50; i++ {
		pool.Enqueue(context.Background(), models.ClickEvent{LinkID: uint(i)})
	}
	pool.Close()

	assert.Equal(t, 50, rec.count())
}

func TestClickPool_FullBufferRecordsSynchronously(t *testing.T) {
	rec := &countingRecorder{block: make(chan struct{})}
	pool := NewClickPool(rec, 1, 1, logging.Discard())
	pool.Start()

	// One event held by the worker, one in the buffer; the rest overflow.
	var overflowed atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 4; i++ {
			pool.Enqueue(context.Background(), models.ClickEvent{LinkID: 1})
			overflowed.Add(1)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	close(rec.block)
	<-done
	pool.Close()

	assert.Equal(t, int32(4), overflowed.Load())
	assert.Equal(t, 4, rec.count(), "no click may be dropped")
}

func TestClickPool_NotStartedRecordsSynchronously(t *testing.T) {
	rec := &countingRecorder{}
	pool := NewClickPool(rec, 10, 2, logging.Discard())

	pool.Enqueue(context.Background(), models.ClickEvent{LinkID: 7})
	assert.Equal(t, 1, rec.count())
}

func TestClickPool_EnqueueAfterClose(t *testing.T) {
	rec := &countingRecorder{}
	pool := NewClickPool(rec, 10, 2, logging.Discard())
	pool.Start()
	pool.Close()
	pool.Close()

	assert.NotPanics(t, func() {
		pool.Enqueue(context.Background(), models.ClickEvent{LinkID: 3})
	})
	assert.Equal(t, 1, rec.count())
}

func TestClickPool_RecorderErrorIsNotFatal(t *testing.T) {
	rec := &countingRecorder{fail: true}
	pool := NewClickPool(rec, 10, 1, logging.Discard())
	pool.Start()

	pool.Enqueue(context.Background(), models.ClickEvent{LinkID: 1})
	pool.Enqueue(context.Background(), models.ClickEvent{LinkID: 2})
	pool.Close()

	assert.Equal(t, 2, rec.count())
}
