package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypd/urlshortener/internal/logging"
	"github.com/hypd/urlshortener/internal/models"
)

type staticLister struct{ links []models.Link }

func (l staticLister) ListLiveLinks(context.Context, time.Time) ([]models.Link, error) {
	return l.links, nil
}

type switchChecker struct {
	mu    sync.Mutex
	up    map[string]bool
	calls int
}

func (c *switchChecker) CheckAccessible(_ context.Context, url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.up[url]
}

func (c *switchChecker) set(url string, up bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up[url] = up
}

func TestUrlMonitor_DetectsTransitions(t *testing.T) {
	lister := staticLister{links: []models.Link{
		{ID: 1, ShortCode: "aaaaaa", LongURL: "https://a.example"},
		{ID: 2, ShortCode: "bbbbbb", LongURL: "https://b.example"},
	}}
	checker := &switchChecker{up: map[string]bool{"https://a.example": true, "https://b.example": true}}
	m := NewUrlMonitor(lister, checker, time.Minute, logging.Discard())

	assert.Equal(t, 0, m.CheckOnce(context.Background()), "first pass only records state")

	checker.set("https://b.example", false)
	assert.Equal(t, 1, m.CheckOnce(context.Background()))

	up, known := m.State(2)
	require.True(t, known)
	assert.False(t, up)

	assert.Equal(t, 0, m.CheckOnce(context.Background()))
}

func TestUrlMonitor_StartStopsWithContext(t *testing.T) {
	checker := &switchChecker{up: map[string]bool{}}
	m := NewUrlMonitor(staticLister{links: []models.Link{{ID: 1, LongURL: "https://x.example"}}},
		checker, time.Hour, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, known := m.State(1)
		return known
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestUrlMonitor_ForgetsLinksNoLongerLive(t *testing.T) {
	a := models.Link{ID: 1, ShortCode: "aaaaaa", LongURL: "https://a.example"}
	b := models.Link{ID: 2, ShortCode: "bbbbbb", LongURL: "https://b.example"}
	lister := &staticLister{links: []models.Link{a, b}}
	checker := &switchChecker{up: map[string]bool{"https://a.example": true, "https://b.example": true}}
	m := NewUrlMonitor(lister, checker, time.Minute, logging.Discard())

	m.CheckOnce(context.Background())
	_, known := m.State(2)
	require.True(t, known)

	lister.links = []models.Link{a}
	m.CheckOnce(context.Background())

	_, known = m.State(2)
	assert.False(t, known)
	_, known = m.State(1)
	assert.True(t, known)
}
