// Package monitor periodically checks that link targets are still reachable.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hypd/urlshortener/internal/models"
)

// checkTimeout bounds one accessibility probe.
const checkTimeout = 5 * time.Second

// LinkLister lists the links worth checking. repository.LinkRepository implements it.
type LinkLister interface {
	ListLiveLinks(ctx context.Context, now time.Time) ([]models.Link, error)
}

// Checker probes a URL. *scraper.Fetcher implements it.
type Checker interface {
	CheckAccessible(ctx context.Context, url string) bool
}

// UrlMonitor checks live link targets on an interval and logs every change
// between accessible and inaccessible.
type UrlMonitor struct {
	links       LinkLister
	checker     Checker
	interval    time.Duration
	knownStates map[uint]bool // link ID -> last observed accessibility
	mu          sync.Mutex
	now         func() time.Time
	logger      *slog.Logger
}

func NewUrlMonitor(links LinkLister, checker Checker, interval time.Duration, logger *slog.Logger) *UrlMonitor {
	return &UrlMonitor{
		links:       links,
		checker:     checker,
		interval:    interval,
		knownStates: make(map[uint]bool),
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// Start runs an immediate check, then one per interval, until ctx is done.
func (m *UrlMonitor) Start(ctx context.Context) {
	m.logger.Info("starting url monitor", slog.Duration("interval", m.interval))
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.CheckOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("url monitor stopped")
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce probes every live link and returns how many changed state.
func (m *UrlMonitor) CheckOnce(ctx context.Context) int {
	links, err := m.links.ListLiveLinks(ctx, m.now())
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to list links for monitoring", slog.String("error", err.Error()))
		return 0
	}

	m.prune(links)

	changed := 0
	for _, link := range links {
		if ctx.Err() != nil {
			return changed
		}

		probeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		current := m.checker.CheckAccessible(probeCtx, link.LongURL)
		cancel()

		m.mu.Lock()
		previous, seen := m.knownStates[link.ID]
		m.knownStates[link.ID] = current
		m.mu.Unlock()

		if !seen {
			m.logger.DebugContext(ctx, "initial link state",
				slog.String("short_code", link.ShortCode),
				slog.String("url", link.LongURL),
				slog.String("state", formatState(current)))
			continue
		}
		if current != previous {
			changed++
			m.logger.WarnContext(ctx, "link accessibility changed",
				slog.String("short_code", link.ShortCode),
				slog.String("url", link.LongURL),
				slog.String("from", formatState(previous)),
				slog.String("to", formatState(current)))
		}
	}
	return changed
}

// prune forgets links that are no longer live.
func (m *UrlMonitor) prune(live []models.Link) {
	keep := make(map[uint]struct{}, len(live))
	for _, link := range live {
		keep[link.ID] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.knownStates {
		if _, ok := keep[id]; !ok {
			delete(m.knownStates, id)
		}
	}
}

// State returns the last observed accessibility of a link.
func (m *UrlMonitor) State(linkID uint) (accessible, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	accessible, known = m.knownStates[linkID]
	return accessible, known
}

func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
