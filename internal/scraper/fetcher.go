// Package scraper fetches product pages and extracts product metadata from their markup.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/hypd/urlshortener/internal/errors"
)

// maxBodyBytes caps how much of a product page is read.
const maxBodyBytes = 5 << 20

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout         time.Duration
	MaxRedirects    int
	UserAgent       string
	BreakerFailures int           // consecutive failures before the breaker opens; 0 disables it
	BreakerCooldown time.Duration // time spent open before probing again
}

// Fetcher performs outbound GETs that look like a desktop browser.
// Each call is bounded by its own timeout. Repeated network or 5xx failures
// open a circuit breaker so a dead provider fails fast.
type Fetcher struct {
	client    *http.Client
	userAgent string
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	maxRedirects := opts.MaxRedirects
	f := &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		logger:    logger,
	}

	if opts.BreakerFailures > 0 {
		failures := uint32(opts.BreakerFailures)
		f.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "product-fetch",
			Timeout: opts.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// A 4xx means the provider answered; only transport errors and 5xx count.
			// Requests abandoned by the caller say nothing about the provider.
			IsSuccessful: func(err error) bool {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return true
				}
				var ff *apperrors.FetchFailedError
				if errors.As(err, &ff) {
					return ff.StatusCode >= 400 && ff.StatusCode < 500
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed",
					slog.String("breaker", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()))
			},
		})
	}

	return f
}

// Fetch returns the body of a 2xx response. Every failure is a *FetchFailedError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &apperrors.FetchFailedError{URL: rawURL, Reason: err.Error(), Err: err}
	}
	if f.breaker == nil {
		return f.fetch(ctx, rawURL)
	}

	body, err := f.breaker.Execute(func() (interface{}, error) {
		return f.fetch(ctx, rawURL)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &apperrors.FetchFailedError{URL: rawURL, Reason: err.Error()}
		}
		return nil, err
	}
	return body.([]byte), nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &apperrors.FetchFailedError{URL: rawURL, Reason: err.Error()}
	}
	f.setBrowserHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &apperrors.FetchFailedError{URL: rawURL, Reason: err.Error(), Err: ctx.Err()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &apperrors.FetchFailedError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &apperrors.FetchFailedError{URL: rawURL, StatusCode: resp.StatusCode, Reason: err.Error(), Err: ctx.Err()}
	}

	f.logger.Debug("fetched page",
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(body)),
		slog.Duration("latency", time.Since(start)))

	return body, nil
}

// CheckAccessible sends a HEAD request and reports whether the target answered 2xx or 3xx.
func (f *Fetcher) CheckAccessible(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		f.logger.Debug("cannot build accessibility request", slog.String("url", rawURL), slog.String("error", err.Error()))
		return false
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("accessibility check failed", slog.String("url", rawURL), slog.String("error", err.Error()))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// setBrowserHeaders mimics a desktop browser to reduce anti-bot rejections.
// Accept-Encoding is left to the transport so gzip is decoded transparently.
func (f *Fetcher) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Cache-Control", "no-cache")
}
