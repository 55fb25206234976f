package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/repository"
)

// AnalyticsSummary is the click statistics of one link.
type AnalyticsSummary struct {
	ShortCode    string
	LongURL      string
	TotalClicks  int64
	FirstClickAt *time.Time
	LastClickAt  *time.Time
}

// AnalyticsService accumulates per-link click statistics and answers aggregate queries.
type AnalyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	linkRepo      repository.LinkRepository
	now           func() time.Time
}

func NewAnalyticsService(analyticsRepo repository.AnalyticsRepository, linkRepo repository.LinkRepository) *AnalyticsService {
	return &AnalyticsService{
		analyticsRepo: analyticsRepo,
		linkRepo:      linkRepo,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RecordClick counts one click at instant at. The first click creates the
// record; concurrent calls for the same link never lose an increment.
func (s *AnalyticsService) RecordClick(ctx context.Context, urlID uint, at time.Time) error {
	return s.analyticsRepo.RecordClick(ctx, urlID, at)
}

// GetByURLID returns the statistics of the link with this id.
func (s *AnalyticsService) GetByURLID(ctx context.Context, urlID uint) (*AnalyticsSummary, error) {
	link, err := s.linkRepo.GetLinkByID(ctx, urlID)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, link)
}

// GetByCode returns the statistics of the link with this short code.
func (s *AnalyticsService) GetByCode(ctx context.Context, code string) (*AnalyticsSummary, error) {
	if !ValidShortCode(code) {
		return nil, apperrors.InvalidInputf("invalid short code %q", code)
	}
	link, err := s.linkRepo.GetLinkByShortCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, link)
}

// summarize falls back to the link's running counter while no click has been
// recorded in the analytics table yet.
func (s *AnalyticsService) summarize(ctx context.Context, link *models.Link) (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{
		ShortCode:   link.ShortCode,
		LongURL:     link.LongURL,
		TotalClicks: link.ClickCount,
	}

	rec, err := s.analyticsRepo.GetByURLID(ctx, link.ID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return summary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics for %s: %w", link.ShortCode, err)
	}

	summary.TotalClicks = rec.TotalClicks
	summary.FirstClickAt = rec.FirstClickAt
	summary.LastClickAt = rec.LastClickAt
	return summary, nil
}

// Summary aggregates counts over every link.
func (s *AnalyticsService) Summary(ctx context.Context) (*repository.LinkSummary, error) {
	return s.linkRepo.Summary(ctx, s.now())
}

// TopByClicks ranks active links by the registry's click counter.
func (s *AnalyticsService) TopByClicks(ctx context.Context, limit int) ([]models.Link, error) {
	if limit < 1 || limit > 100 {
		return nil, apperrors.InvalidInputf("limit must be between 1 and 100")
	}
	return s.linkRepo.TopLinks(ctx, limit)
}
