package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hypd/urlshortener/internal/models"
)

// ClickTracker applies one click event to both the link counter and the
// analytics record. The click workers call it for every event.
type ClickTracker struct {
	links     *LinkService
	analytics *AnalyticsService
}

func NewClickTracker(links *LinkService, analytics *AnalyticsService) *ClickTracker {
	return &ClickTracker{links: links, analytics: analytics}
}

// RecordClick persists event. Both writes are attempted even if one fails.
func (t *ClickTracker) RecordClick(ctx context.Context, event models.ClickEvent) error {
	var errs []error
	if err := t.links.RecordClick(ctx, event.LinkID); err != nil {
		errs = append(errs, fmt.Errorf("click count: %w", err))
	}
	if err := t.analytics.RecordClick(ctx, event.LinkID, event.Timestamp); err != nil {
		errs = append(errs, fmt.Errorf("analytics: %w", err))
	}
	return errors.Join(errs...)
}
