package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/models"
)

// AnalyticsRepository persists per-link click statistics.
type AnalyticsRepository interface {
	RecordClick(ctx context.Context, urlID uint, at time.Time) error
	GetByURLID(ctx context.Context, urlID uint) (*models.Analytics, error)
}

// GormAnalyticsRepository implements AnalyticsRepository with GORM.
type GormAnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

// RecordClick creates the analytics row on the first click and updates it
// afterwards, in one INSERT ... ON CONFLICT(url_id) DO UPDATE statement.
// Two racing first clicks both land: the loser takes the update branch.
// MIN/MAX keep first <= last even when clicks are applied out of order.
func (r *GormAnalyticsRepository) RecordClick(ctx context.Context, urlID uint, at time.Time) error {
	at = at.UTC()
	rec := models.Analytics{
		URLID:        urlID,
		FirstClickAt: &at,
		LastClickAt:  &at,
		TotalClicks:  1,
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "url_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"total_clicks":   gorm.Expr("analytics.total_clicks + 1"),
				"first_click_at": gorm.Expr("MIN(COALESCE(analytics.first_click_at, excluded.first_click_at), excluded.first_click_at)"),
				"last_click_at":  gorm.Expr("MAX(COALESCE(analytics.last_click_at, excluded.last_click_at), excluded.last_click_at)"),
			}),
		}).
		Create(&rec).Error
	if err != nil {
		return storageErr(fmt.Sprintf("record click for link %d", urlID), err)
	}
	return nil
}

func (r *GormAnalyticsRepository) GetByURLID(ctx context.Context, urlID uint) (*models.Analytics, error) {
	var a models.Analytics
	if err := r.db.WithContext(ctx).Where("url_id = ?", urlID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storageErr("get analytics", err)
	}
	return &a, nil
}
