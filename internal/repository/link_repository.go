package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/models"
)

// LinkRepository defines data access for short links.
type LinkRepository interface {
	CreateLink(ctx context.Context, link *models.Link) error
	GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	GetLinkByID(ctx context.Context, id uint) (*models.Link, error)
	IncrementClickCount(ctx context.Context, id uint) error
	Deactivate(ctx context.Context, id uint) error
	ListLinks(ctx context.Context, limit, offset int) ([]models.Link, error)
	ListLiveLinks(ctx context.Context, now time.Time) ([]models.Link, error)
	TopLinks(ctx context.Context, limit int) ([]models.Link, error)
	Summary(ctx context.Context, now time.Time) (*LinkSummary, error)
}

// LinkSummary aggregates counts over every stored link.
type LinkSummary struct {
	TotalURLs   int64 `gorm:"column:total_urls"`
	TotalClicks int64 `gorm:"column:total_clicks"`
	ActiveURLs  int64 `gorm:"column:active_urls"`
	ExpiredURLs int64 `gorm:"column:expired_urls"`
}

// GormLinkRepository implements LinkRepository with GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink inserts a new link. A short code collision returns ErrCodeConflict.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrCodeConflict
		}
		return storageErr("create link", err)
	}
	return nil
}

// GetLinkByShortCode returns the link with this code regardless of its liveness.
func (r *GormLinkRepository) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storageErr("get link by short code", err)
	}
	return &link, nil
}

func (r *GormLinkRepository) GetLinkByID(ctx context.Context, id uint) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storageErr("get link by id", err)
	}
	return &link, nil
}

// IncrementClickCount adds one click; the addition is evaluated by the database.
func (r *GormLinkRepository) IncrementClickCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("id = ?", id).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if res.Error != nil {
		return storageErr(fmt.Sprintf("increment click count for link %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *GormLinkRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Link{}).
		Where("id = ?", id).
		UpdateColumn("is_active", false)
	if res.Error != nil {
		return storageErr(fmt.Sprintf("deactivate link %d", id), res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListLinks pages through all links, newest first.
func (r *GormLinkRepository) ListLinks(ctx context.Context, limit, offset int) ([]models.Link, error) {
	var links []models.Link
	err := r.db.WithContext(ctx).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "created_at"}, Desc: true},
			{Column: clause.Column{Name: "id"}, Desc: true},
		}}).
		Limit(limit).Offset(offset).
		Find(&links).Error
	if err != nil {
		return nil, storageErr("list links", err)
	}
	return links, nil
}

// ListLiveLinks returns every active, unexpired link.
func (r *GormLinkRepository) ListLiveLinks(ctx context.Context, now time.Time) ([]models.Link, error) {
	var links []models.Link
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now.UTC()).
		Find(&links).Error
	if err != nil {
		return nil, storageErr("list live links", err)
	}
	return links, nil
}

// TopLinks ranks active links by their running click_count.
func (r *GormLinkRepository) TopLinks(ctx context.Context, limit int) ([]models.Link, error) {
	var links []models.Link
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("click_count DESC").Order("id ASC").
		Limit(limit).
		Find(&links).Error
	if err != nil {
		return nil, storageErr("list top links", err)
	}
	return links, nil
}

func (r *GormLinkRepository) Summary(ctx context.Context, now time.Time) (*LinkSummary, error) {
	var s LinkSummary
	now = now.UTC()
	err := r.db.WithContext(ctx).Model(&models.Link{}).
		Select(`COUNT(*) AS total_urls,
			COALESCE(SUM(click_count), 0) AS total_clicks,
			COALESCE(SUM(CASE WHEN is_active = ? AND (expires_at IS NULL OR expires_at > ?) THEN 1 ELSE 0 END), 0) AS active_urls,
			COALESCE(SUM(CASE WHEN expires_at IS NOT NULL AND expires_at <= ? THEN 1 ELSE 0 END), 0) AS expired_urls`,
			true, now, now).
		Scan(&s).Error
	if err != nil {
		return nil, storageErr("summarize links", err)
	}
	return &s, nil
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func storageErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, apperrors.ErrStorage, err)
}
