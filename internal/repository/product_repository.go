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

// ProductRepository persists extracted product metadata, one row per link.
type ProductRepository interface {
	GetByURLID(ctx context.Context, urlID uint) (*models.ProductMetadata, error)
	Upsert(ctx context.Context, urlID uint, fields models.ProductFields, scrapedAt time.Time) (*models.ProductMetadata, error)
	DeleteByURLID(ctx context.Context, urlID uint) error
	List(ctx context.Context, limit, offset int) ([]ProductListing, error)
}

// ProductListing is a stored metadata row joined with its link's code.
type ProductListing struct {
	ShortCode        string
	LongURL          string
	ProductName      *string
	Price            *string
	BrandName        *string
	FeaturedImageURL *string
	ScrapedAt        time.Time
}

type GormProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) GetByURLID(ctx context.Context, urlID uint) (*models.ProductMetadata, error) {
	var pm models.ProductMetadata
	if err := r.db.WithContext(ctx).Where("url_id = ?", urlID).First(&pm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, storageErr("get product metadata", err)
	}
	return &pm, nil
}

// Upsert inserts or merges metadata in a single statement. A nil field keeps
// the stored value; scraped_at always moves to scrapedAt.
func (r *GormProductRepository) Upsert(ctx context.Context, urlID uint, fields models.ProductFields, scrapedAt time.Time) (*models.ProductMetadata, error) {
	rec := models.ProductMetadata{
		URLID:            urlID,
		ProductName:      fields.ProductName,
		Price:            fields.Price,
		BrandName:        fields.BrandName,
		FeaturedImageURL: fields.FeaturedImageURL,
		ScrapedAt:        scrapedAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "url_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"product_name":       gorm.Expr("COALESCE(excluded.product_name, product_metadata.product_name)"),
				"price":              gorm.Expr("COALESCE(excluded.price, product_metadata.price)"),
				"brand_name":         gorm.Expr("COALESCE(excluded.brand_name, product_metadata.brand_name)"),
				"featured_image_url": gorm.Expr("COALESCE(excluded.featured_image_url, product_metadata.featured_image_url)"),
				"scraped_at":         gorm.Expr("excluded.scraped_at"),
			}),
		}).
		Create(&rec).Error
	if err != nil {
		return nil, storageErr(fmt.Sprintf("upsert product metadata for link %d", urlID), err)
	}
	return r.GetByURLID(ctx, urlID)
}

func (r *GormProductRepository) DeleteByURLID(ctx context.Context, urlID uint) error {
	res := r.db.WithContext(ctx).Where("url_id = ?", urlID).Delete(&models.ProductMetadata{})
	if res.Error != nil {
		return storageErr("delete product metadata", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List pages through stored metadata of product links, most recently scraped first.
func (r *GormProductRepository) List(ctx context.Context, limit, offset int) ([]ProductListing, error) {
	var rows []ProductListing
	err := r.db.WithContext(ctx).
		Table("product_metadata").
		Select(`links.short_code, links.long_url, product_metadata.product_name, product_metadata.price,
			product_metadata.brand_name, product_metadata.featured_image_url, product_metadata.scraped_at`).
		Joins("JOIN links ON links.id = product_metadata.url_id").
		Where("links.is_product = ?", true).
		Order("product_metadata.scraped_at DESC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("list product metadata", err)
	}
	return rows, nil
}
