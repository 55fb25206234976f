package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/metrics"
	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/repository"
	"github.com/hypd/urlshortener/internal/scraper"
)

// DefaultFreshnessWindow is how long stored metadata is served without refetching.
const DefaultFreshnessWindow = 24 * time.Hour

// PageFetcher returns the markup of a page. *scraper.Fetcher implements it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProductOptions configures a ProductService.
type ProductOptions struct {
	BaseURL         string // resolves root-relative image URLs
	FreshnessWindow time.Duration
}

// ProductService caches extracted product metadata per link.
//
// A record is fresh while its scraped_at is younger than the freshness
// window; GetOrScrape serves fresh records as stored and refetches
// otherwise. A failed fetch never touches the stored record.
type ProductService struct {
	linkRepo    repository.LinkRepository
	productRepo repository.ProductRepository
	fetcher     PageFetcher
	baseURL     string
	freshness   time.Duration
	now         func() time.Time
	group       singleflight.Group // one in-flight scrape per short code
	logger      *slog.Logger
}

func NewProductService(
	linkRepo repository.LinkRepository,
	productRepo repository.ProductRepository,
	fetcher PageFetcher,
	opts ProductOptions,
	logger *slog.Logger,
) *ProductService {
	if opts.FreshnessWindow <= 0 {
		opts.FreshnessWindow = DefaultFreshnessWindow
	}
	return &ProductService{
		linkRepo:    linkRepo,
		productRepo: productRepo,
		fetcher:     fetcher,
		baseURL:     opts.BaseURL,
		freshness:   opts.FreshnessWindow,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// GetOrScrape returns fresh stored metadata, or fetches and stores new metadata.
func (s *ProductService) GetOrScrape(ctx context.Context, code string) (*models.ProductMetadata, error) {
	link, err := s.productLink(ctx, code)
	if err != nil {
		return nil, err
	}

	stored, err := s.productRepo.GetByURLID(ctx, link.ID)
	switch {
	case err == nil && s.fresh(stored):
		metrics.ProductLookups.WithLabelValues("fresh").Inc()
		return stored, nil
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return nil, err
	}

	return s.scrape(ctx, link)
}

// ForceRefresh fetches the page regardless of the stored record's age.
func (s *ProductService) ForceRefresh(ctx context.Context, code string) (*models.ProductMetadata, error) {
	link, err := s.productLink(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.scrape(ctx, link)
}

// Get returns stored metadata without fetching. Links that are not products
// have no metadata and report ErrNotFound.
func (s *ProductService) Get(ctx context.Context, code string) (*models.ProductMetadata, error) {
	link, err := s.link(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.IsProduct {
		return nil, apperrors.ErrNotFound
	}
	return s.productRepo.GetByURLID(ctx, link.ID)
}

// Delete removes the stored metadata of a link.
func (s *ProductService) Delete(ctx context.Context, code string) error {
	link, err := s.link(ctx, code)
	if err != nil {
		return err
	}
	return s.productRepo.DeleteByURLID(ctx, link.ID)
}

// List pages through stored metadata, most recently scraped first.
func (s *ProductService) List(ctx context.Context, limit, offset int) ([]repository.ProductListing, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.productRepo.List(ctx, limit, offset)
}

func (s *ProductService) fresh(rec *models.ProductMetadata) bool {
	return s.now().Sub(rec.ScrapedAt) < s.freshness
}

// scrape fetches, extracts and merges. Concurrent scrapes of the same code
// share one fetch. The shared fetch does not inherit any caller's
// cancellation; each caller stops waiting when its own ctx is done.
func (s *ProductService) scrape(ctx context.Context, link *models.Link) (*models.ProductMetadata, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(link.ShortCode, func() (any, error) {
		markup, err := s.fetcher.Fetch(shared, link.LongURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch product page for %s: %w", link.ShortCode, err)
		}

		fields, err := scraper.Extract(markup, s.baseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to extract product page for %s: %w: %w",
				link.ShortCode, apperrors.ErrExternalServiceUnavailable, err)
		}
		if fields.Empty() {
			s.logger.WarnContext(shared, "no product field extracted",
				slog.String("short_code", link.ShortCode),
				slog.String("url", link.LongURL))
		}

		return s.productRepo.Upsert(shared, link.ID, fields, s.now())
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.ProductLookups.WithLabelValues("failed").Inc()
			return nil, res.Err
		}
		metrics.ProductLookups.WithLabelValues("scraped").Inc()
		return res.Val.(*models.ProductMetadata), nil
	}
}

func (s *ProductService) link(ctx context.Context, code string) (*models.Link, error) {
	if !ValidShortCode(code) {
		return nil, apperrors.InvalidInputf("invalid short code %q", code)
	}
	return s.linkRepo.GetLinkByShortCode(ctx, code)
}

func (s *ProductService) productLink(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.link(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.IsProduct {
		return nil, apperrors.ErrNotAProduct
	}
	return link, nil
}
