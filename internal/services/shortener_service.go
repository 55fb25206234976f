package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/product"
)

// ClickSink accepts click events for recording. workers.ClickPool implements it.
type ClickSink interface {
	Enqueue(ctx context.Context, event models.ClickEvent)
}

// CreateRequest is a validated creation request.
type CreateRequest struct {
	URL       string
	ExpiresAt *time.Time
}

// CreateResult is a created link with its classification. Product is set
// only when the initial scrape was awaited and succeeded.
type CreateResult struct {
	Link           *models.Link
	Classification product.Classification
	Product        *models.ProductMetadata
}

// ShortenerService ties creation and redirection together: classification,
// registration, the initial product scrape and click dispatch.
type ShortenerService struct {
	detector     *product.Detector
	links        *LinkService
	products     *ProductService
	clicks       ClickSink
	awaitInitial bool
	detached     sync.WaitGroup // initial scrapes not awaited by Create
	now          func() time.Time
	logger       *slog.Logger
}

func NewShortenerService(
	detector *product.Detector,
	links *LinkService,
	products *ProductService,
	clicks ClickSink,
	awaitInitial bool,
	logger *slog.Logger,
) *ShortenerService {
	return &ShortenerService{
		detector:     detector,
		links:        links,
		products:     products,
		clicks:       clicks,
		awaitInitial: awaitInitial,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// Create registers req.URL. For product URLs one scrape is attempted;
// its failure is logged and never fails the creation.
func (s *ShortenerService) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := ValidateTargetURL(req.URL); err != nil {
		return nil, err
	}

	class := s.detector.Classify(req.URL)
	link, err := s.links.Create(ctx, req.URL, req.ExpiresAt, class.IsProduct)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Link: link, Classification: class}
	if !class.IsProduct {
		return result, nil
	}

	scrape := func(ctx context.Context) error {
		meta, err := s.products.GetOrScrape(ctx, link.ShortCode)
		if err != nil {
			return err
		}
		result.Product = meta
		return nil
	}
	attrs := []slog.Attr{
		slog.String("short_code", link.ShortCode),
		slog.String("provider_id", class.ProviderID),
	}

	if s.awaitInitial {
		BestEffort(ctx, s.logger, "initial product scrape", scrape, attrs...)
		return result, nil
	}

	detached := context.WithoutCancel(ctx)
	s.detached.Add(1)
	go func() {
		defer s.detached.Done()
		BestEffort(detached, s.logger, "initial product scrape", func(ctx context.Context) error {
			_, err := s.products.GetOrScrape(ctx, link.ShortCode)
			return err
		}, attrs...)
	}()
	return result, nil
}

// Wait blocks until every detached initial scrape has finished.
func (s *ShortenerService) Wait() {
	s.detached.Wait()
}

// Redirect resolves code to its target and dispatches one click.
func (s *ShortenerService) Redirect(ctx context.Context, code, userAgent, ip string) (string, error) {
	link, err := s.links.Resolve(ctx, code)
	if err != nil {
		return "", err
	}

	s.clicks.Enqueue(ctx, models.ClickEvent{
		LinkID:    link.ID,
		ShortCode: link.ShortCode,
		Timestamp: s.now(),
		UserAgent: userAgent,
		IPAddress: ip,
	})
	return link.LongURL, nil
}
