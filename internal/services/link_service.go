// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/metrics"
	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/repository"
)

const maxTargetURLLength = 2048

// LinkOptions configures a LinkService.
type LinkOptions struct {
	CodeLength  int
	MaxAttempts int // code generation attempts before ErrCodeSpaceExhausted
}

// LinkService owns short link records: creation with unique codes, liveness
// checks on resolve, click counting and deactivation.
type LinkService struct {
	linkRepo    repository.LinkRepository
	codeLength  int
	maxAttempts int
	generate    func(length int) (string, error)
	now         func() time.Time
	logger      *slog.Logger
}

// NewLinkService creates a LinkService. Out-of-range options fall back to
// a 6 character code and 10 attempts.
func NewLinkService(linkRepo repository.LinkRepository, opts LinkOptions, logger *slog.Logger) *LinkService {
	if opts.CodeLength < MinCodeLength || opts.CodeLength > MaxCodeLength {
		opts.CodeLength = 6
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 10
	}
	return &LinkService{
		linkRepo:    linkRepo,
		codeLength:  opts.CodeLength,
		maxAttempts: opts.MaxAttempts,
		generate:    GenerateShortCode,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger,
	}
}

// ValidateTargetURL accepts absolute http and https URLs only.
func ValidateTargetURL(raw string) error {
	if raw == "" {
		return apperrors.InvalidInputf("url is required")
	}
	if len(raw) > maxTargetURLLength {
		return apperrors.InvalidInputf("url exceeds %d characters", maxTargetURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperrors.InvalidInputf("url does not parse: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return apperrors.InvalidInputf("url scheme must be http or https")
	}
	if u.Host == "" {
		return apperrors.InvalidInputf("url must be absolute")
	}
	return nil
}

// Create persists a new link under a freshly generated code. A taken code is
// retried up to the attempt budget; running out returns ErrCodeSpaceExhausted.
func (s *LinkService) Create(ctx context.Context, targetURL string, expiresAt *time.Time, isProduct bool) (*models.Link, error) {
	if err := ValidateTargetURL(targetURL); err != nil {
		return nil, err
	}
	if expiresAt != nil {
		utc := expiresAt.UTC()
		if !utc.After(s.now()) {
			return nil, apperrors.InvalidInputf("expires_at must be in the future")
		}
		expiresAt = &utc
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}
		if Reserved(code) {
			s.logger.DebugContext(ctx, "generated a reserved short code, retrying",
				slog.String("short_code", code),
				slog.Int("attempt", attempt))
			continue
		}

		link := &models.Link{
			ShortCode: code,
			LongURL:   targetURL,
			IsProduct: isProduct,
			ExpiresAt: expiresAt,
			IsActive:  true,
		}

		err = s.linkRepo.CreateLink(ctx, link)
		if err == nil {
			metrics.LinksCreated.WithLabelValues(strconv.FormatBool(isProduct)).Inc()
			return link, nil
		}
		if !errors.Is(err, apperrors.ErrCodeConflict) {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		metrics.CodeCollisions.Inc()
		s.logger.DebugContext(ctx, "short code collision, retrying",
			slog.String("short_code", code),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.maxAttempts))
	}

	s.logger.ErrorContext(ctx, "short code space exhausted",
		slog.Bool("alert", true),
		slog.Int("code_length", s.codeLength),
		slog.Int("attempts", s.maxAttempts))
	return nil, fmt.Errorf("no free code of length %d after %d attempts: %w",
		s.codeLength, s.maxAttempts, apperrors.ErrCodeSpaceExhausted)
}

// Resolve returns a live link. Unknown, inactive and expired codes all report ErrNotFound.
func (s *LinkService) Resolve(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.Live(s.now()) {
		return nil, apperrors.ErrNotFound
	}
	return link, nil
}

// Get returns the link stored under code whatever its liveness.
func (s *LinkService) Get(ctx context.Context, code string) (*models.Link, error) {
	if !ValidShortCode(code) {
		return nil, apperrors.InvalidInputf("invalid short code %q", code)
	}
	return s.linkRepo.GetLinkByShortCode(ctx, code)
}

// RecordClick adds exactly one click to the link's counter.
func (s *LinkService) RecordClick(ctx context.Context, id uint) error {
	return s.linkRepo.IncrementClickCount(ctx, id)
}

// Deactivate switches the link off. There is no way back.
func (s *LinkService) Deactivate(ctx context.Context, id uint) error {
	return s.linkRepo.Deactivate(ctx, id)
}

// DeactivateByCode looks the link up by code and deactivates it.
func (s *LinkService) DeactivateByCode(ctx context.Context, code string) (*models.Link, error) {
	link, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.Deactivate(ctx, link.ID); err != nil {
		return nil, err
	}
	link.IsActive = false
	return link, nil
}

// List pages through links, newest first. limit must be within 1..100.
func (s *LinkService) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	if err := validatePage(limit, offset); err != nil {
		return nil, err
	}
	return s.linkRepo.ListLinks(ctx, limit, offset)
}

// Live reports whether link resolves right now.
func (s *LinkService) Live(link *models.Link) bool {
	return link.Live(s.now())
}

func validatePage(limit, offset int) error {
	if limit < 1 || limit > 100 {
		return apperrors.InvalidInputf("limit must be between 1 and 100")
	}
	if offset < 0 {
		return apperrors.InvalidInputf("offset must not be negative")
	}
	return nil
}
