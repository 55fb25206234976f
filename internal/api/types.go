package api

import (
	"time"

	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/repository"
	"github.com/hypd/urlshortener/internal/services"
)

const maxBatchSize = 50

// CreateURLRequest is the body of POST /api/v1/urls.
// Single: {"url": "https://example.com"}
// Batch:  {"urls": ["https://a.example", "https://b.example"]}
// expires_at is an optional RFC 3339 timestamp applied to every URL.
type CreateURLRequest struct {
	URL       string     `json:"url"`
	URLs      []string   `json:"urls"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type pageQuery struct {
	Limit  int `form:"limit,default=50" binding:"min=1,max=100"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

type topQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// URLResponse describes one short link.
type URLResponse struct {
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	OriginalURL string     `json:"original_url"`
	IsProduct   bool       `json:"is_product"`
	IsActive    bool       `json:"is_active"`
	ClickCount  int64      `json:"click_count"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateURLResponse is a created link plus what the product detector found.
type CreateURLResponse struct {
	URLResponse
	ProductID string           `json:"product_id,omitempty"`
	Title     string           `json:"title,omitempty"`
	Product   *ProductResponse `json:"product_metadata,omitempty"`
}

// BatchResult is the outcome for one URL of a batch creation.
type BatchResult struct {
	OriginalURL string             `json:"original_url"`
	Success     bool               `json:"success"`
	URL         *CreateURLResponse `json:"url,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type BatchCreateResponse struct {
	Results []BatchResult `json:"results"`
	Summary struct {
		Total      int `json:"total"`
		Successful int `json:"successful"`
		Failed     int `json:"failed"`
	} `json:"summary"`
}

type AnalyticsResponse struct {
	ShortCode    string     `json:"short_code"`
	OriginalURL  string     `json:"original_url"`
	TotalClicks  int64      `json:"total_clicks"`
	FirstClickAt *time.Time `json:"first_click_at"`
	LastClickAt  *time.Time `json:"last_click_at"`
}

type SummaryResponse struct {
	TotalURLs   int64 `json:"total_urls"`
	TotalClicks int64 `json:"total_clicks"`
	ActiveURLs  int64 `json:"active_urls"`
	ExpiredURLs int64 `json:"expired_urls"`
}

// ProductResponse is stored product metadata. Absent fields are null.
type ProductResponse struct {
	ShortCode        string    `json:"short_code"`
	OriginalURL      string    `json:"original_url,omitempty"`
	ProductName      *string   `json:"product_name"`
	Price            *string   `json:"price"`
	BrandName        *string   `json:"brand_name"`
	FeaturedImageURL *string   `json:"featured_image_url"`
	ScrapedAt        time.Time `json:"scraped_at"`
}

func (h *Handler) urlResponse(link *models.Link) URLResponse {
	return URLResponse{
		ShortCode:   link.ShortCode,
		ShortURL:    h.shortURL(link.ShortCode),
		OriginalURL: link.LongURL,
		IsProduct:   link.IsProduct,
		IsActive:    link.IsActive,
		ClickCount:  link.ClickCount,
		ExpiresAt:   link.ExpiresAt,
		CreatedAt:   link.CreatedAt,
	}
}

func (h *Handler) createResponse(res *services.CreateResult) CreateURLResponse {
	out := CreateURLResponse{
		URLResponse: h.urlResponse(res.Link),
		ProductID:   res.Classification.ProviderID,
		Title:       res.Classification.Title,
	}
	if res.Product != nil {
		p := productResponse(res.Link.ShortCode, res.Product)
		out.Product = &p
	}
	return out
}

func productResponse(code string, meta *models.ProductMetadata) ProductResponse {
	return ProductResponse{
		ShortCode:        code,
		ProductName:      meta.ProductName,
		Price:            meta.Price,
		BrandName:        meta.BrandName,
		FeaturedImageURL: meta.FeaturedImageURL,
		ScrapedAt:        meta.ScrapedAt,
	}
}

func listingResponse(row repository.ProductListing) ProductResponse {
	return ProductResponse{
		ShortCode:        row.ShortCode,
		OriginalURL:      row.LongURL,
		ProductName:      row.ProductName,
		Price:            row.Price,
		BrandName:        row.BrandName,
		FeaturedImageURL: row.FeaturedImageURL,
		ScrapedAt:        row.ScrapedAt,
	}
}
