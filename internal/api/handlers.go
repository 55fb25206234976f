// Package api exposes the shortener over HTTP with gin.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/hypd/urlshortener/internal/errors"
	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/repository"
	"github.com/hypd/urlshortener/internal/services"
)

// Pinger checks the backing store. *sql.DB implements it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of a Handler.
type Deps struct {
	Shortener       *services.ShortenerService
	Links           *services.LinkService
	Analytics       *services.AnalyticsService
	Products        *services.ProductService
	DB              Pinger
	BaseURL         string // prefix of generated short URLs
	TopDefaultLimit int
	Logger          *slog.Logger
}

// Handler holds the HTTP handlers and their dependencies.
type Handler struct {
	shortener  *services.ShortenerService
	links      *services.LinkService
	analytics  *services.AnalyticsService
	products   *services.ProductService
	db         Pinger
	baseURL    string
	topDefault int
	logger     *slog.Logger
}

func NewHandler(d Deps) *Handler {
	if d.TopDefaultLimit < 1 || d.TopDefaultLimit > 100 {
		d.TopDefaultLimit = 10
	}
	return &Handler{
		shortener:  d.Shortener,
		links:      d.Links,
		analytics:  d.Analytics,
		products:   d.Products,
		db:         d.DB,
		baseURL:    strings.TrimRight(d.BaseURL, "/"),
		topDefault: d.TopDefaultLimit,
		logger:     d.Logger,
	}
}

// RegisterRoutes registers every route on r. Middleware must be added before.
// The redirect route is registered last so that it never shadows the others.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)

	v1 := r.Group("/api/v1")
	{
		v1.GET("", h.apiInfo)

		v1.POST("/urls", h.createShortURL)
		v1.GET("/urls", h.listURLs)
		v1.GET("/urls/:shortCode", h.getURL)
		v1.DELETE("/urls/:shortCode", h.deactivateURL)
		v1.GET("/urls/:shortCode/analytics", h.getAnalytics)

		v1.GET("/urls/:shortCode/product", h.getProduct)
		v1.POST("/urls/:shortCode/product", h.scrapeProduct)
		v1.POST("/urls/:shortCode/product/refresh", h.refreshProduct)
		v1.DELETE("/urls/:shortCode/product", h.deleteProduct)

		v1.GET("/analytics/summary", h.analyticsSummary)
		v1.GET("/analytics/top", h.topURLs)
		v1.GET("/products", h.listProducts)
	}

	r.GET("/:shortCode", h.redirect)
}

// healthCheck handles GET /health. 503 when the database does not answer.
func (h *Handler) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WarnContext(ctx, "health check failed", slog.String("error", err.Error()))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

func (h *Handler) apiInfo(c *gin.Context) {
	respond(c, http.StatusOK, gin.H{
		"name":    "urlshortener",
		"version": "v1",
		"endpoints": gin.H{
			"create":            "POST /api/v1/urls",
			"list":              "GET /api/v1/urls?limit=&offset=",
			"details":           "GET /api/v1/urls/:shortCode",
			"deactivate":        "DELETE /api/v1/urls/:shortCode",
			"analytics":         "GET /api/v1/urls/:shortCode/analytics",
			"product":           "GET|POST|DELETE /api/v1/urls/:shortCode/product",
			"product_refresh":   "POST /api/v1/urls/:shortCode/product/refresh",
			"analytics_summary": "GET /api/v1/analytics/summary",
			"analytics_top":     "GET /api/v1/analytics/top?limit=",
			"products":          "GET /api/v1/products?limit=&offset=",
			"redirect":          "GET /:shortCode",
		},
	})
}

// createShortURL handles POST /api/v1/urls.
// A single "url" answers 201 with the created link. A "urls" batch answers
// 201 when all succeed, 207 on mixed results and 400 when all fail.
func (h *Handler) createShortURL(c *gin.Context) {
	ctx := c.Request.Context()
	var req CreateURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid request body", slog.String("error", err.Error()))
		h.fail(c, apperrors.InvalidInputf("invalid request body"))
		return
	}

	var targets []string
	if req.URL != "" {
		targets = append(targets, req.URL)
	}
	targets = append(targets, req.URLs...)

	switch {
	case len(targets) == 0:
		h.fail(c, apperrors.InvalidInputf("either 'url' or 'urls' must be provided"))
	case len(targets) > maxBatchSize:
		h.fail(c, apperrors.InvalidInputf("at most %d urls per request", maxBatchSize))
	case len(targets) == 1 && len(req.URLs) == 0:
		res, err := h.shortener.Create(ctx, services.CreateRequest{URL: targets[0], ExpiresAt: req.ExpiresAt})
		if err != nil {
			h.fail(c, err)
			return
		}
		respond(c, http.StatusCreated, h.createResponse(res))
	default:
		h.createBatch(c, targets, req.ExpiresAt)
	}
}

func (h *Handler) createBatch(c *gin.Context, targets []string, expiresAt *time.Time) {
	resp := BatchCreateResponse{Results: make([]BatchResult, 0, len(targets))}
	for _, target := range targets {
		result := BatchResult{OriginalURL: target}
		res, err := h.shortener.Create(c.Request.Context(), services.CreateRequest{URL: target, ExpiresAt: expiresAt})
		if err != nil {
			_, result.Error = h.classify(c, err)
			resp.Summary.Failed++
		} else {
			created := h.createResponse(res)
			result.Success = true
			result.URL = &created
			resp.Summary.Successful++
		}
		resp.Results = append(resp.Results, result)
	}
	resp.Summary.Total = len(targets)

	status := http.StatusMultiStatus
	switch {
	case resp.Summary.Failed == 0:
		status = http.StatusCreated
	case resp.Summary.Successful == 0:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"success": resp.Summary.Successful > 0, "data": resp})
}

func (h *Handler) listURLs(c *gin.Context) {
	page, ok := h.bindPage(c)
	if !ok {
		return
	}
	links, err := h.links.List(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]URLResponse, 0, len(links))
	for i := range links {
		out = append(out, h.urlResponse(&links[i]))
	}
	respond(c, http.StatusOK, gin.H{"urls": out, "limit": page.Limit, "offset": page.Offset})
}

func (h *Handler) getURL(c *gin.Context) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	link, err := h.links.Get(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.urlResponse(link))
}

// deactivateURL handles DELETE /api/v1/urls/:shortCode. The row is kept.
func (h *Handler) deactivateURL(c *gin.Context) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	link, err := h.links.DeactivateByCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, h.urlResponse(link))
}

func (h *Handler) getAnalytics(c *gin.Context) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	summary, err := h.analytics.GetByCode(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, AnalyticsResponse{
		ShortCode:    summary.ShortCode,
		OriginalURL:  summary.LongURL,
		TotalClicks:  summary.TotalClicks,
		FirstClickAt: summary.FirstClickAt,
		LastClickAt:  summary.LastClickAt,
	})
}

func (h *Handler) analyticsSummary(c *gin.Context) {
	summary, err := h.analytics.Summary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, summaryResponse(summary))
}

func (h *Handler) topURLs(c *gin.Context) {
	var q topQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, apperrors.InvalidInputf("limit must be between 1 and 100"))
		return
	}
	if q.Limit == 0 {
		q.Limit = h.topDefault
	}
	links, err := h.analytics.TopByClicks(c.Request.Context(), q.Limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]URLResponse, 0, len(links))
	for i := range links {
		out = append(out, h.urlResponse(&links[i]))
	}
	respond(c, http.StatusOK, out)
}

func (h *Handler) getProduct(c *gin.Context) {
	h.productAction(c, h.products.Get)
}

// scrapeProduct returns stored metadata while it is fresh, otherwise scrapes.
func (h *Handler) scrapeProduct(c *gin.Context) {
	h.productAction(c, h.products.GetOrScrape)
}

func (h *Handler) refreshProduct(c *gin.Context) {
	h.productAction(c, h.products.ForceRefresh)
}

func (h *Handler) productAction(c *gin.Context, action func(context.Context, string) (*models.ProductMetadata, error)) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	meta, err := action(c.Request.Context(), code)
	if err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, productResponse(code, meta))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	if err := h.products.Delete(c.Request.Context(), code); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"short_code": code, "deleted": true})
}

func (h *Handler) listProducts(c *gin.Context) {
	page, ok := h.bindPage(c)
	if !ok {
		return
	}
	rows, err := h.products.List(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]ProductResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, listingResponse(row))
	}
	respond(c, http.StatusOK, gin.H{"products": out, "limit": page.Limit, "offset": page.Offset})
}

// redirect handles GET /:shortCode with a 302 to the original URL.
// The click is dispatched to the click workers and never delays the redirect.
func (h *Handler) redirect(c *gin.Context) {
	code, ok := h.shortCode(c)
	if !ok {
		return
	}
	target, err := h.shortener.Redirect(c.Request.Context(), code, c.GetHeader("User-Agent"), c.ClientIP())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *Handler) shortCode(c *gin.Context) (string, bool) {
	code := c.Param("shortCode")
	if !services.ValidShortCode(code) {
		h.fail(c, apperrors.InvalidInputf("invalid short code"))
		return "", false
	}
	return code, true
}

func (h *Handler) bindPage(c *gin.Context) (pageQuery, bool) {
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		h.fail(c, apperrors.InvalidInputf("limit must be between 1 and 100 and offset must not be negative"))
		return page, false
	}
	return page, true
}

func (h *Handler) shortURL(code string) string {
	return h.baseURL + "/" + code
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

// fail writes the error response matching err.
func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := h.classify(c, err)
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

// classify maps err to a status and a client-safe message. Server-side
// failures are logged here; their details never reach the client.
func (h *Handler) classify(c *gin.Context, err error) (int, string) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperrors.ErrNotAProduct):
		return http.StatusBadRequest, "url is not a product"
	case errors.Is(err, apperrors.ErrExternalServiceUnavailable):
		h.logger.WarnContext(ctx, "product page unavailable", slog.String("error", err.Error()))
		return http.StatusServiceUnavailable, "product page could not be fetched, try again later"
	case errors.Is(err, apperrors.ErrCodeSpaceExhausted):
		h.logger.ErrorContext(ctx, "short code allocation failed",
			slog.Bool("alert", true), slog.String("error", err.Error()))
		return http.StatusInternalServerError, "could not allocate a short code"
	default:
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("path", c.FullPath()), slog.String("error", err.Error()))
		return http.StatusInternalServerError, "internal server error"
	}
}

func summaryResponse(s *repository.LinkSummary) SummaryResponse {
	return SummaryResponse{
		TotalURLs:   s.TotalURLs,
		TotalClicks: s.TotalClicks,
		ActiveURLs:  s.ActiveURLs,
		ExpiredURLs: s.ExpiredURLs,
	}
}
