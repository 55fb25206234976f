package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypd/urlshortener/internal/app"
	"github.com/hypd/urlshortener/internal/config"
	"github.com/hypd/urlshortener/internal/logging"
	"github.com/hypd/urlshortener/internal/testutil"
)

const productMarkup = `<html><body>
	<h1 class="product-title">Bata - Leather Loafers</h1>
	<span class="selling-price">₹1,499</span>
	<div class="product-image"><img src="/static/loafer.png"></div>
</body></html>`

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	t        *testing.T
	router   *gin.Engine
	app      *app.App
	provider *httptest.Server
	status   atomic.Int32
	hits     atomic.Int32
}

// newTestServer runs the full stack on a temp sqlite database. The product
// provider is a local httptest server, recognised as the product domain.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{t: t}
	ts.status.Store(http.StatusOK)
	ts.provider = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.hits.Add(1)
		w.WriteHeader(int(ts.status.Load()))
		fmt.Fprint(w, productMarkup)
	}))
	t.Cleanup(ts.provider.Close)

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Server.BaseURL = "http://sho.rt"
	cfg.Product.Domain = "127.0.0.1"
	cfg.Scraper.BaseURL = ts.provider.URL
	cfg.Scraper.Timeout = 2 * time.Second
	cfg.Scraper.BreakerFailures = 0

	ts.app = app.NewWithDB(cfg, testutil.NewTestDB(t), logging.Discard())
	ts.router, err = ts.app.Router()
	require.NoError(t, err)
	return ts
}

func (ts *testServer) productURL(id string) string {
	return ts.provider.URL + "/hypd_store/product/" + id + "?title=Loafer"
}

func (ts *testServer) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "" && w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

type urlData struct {
	ShortCode   string         `json:"short_code"`
	ShortURL    string         `json:"short_url"`
	OriginalURL string         `json:"original_url"`
	IsProduct   bool           `json:"is_product"`
	IsActive    bool           `json:"is_active"`
	ClickCount  int64          `json:"click_count"`
	ProductID   string         `json:"product_id"`
	Title       string         `json:"title"`
	Product     map[string]any `json:"product_metadata"`
}

func (ts *testServer) create(url string) urlData {
	ts.t.Helper()
	w, env := ts.do(http.MethodPost, "/api/v1/urls", map[string]any{"url": url})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[urlData](ts.t, env.Data)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	w, _ := ts.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"up"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateAndRedirect(t *testing.T) {
	ts := newTestServer(t)

	created := ts.create("https://example.com/article?id=7")
	assert.Len(t, created.ShortCode, 6)
	assert.Equal(t, "http://sho.rt/"+created.ShortCode, created.ShortURL)
	assert.False(t, created.IsProduct)
	assert.Nil(t, created.Product)

	w, _ := ts.do(http.MethodGet, "/"+created.ShortCode, nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/article?id=7", w.Header().Get("Location"))

	// Workers are not started: the click is recorded synchronously.
	w, env := ts.do(http.MethodGet, "/api/v1/urls/"+created.ShortCode+"/analytics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[map[string]any](t, env.Data)
	assert.EqualValues(t, 1, stats["total_clicks"])
	assert.NotNil(t, stats["first_click_at"])
}

func TestCreateValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing url", map[string]any{}},
		{"bad scheme", map[string]any{"url": "ftp://example.com"}},
		{"relative", map[string]any{"url": "/just/a/path"}},
		{"past expiry", map[string]any{"url": "https://example.com", "expires_at": time.Now().Add(-time.Hour).Format(time.RFC3339)}},
		{"bad expiry", map[string]any{"url": "https://example.com", "expires_at": "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := ts.do(http.MethodPost, "/api/v1/urls", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestBatchCreate(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(http.MethodPost, "/api/v1/urls", map[string]any{
		"urls": []string{"https://a.example", "nope", "https://b.example"},
	})
	assert.Equal(t, http.StatusMultiStatus, w.Code)

	batch := decode[struct {
		Results []struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		} `json:"results"`
		Summary struct {
			Total, Successful, Failed int
		} `json:"summary"`
	}](t, env.Data)
	assert.Equal(t, 3, batch.Summary.Total)
	assert.Equal(t, 2, batch.Summary.Successful)
	assert.Equal(t, 1, batch.Summary.Failed)
	assert.NotEmpty(t, batch.Results[1].Error)
}

func TestRedirectNotFound(t *testing.T) {
	ts := newTestServer(t)

	w, _ := ts.do(http.MethodGet, "/zzzz9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = ts.do(http.MethodGet, "/ab", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	created := ts.create("https://example.com/gone")
	w, env := ts.do(http.MethodDelete, "/api/v1/urls/"+created.ShortCode, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[urlData](t, env.Data).IsActive)

	w, _ = ts.do(http.MethodGet, "/"+created.ShortCode, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = ts.do(http.MethodGet, "/api/v1/urls/"+created.ShortCode, nil)
	require.Equal(t, http.StatusOK, w.Code, "details survive deactivation")
	assert.False(t, decode[urlData](t, env.Data).IsActive)
}

func TestProductLifecycle(t *testing.T) {
	ts := newTestServer(t)

	created := ts.create(ts.productURL("sku42"))
	assert.True(t, created.IsProduct)
	assert.Equal(t, "sku42", created.ProductID)
	assert.Equal(t, "Loafer", created.Title)
	require.NotNil(t, created.Product)
	assert.Equal(t, "Bata - Leather Loafers", created.Product["product_name"])
	assert.Equal(t, "Bata", created.Product["brand_name"])
	assert.Equal(t, "₹1,499", created.Product["price"])
	assert.Equal(t, ts.provider.URL+"/static/loafer.png", created.Product["featured_image_url"])
	assert.Equal(t, int32(1), ts.hits.Load())

	base := "/api/v1/urls/" + created.ShortCode + "/product"

	w, _ := ts.do(http.MethodPost, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), ts.hits.Load(), "fresh metadata is not refetched")

	w, _ = ts.do(http.MethodPost, base+"/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(2), ts.hits.Load())

	ts.status.Store(http.StatusBadGateway)
	w, env := ts.do(http.MethodPost, base+"/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, env.Success)

	w, env = ts.do(http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bata - Leather Loafers", decode[map[string]any](t, env.Data)["product_name"])

	w, env = ts.do(http.MethodGet, "/api/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), created.ShortCode)

	w, _ = ts.do(http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = ts.do(http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductRoutesOnNonProduct(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create("https://example.com/plain")

	w, _ := ts.do(http.MethodPost, "/api/v1/urls/"+created.ShortCode+"/product", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = ts.do(http.MethodGet, "/api/v1/urls/"+created.ShortCode+"/product", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, ts.hits.Load())
}

func TestCreateSucceedsWhenScrapeFails(t *testing.T) {
	ts := newTestServer(t)
	ts.status.Store(http.StatusForbidden)

	created := ts.create(ts.productURL("blocked"))
	assert.True(t, created.IsProduct)
	assert.Nil(t, created.Product)

	w, _ := ts.do(http.MethodGet, "/api/v1/urls/"+created.ShortCode+"/product", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAndAnalyticsAggregates(t *testing.T) {
	ts := newTestServer(t)
	a := ts.create("https://example.com/a")
	b := ts.create("https://example.com/b")
	for i := 0; i < 2; i++ {
		ts.do(http.MethodGet, "/"+b.ShortCode, nil)
	}
	ts.do(http.MethodGet, "/"+a.ShortCode, nil)

	w, env := ts.do(http.MethodGet, "/api/v1/urls?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		URLs []urlData `json:"urls"`
	}](t, env.Data)
	require.Len(t, page.URLs, 1)
	assert.Equal(t, b.ShortCode, page.URLs[0].ShortCode)

	w, _ = ts.do(http.MethodGet, "/api/v1/urls?limit=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w, _ = ts.do(http.MethodGet, "/api/v1/urls?offset=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = ts.do(http.MethodGet, "/api/v1/analytics/top?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	top := decode[[]urlData](t, env.Data)
	require.Len(t, top, 1)
	assert.Equal(t, b.ShortCode, top[0].ShortCode)
	assert.EqualValues(t, 2, top[0].ClickCount)

	w, env = ts.do(http.MethodGet, "/api/v1/analytics/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[map[string]int64](t, env.Data)
	assert.Equal(t, int64(2), summary["total_urls"])
	assert.Equal(t, int64(3), summary["total_clicks"])
	assert.Equal(t, int64(2), summary["active_urls"])
	assert.Equal(t, int64(0), summary["expired_urls"])
}

func TestAPIInfoAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	w, env := ts.do(http.MethodGet, "/api/v1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	ts.do(http.MethodGet, "/health", nil)
	w, _ = ts.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "urlshortener_http_request_duration_seconds")
}
