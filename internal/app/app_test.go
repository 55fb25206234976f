package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hypd/urlshortener/internal/config"
	"github.com/hypd/urlshortener/internal/database"
	"github.com/hypd/urlshortener/internal/logging"
	"github.com/hypd/urlshortener/internal/models"
	"github.com/hypd/urlshortener/internal/services"
)

func TestApp_CloseWaitsForDetachedScrapes(t *testing.T) {
	release := make(chan struct{})
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, `<html><body><h1 class="product-title">Bata - Leather Loafers</h1></body></html>`)
	}))
	defer provider.Close()

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	cfg.Database.Name = filepath.Join(t.TempDir(), "app.db")
	cfg.Product.Domain = "127.0.0.1"
	cfg.Scraper.BaseURL = provider.URL
	cfg.Scraper.Timeout = 2 * time.Second
	cfg.Scraper.AwaitInitial = false

	a, err := New(cfg, logging.Discard())
	require.NoError(t, err)

	res, err := a.Shortener.Create(context.Background(), services.CreateRequest{
		URL: provider.URL + "/hypd_store/product/loafer1",
	})
	require.NoError(t, err)
	require.True(t, res.Link.IsProduct)
	assert.Nil(t, res.Product)

	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a scrape was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return")
	}

	db, err := database.Open(database.Options{Name: cfg.Database.Name})
	require.NoError(t, err)
	defer database.Close(db)

	var meta models.ProductMetadata
	require.NoError(t, db.Where("url_id = ?", res.Link.ID).First(&meta).Error)
	require.NotNil(t, meta.ProductName)
	assert.Equal(t, "Bata - Leather Loafers", *meta.ProductName)
}
