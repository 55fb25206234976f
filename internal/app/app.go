// Package app wires configuration, storage and services together for the
// server and the CLI commands.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hypd/urlshortener/internal/api"
	"github.com/hypd/urlshortener/internal/config"
	"github.com/hypd/urlshortener/internal/database"
	"github.com/hypd/urlshortener/internal/monitor"
	"github.com/hypd/urlshortener/internal/product"
	"github.com/hypd/urlshortener/internal/repository"
	"github.com/hypd/urlshortener/internal/scraper"
	"github.com/hypd/urlshortener/internal/services"
	"github.com/hypd/urlshortener/internal/workers"
)

// App holds every long-lived component.
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *slog.Logger

	LinkRepo *repository.GormLinkRepository
	Fetcher  *scraper.Fetcher

	Links     *services.LinkService
	Analytics *services.AnalyticsService
	Products  *services.ProductService
	Shortener *services.ShortenerService
	Clicks    *workers.ClickPool
	Monitor   *monitor.UrlMonitor
}

// New opens and migrates the database and builds the services.
// Click workers are not started; see Start.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.Open(database.Options{
		Name:          cfg.Database.Name,
		MaxOpenConns:  cfg.Database.MaxOpenConns,
		BusyTimeoutMS: cfg.Database.BusyTimeoutMS,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return NewWithDB(cfg, db, logger), nil
}

// NewWithDB builds the services on an already migrated database.
func NewWithDB(cfg *config.Config, db *gorm.DB, logger *slog.Logger) *App {
	linkRepo := repository.NewLinkRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	productRepo := repository.NewProductRepository(db)

	fetcher := scraper.NewFetcher(scraper.FetcherOptions{
		Timeout:         cfg.Scraper.Timeout,
		MaxRedirects:    cfg.Scraper.MaxRedirects,
		UserAgent:       cfg.Scraper.UserAgent,
		BreakerFailures: cfg.Scraper.BreakerFailures,
		BreakerCooldown: cfg.Scraper.BreakerCooldown,
	}, logger)

	links := services.NewLinkService(linkRepo, services.LinkOptions{
		CodeLength:  cfg.ShortCode.Length,
		MaxAttempts: cfg.ShortCode.MaxAttempts,
	}, logger)
	analytics := services.NewAnalyticsService(analyticsRepo, linkRepo)
	products := services.NewProductService(linkRepo, productRepo, fetcher, services.ProductOptions{
		BaseURL:         cfg.Scraper.BaseURL,
		FreshnessWindow: cfg.Scraper.FreshnessWindow,
	}, logger)

	clicks := workers.NewClickPool(services.NewClickTracker(links, analytics),
		cfg.Analytics.BufferSize, cfg.Analytics.WorkerCount, logger)

	detector := product.NewDetector(cfg.Product.Domain, cfg.Product.PathMarker)
	shortener := services.NewShortenerService(detector, links, products, clicks, cfg.Scraper.AwaitInitial, logger)

	interval := time.Duration(cfg.Monitor.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &App{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		LinkRepo:  linkRepo,
		Fetcher:   fetcher,
		Links:     links,
		Analytics: analytics,
		Products:  products,
		Shortener: shortener,
		Clicks:    clicks,
		Monitor:   monitor.NewUrlMonitor(linkRepo, fetcher, interval, logger),
	}
}

// Start launches the click workers and, when enabled, the monitor.
// The monitor stops with ctx.
func (a *App) Start(ctx context.Context) {
	a.Clicks.Start()
	if a.Config.Monitor.Enabled {
		go a.Monitor.Start(ctx)
	}
}

// Router returns the HTTP handler of the API.
func (a *App) Router() (*gin.Engine, error) {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql database: %w", err)
	}
	h := api.NewHandler(api.Deps{
		Shortener:       a.Shortener,
		Links:           a.Links,
		Analytics:       a.Analytics,
		Products:        a.Products,
		DB:              sqlDB,
		BaseURL:         a.Config.Server.BaseURL,
		TopDefaultLimit: a.Config.Analytics.TopDefaultLimit,
		Logger:          a.Logger,
	})
	return api.NewRouter(h, a.Logger), nil
}

// Close waits for detached product scrapes, drains the click workers,
// then closes the database.
func (a *App) Close() error {
	a.Shortener.Wait()
	a.Clicks.Close()
	return database.Close(a.DB)
}
