package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "github.com/hypd/urlshortener/internal/errors"
)

// DefaultConfigPath is where LoadConfig looks for config.yaml when no path is given.
const DefaultConfigPath = "./configs"

// Config represents the whole application configuration.
// Keys map to YAML via mapstructure tags and can be overridden by
// environment variables (server.port -> SERVER_PORT).
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		BaseURL         string        `mapstructure:"base_url"` // Base URL for generating short links
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`

	Database struct {
		Name          string `mapstructure:"name"` // SQLite database file name
		MaxOpenConns  int    `mapstructure:"max_open_conns"`
		BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
	} `mapstructure:"database"`

	ShortCode struct {
		Length      int `mapstructure:"length"`
		MaxAttempts int `mapstructure:"max_attempts"`
	} `mapstructure:"shortcode"`

	// Analytics configures asynchronous click recording.
	Analytics struct {
		BufferSize      int `mapstructure:"buffer_size"`
		WorkerCount     int `mapstructure:"worker_count"`
		TopDefaultLimit int `mapstructure:"top_default_limit"`
	} `mapstructure:"analytics"`

	Monitor struct {
		Enabled         bool `mapstructure:"enabled"`
		IntervalMinutes int  `mapstructure:"interval_minutes"`
	} `mapstructure:"monitor"`

	// Scraper configures product page fetching and the metadata cache.
	Scraper struct {
		BaseURL         string        `mapstructure:"base_url"` // used to absolutise root-relative image URLs
		Timeout         time.Duration `mapstructure:"timeout"`
		MaxRedirects    int           `mapstructure:"max_redirects"`
		UserAgent       string        `mapstructure:"user_agent"`
		FreshnessWindow time.Duration `mapstructure:"freshness_window"`
		AwaitInitial    bool          `mapstructure:"await_initial"`
		BreakerFailures int           `mapstructure:"breaker_failures"`
		BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
	} `mapstructure:"scraper"`

	Product struct {
		Domain     string `mapstructure:"domain"`
		PathMarker string `mapstructure:"path_marker"`
	} `mapstructure:"product"`

	Log struct {
		Format string `mapstructure:"format"` // text or json
		Level  string `mapstructure:"level"`
	} `mapstructure:"log"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// LoadConfig loads the configuration from path/config.yaml, the environment
// and built-in defaults, in that order of precedence (env wins).
// A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, apperrors.ErrConfigLoad{Path: path, Reason: err.Error()}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.ErrConfigLoad{Path: path, Reason: err.Error()}
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.ErrConfigLoad{Path: path, Reason: err.Error()}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("database.name", "url_shortener.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.busy_timeout_ms", 5000)
	v.SetDefault("shortcode.length", 6)
	v.SetDefault("shortcode.max_attempts", 10)
	v.SetDefault("analytics.buffer_size", 1000)
	v.SetDefault("analytics.worker_count", 5)
	v.SetDefault("analytics.top_default_limit", 10)
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.interval_minutes", 5)
	v.SetDefault("scraper.base_url", "https://www.hypd.store")
	v.SetDefault("scraper.timeout", 10*time.Second)
	v.SetDefault("scraper.max_redirects", 5)
	v.SetDefault("scraper.user_agent", defaultUserAgent)
	v.SetDefault("scraper.freshness_window", 24*time.Hour)
	v.SetDefault("scraper.await_initial", true)
	v.SetDefault("scraper.breaker_failures", 5)
	v.SetDefault("scraper.breaker_cooldown", 30*time.Second)
	v.SetDefault("product.domain", "hypd.store")
	v.SetDefault("product.path_marker", "/hypd_store/product/")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
}

// Validate rejects values the services cannot work with.
func (c *Config) Validate() error {
	if c.ShortCode.Length < 4 || c.ShortCode.Length > 10 {
		return fmt.Errorf("shortcode.length must be between 4 and 10, got %d", c.ShortCode.Length)
	}
	if c.ShortCode.MaxAttempts < 1 {
		return fmt.Errorf("shortcode.max_attempts must be positive, got %d", c.ShortCode.MaxAttempts)
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("scraper.timeout must be positive")
	}
	if c.Scraper.MaxRedirects < 0 {
		return fmt.Errorf("scraper.max_redirects must not be negative")
	}
	if c.Scraper.FreshnessWindow <= 0 {
		return fmt.Errorf("scraper.freshness_window must be positive")
	}
	if c.Analytics.BufferSize < 0 || c.Analytics.WorkerCount < 0 {
		return fmt.Errorf("analytics buffer_size and worker_count must not be negative")
	}
	return nil
}
