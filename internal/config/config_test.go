package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hypd/urlshortener/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6, cfg.ShortCode.Length)
	assert.Equal(t, 10, cfg.ShortCode.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 5, cfg.Scraper.MaxRedirects)
	assert.Equal(t, 24*time.Hour, cfg.Scraper.FreshnessWindow)
	assert.True(t, cfg.Scraper.AwaitInitial)
	assert.Equal(t, "hypd.store", cfg.Product.Domain)
	assert.Equal(t, "/hypd_store/product/", cfg.Product.PathMarker)
	assert.NotEmpty(t, cfg.Scraper.UserAgent)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 9090
shortcode:
  length: 8
scraper:
  freshness_window: 2h
`)
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port, "environment wins over file")
	assert.Equal(t, 8, cfg.ShortCode.Length)
	assert.Equal(t, 2*time.Hour, cfg.Scraper.FreshnessWindow)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"code too short": "shortcode:\n  length: 3\n",
		"code too long":  "shortcode:\n  length: 11\n",
		"no attempts":    "shortcode:\n  max_attempts: 0\n",
		"bad yaml":       "server: [port\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, body))
			require.Error(t, err)
			var loadErr apperrors.ErrConfigLoad
			assert.True(t, errors.As(err, &loadErr))
		})
	}
}
