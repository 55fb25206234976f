// Package testutil provides shared helpers for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hypd/urlshortener/internal/database"
)

// NewTestDB opens a migrated sqlite database in a per-test temporary
// directory. It is closed when the test ends.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{
		Name:          filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:  1,
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err, "failed to open test database")
	require.NoError(t, database.Migrate(db), "failed to migrate test database")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
