package services

import (
	"context"
	"log/slog"
)

// BestEffort runs op once and logs a failure at Warn. The error never
// reaches the caller; the return value only says whether op succeeded.
// It does not retry.
func BestEffort(ctx context.Context, logger *slog.Logger, name string, op func(context.Context) error, attrs ...slog.Attr) bool {
	if err := op(ctx); err != nil {
		attrs = append(attrs, slog.String("operation", name), slog.String("error", err.Error()))
		logger.LogAttrs(ctx, slog.LevelWarn, "best-effort operation failed", attrs...)
		return false
	}
	return true
}
