package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/hypd/urlshortener/cmd"
	"github.com/hypd/urlshortener/internal/app"
	"github.com/hypd/urlshortener/internal/logging"
)

// RunServerCmd starts the HTTP API, the click workers and the URL monitor.
var RunServerCmd = &cobra.Command{
	Use:   "run-server",
	Short: "Starts the URL shortener API server and its background workers.",
	Long: `Initialises the database, starts the asynchronous click workers and the
URL monitor, then serves the HTTP API until SIGINT or SIGTERM.`,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := cmd.LoadConfig()
		if err != nil {
			return err
		}
		logger := logging.New(cfg.Log.Format, cfg.Log.Level)
		if cfg.Log.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}

		a, err := app.New(cfg, logger)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a.Start(ctx)

		router, err := a.Router()
		if err != nil {
			_ = a.Close()
			return err
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("http server listening",
				slog.Int("port", cfg.Server.Port),
				slog.String("base_url", cfg.Server.BaseURL))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				_ = a.Close()
				return fmt.Errorf("http server failed: %w", err)
			}
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		// In-flight requests are done: drain pending clicks, then close the database.
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}

		logger.Info("server stopped")
		return errors.Join(errs...)
	},
}

func init() {
	cmd.RootCmd.AddCommand(RunServerCmd)
}
