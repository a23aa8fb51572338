package main

import (
	"context"
	"errors"
	"lab-booking/internal/api"
	"lab-booking/internal/config"
	"lab-booking/internal/dashboard"
	"lab-booking/internal/events"
	"lab-booking/internal/observability"
	"lab-booking/internal/repository"
	"lab-booking/internal/service"
	"lab-booking/internal/web"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(config.Path())
	if err != nil {
		logger := observability.InitLogger("lab-api", "info")
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := observability.InitLogger("lab-api", cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("lab-api stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, closeFn, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("lab booking api listening")
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// build assembles storage, services and the echo server. The returned func
// releases the database.
func build(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*echo.Echo, func() error, error) {
	// 1. Infrastructure
	repo, err := repository.NewSQLiteRepository(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	hub := events.NewHub()

	// 2. Services
	labSvc := service.NewLabService(repo)
	if cfg.SeedLabs {
		if err := labSvc.SeedLabs(ctx, cfg.Labs); err != nil {
			repo.Close()
			return nil, nil, err
		}
	}
	handler := api.NewHandler(api.Options{
		Accounts:     service.NewAccountService(repo, cfg.BcryptCost),
		Labs:         labSvc,
		Bookings:     service.NewBookingService(repo, repo, hub),
		Health:       service.NewHealthService(repo, filepath.Dir(cfg.DBPath)),
		Hub:          hub,
		CookieName:   cfg.SessionCookie,
		SecureCookie: cfg.SecureCookie,
	})

	// 3. Presentation
	pages, err := web.NewPages(dashboard.FetcherFunc(labSvc.ListLabs), logger)
	if err != nil {
		repo.Close()
		return nil, nil, err
	}
	observability.RegisterMetrics()
	return api.NewServer(handler, pages, logger), repo.Close, nil
}
