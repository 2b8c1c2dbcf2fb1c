package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"numintel/internal/analysis/service"
	"numintel/internal/analysis/store"
	"numintel/internal/dashboard"
	"numintel/internal/platform/config"
	"numintel/internal/platform/httpserver"
	"numintel/internal/platform/logger"
	"numintel/pkg/platform/middleware/request"
)

const shutdownTimeout = 10 * time.Second

// main serves the read-only dashboard over the configured store. It shares
// the API's database when both run against sqlite or postgres.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server).With("component", "dashboard")
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("memory store is private to this process; the dashboard will stay empty")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("close store failed", "error", err)
		}
	}()

	svc, err := service.New(st, service.WithLogger(log))
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	dashboard.New(svc, cfg.Dashboard.Limit, log).Register(r)

	srv := httpserver.New(cfg.Server.DashboardAddr, r)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting dashboard", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
