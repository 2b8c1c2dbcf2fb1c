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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"numintel/internal/analysis/events"
	analysishandler "numintel/internal/analysis/handler"
	analysismetrics "numintel/internal/analysis/metrics"
	"numintel/internal/analysis/service"
	"numintel/internal/analysis/store"
	"numintel/internal/dashboard"
	"numintel/internal/platform/config"
	"numintel/internal/platform/httpserver"
	"numintel/internal/platform/logger"
	"numintel/internal/platform/metrics"
	"numintel/internal/platform/redis"
	ratelimitmetrics "numintel/internal/ratelimit/metrics"
	ratelimit "numintel/internal/ratelimit/middleware"
	"numintel/internal/ratelimit/store/bucket"
	httptransport "numintel/internal/transport/http"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Minute
)

// main wires config, storage and optional Redis/Kafka into the API router and
// runs it until SIGINT or SIGTERM.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeWith(log, "store", st.Close)
	log.Info("store ready", "driver", cfg.Store.Driver)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	health := map[string]httptransport.HealthCheck{"store": st.Health}

	publisher, closePublisher, err := buildPublisher(ctx, cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer closePublisher()

	svc, err := service.New(st,
		service.WithLogger(log),
		service.WithMetrics(analysismetrics.New(reg)),
		service.WithPublisher(publisher),
		service.WithBatchConcurrency(cfg.Batch.Concurrency),
		service.WithMaxBatchSize(cfg.Batch.MaxSize),
	)
	if err != nil {
		return err
	}

	limiter, closeLimiter, err := buildRateLimiter(ctx, cfg, log, reg, health)
	if err != nil {
		return err
	}
	defer closeLimiter()

	router := httptransport.NewRouter(httptransport.Deps{
		Analysis:  analysishandler.New(svc, log),
		Dashboard: dashboard.New(svc, cfg.Dashboard.Limit, log),
		RateLimit: limiter,
		Metrics:   metrics.New(reg),
		Gatherer:  reg,
		Health:    health,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	return serve(ctx, srv, log)
}

// buildPublisher returns a Kafka publisher when brokers are configured and
// the no-op publisher otherwise.
func buildPublisher(ctx context.Context, cfg config.KafkaConfig, log *slog.Logger) (events.Publisher, func(), error) {
	if !cfg.Enabled() {
		return events.NopPublisher{}, func() {}, nil
	}
	p, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, nil, err
	}
	if err := p.EnsureTopic(ctx, 1, 1); err != nil {
		// events are best-effort; a missing topic is retried on publish
		log.Warn("kafka topic bootstrap failed", "topic", cfg.Topic, "error", err)
	}
	log.Info("analysis events enabled", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return p, p.Close, nil
}

// buildRateLimiter picks the Redis bucket store when REDIS_URL is set, with
// the in-memory store as its fallback; otherwise the in-memory store alone.
func buildRateLimiter(ctx context.Context, cfg config.Config, log *slog.Logger, reg prometheus.Registerer, health map[string]httptransport.HealthCheck) (*ratelimit.Middleware, func(), error) {
	if !cfg.RateLimit.Enabled {
		log.Info("rate limiting disabled")
		return nil, func() {}, nil
	}

	memory := bucket.NewInMemoryBucketStore()
	go sweep(ctx, memory)

	opts := []ratelimit.Option{ratelimit.WithMetrics(ratelimitmetrics.New(reg))}
	var primary ratelimit.BucketStore = memory

	cleanup := func() {}
	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if rdb != nil {
		cleanup = func() { closeWith(log, "redis", rdb.Close) }
		health["redis"] = rdb.Health
		primary = bucket.NewRedis(rdb.Client)
		opts = append(opts, ratelimit.WithFallback(memory))
		log.Info("rate limiting backed by redis")
	}

	return ratelimit.New(primary, cfg.RateLimit.Limit, cfg.RateLimit.Window, log, opts...), cleanup, nil
}

func sweep(ctx context.Context, s *bucket.InMemoryBucketStore) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting numintel api", "addr", srv.Addr)
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func closeWith(log *slog.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		log.Warn("close failed", "resource", name, "error", err)
	}
}
