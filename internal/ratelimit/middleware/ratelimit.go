package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"numintel/internal/ratelimit/metrics"
	"numintel/internal/ratelimit/models"
	dErrors "numintel/pkg/domain-errors"
	"numintel/pkg/platform/httputil"
	"numintel/pkg/requestcontext"
)

const (
	// HeaderStatus is set to "degraded" while the fallback store answers.
	HeaderStatus = "X-RateLimit-Status"

	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
	defaultProbeInterval    = 5 * time.Second
)

// BucketStore is the sliding window backend. Both the in-memory and the Redis
// bucket stores satisfy it.
type BucketStore interface {
	AllowN(ctx context.Context, key string, cost, limit int, window time.Duration) (*models.Result, error)
}

// Middleware limits how many numbers a client IP may submit per window.
type Middleware struct {
	store    BucketStore
	fallback BucketStore
	breaker  *circuitBreaker
	limit    int
	window   time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool

	failureThreshold int
	successThreshold int
	probeInterval    time.Duration
	now              func() time.Time
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = metrics
	}
}

// WithFallback answers checks from store while the primary is failing.
// Without a fallback, primary errors let the request through.
func WithFallback(store BucketStore) Option {
	return func(m *Middleware) {
		m.fallback = store
	}
}

// WithBreakerThresholds overrides how many consecutive primary failures open
// the circuit and how many successes close it.
func WithBreakerThresholds(failures, successes int) Option {
	return func(m *Middleware) {
		m.failureThreshold = failures
		m.successThreshold = successes
	}
}

// WithProbeInterval sets how long an open circuit waits before sending one
// check to the primary again.
func WithProbeInterval(d time.Duration) Option {
	return func(m *Middleware) {
		m.probeInterval = d
	}
}

func withClock(now func() time.Time) Option {
	return func(m *Middleware) {
		m.now = now
	}
}

func New(store BucketStore, limit int, window time.Duration, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		store:            store,
		limit:            limit,
		window:           window,
		logger:           logger,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
		probeInterval:    defaultProbeInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.breaker = newCircuitBreaker(m.failureThreshold, m.successThreshold, m.probeInterval, m.now)
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// Limit returns middleware charging cost(r) units against the client IP.
func (m *Middleware) Limit(cost CostFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			ip := requestcontext.ClientIP(ctx)
			units := cost(r)

			if units > m.limit {
				m.logger.WarnContext(ctx, "request cost exceeds rate limit window",
					"request_id", requestcontext.RequestID(ctx),
					"ip_prefix", anonymizeIP(ip),
					"cost", units,
					"limit", m.limit,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
					fmt.Sprintf("request submits %d numbers, more than the %d allowed per %s", units, m.limit, m.window)))
				return
			}

			result, degraded, err := m.check(ctx, models.ClientKey(ip), units)
			if err != nil {
				m.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
					"request_id", requestcontext.RequestID(ctx),
					"ip_prefix", anonymizeIP(ip),
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set(HeaderStatus, "degraded")
			}

			if !result.Allowed {
				m.metrics.IncrementRejections(units)
				m.logger.WarnContext(ctx, "rate limit exceeded",
					"request_id", requestcontext.RequestID(ctx),
					"ip_prefix", anonymizeIP(ip),
					"cost", units,
					"remaining", result.Remaining,
				)
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check asks the primary store unless the breaker is open. Results are
// reported degraded until the breaker has closed again.
func (m *Middleware) check(ctx context.Context, key string, cost int) (*models.Result, bool, error) {
	if m.fallback == nil {
		result, err := m.store.AllowN(ctx, key, cost, m.limit, m.window)
		if err != nil {
			m.metrics.IncrementStoreErrors()
			return nil, false, err
		}
		return result, false, nil
	}

	if !m.breaker.usePrimary() {
		return m.checkFallback(ctx, key, cost, nil)
	}

	result, err := m.store.AllowN(ctx, key, cost, m.limit, m.window)
	if err == nil {
		closed := m.breaker.recordSuccess()
		m.metrics.SetDegraded(!closed)
		return result, !closed, nil
	}

	m.metrics.IncrementStoreErrors()
	if !m.breaker.recordFailure() {
		return nil, false, err
	}
	return m.checkFallback(ctx, key, cost, err)
}

func (m *Middleware) checkFallback(ctx context.Context, key string, cost int, cause error) (*models.Result, bool, error) {
	m.metrics.SetDegraded(true)
	result, err := m.fallback.AllowN(ctx, key, cost, m.limit, m.window)
	if err != nil {
		if cause != nil {
			return nil, true, fmt.Errorf("fallback after %w: %w", cause, err)
		}
		return nil, true, fmt.Errorf("fallback: %w", err)
	}
	return result, true, nil
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
		fmt.Sprintf("too many numbers from this address, retry in %d seconds", result.RetryAfter)))
}

// anonymizeIP keeps the /24 (IPv4) or /48 (IPv6) prefix for logs.
func anonymizeIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "unknown"
	}
	bits := 24
	if addr.Is6() && !addr.Is4In6() {
		bits = 48
	}
	prefix, err := addr.Unmap().Prefix(bits)
	if err != nil {
		return "unknown"
	}
	return prefix.String()
}
