package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"numintel/internal/analysis/events"
	"numintel/internal/analysis/metrics"
	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	id "numintel/pkg/domain"
	dErrors "numintel/pkg/domain-errors"
	"numintel/pkg/platform/sentinel"
	"numintel/pkg/requestcontext"
)

// Store persists analysis records.
type Store interface {
	Save(ctx context.Context, r *models.Record) error
	SaveAll(ctx context.Context, records []*models.Record) error
	FindByID(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error)
	Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
}

// Classifier labels a single integer.
type Classifier interface {
	Classify(n int64) classify.Verdict
}

// Publisher announces stored records.
type Publisher = events.Publisher

const (
	defaultBatchConcurrency = 8
	defaultMaxBatchSize     = 500
	tracerName              = "numintel/internal/analysis"
)

// Service classifies numbers, stores the verdicts and announces them.
type Service struct {
	store            Store
	classifier       Classifier
	publisher        Publisher
	logger           *slog.Logger
	metrics          *metrics.Metrics
	tracer           trace.Tracer
	batchConcurrency int
	maxBatchSize     int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClassifier replaces the default classifier, typically with one using a
// seeded witness source.
func WithClassifier(c Classifier) Option {
	return func(s *Service) {
		if c != nil {
			s.classifier = c
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithBatchConcurrency bounds how many numbers of one batch are classified at
// once. Non-positive values are ignored.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchConcurrency = n
		}
	}
}

// WithMaxBatchSize bounds how many numbers one batch may carry. Non-positive
// values are ignored.
func WithMaxBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("analysis store is required")
	}

	svc := &Service{
		store:            store,
		classifier:       classify.New(),
		publisher:        events.NopPublisher{},
		logger:           slog.Default(),
		tracer:           otel.Tracer(tracerName),
		batchConcurrency: defaultBatchConcurrency,
		maxBatchSize:     defaultMaxBatchSize,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Analyze classifies n, stores the record and publishes its event. The
// record's timestamp is the request-scoped time from ctx.
func (s *Service) Analyze(ctx context.Context, n int64) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.Int64("number", n),
	))
	defer span.End()

	rec := models.NewRecord(s.classify(n), requestcontext.Now(ctx))
	span.SetAttributes(
		attribute.String("id_type", string(rec.Verdict.IDType)),
		attribute.String("crypto_strength", string(rec.Verdict.CryptoStrength)),
	)

	start := time.Now()
	err := s.store.Save(ctx, rec)
	s.metrics.ObserveStore("save", start)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store analysis"))
	}

	s.publish(ctx, []*models.Record{rec})
	s.logger.InfoContext(ctx, "number analysed",
		"analysis_id", rec.ID.String(),
		"id_type", rec.Verdict.IDType,
		"flagged", rec.Verdict.Flagged(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// AnalyzeBatch classifies every number concurrently, stores all records in
// one atomic write and publishes their events. Results keep input order and
// share one timestamp.
func (s *Service) AnalyzeBatch(ctx context.Context, numbers []int64) ([]*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.AnalyzeBatch", trace.WithAttributes(
		attribute.Int("batch.size", len(numbers)),
	))
	defer span.End()

	if len(numbers) == 0 {
		return nil, s.fail(span, dErrors.New(dErrors.CodeBadRequest, "numbers must not be empty"))
	}
	if len(numbers) > s.maxBatchSize {
		return nil, s.fail(span, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("at most %d numbers per batch", s.maxBatchSize)))
	}
	s.metrics.ObserveBatch(len(numbers))

	at := requestcontext.Now(ctx)
	records := make([]*models.Record, len(numbers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, n := range numbers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = models.NewRecord(s.classify(n), at)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeTimeout, "batch cancelled"))
	}

	start := time.Now()
	err := s.store.SaveAll(ctx, records)
	s.metrics.ObserveStore("save_all", start)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store batch"))
	}

	s.publish(ctx, records)
	s.logger.InfoContext(ctx, "batch analysed",
		"size", len(records),
		"request_id", requestcontext.RequestID(ctx),
	)
	return records, nil
}

// Get returns one stored record.
func (s *Service) Get(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "analysis.Get", trace.WithAttributes(
		attribute.String("analysis_id", analysisID.String()),
	))
	defer span.End()

	start := time.Now()
	rec, err := s.store.FindByID(ctx, analysisID)
	s.metrics.ObserveStore("find", start)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "analysis not found")
		}
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load analysis"))
	}
	return rec, nil
}

// Recent lists the newest records matching filter. The limit defaults to
// models.DefaultRecentLimit and is capped at models.MaxRecentLimit.
func (s *Service) Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error) {
	filter = filter.Normalize()
	ctx, span := s.tracer.Start(ctx, "analysis.Recent", trace.WithAttributes(
		attribute.Int("limit", filter.Limit),
		attribute.StringSlice("id_types", filter.IDTypeStrings()),
	))
	defer span.End()

	for _, t := range filter.IDTypes {
		if !t.IsValid() {
			return nil, s.fail(span, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown id_type %q", t)))
		}
	}

	start := time.Now()
	records, err := s.store.Recent(ctx, filter)
	s.metrics.ObserveStore("recent", start)
	if err != nil {
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list analyses"))
	}
	return records, nil
}

// Count returns how many records are stored.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count analyses")
	}
	return n, nil
}

func (s *Service) classify(n int64) classify.Verdict {
	start := time.Now()
	v := s.classifier.Classify(n)
	s.metrics.ObserveClassify(start)
	s.metrics.ObserveVerdict(v)
	return v
}

// publish is best effort: the records are already stored.
func (s *Service) publish(ctx context.Context, records []*models.Record) {
	evs := make([]events.Event, len(records))
	for i, r := range records {
		evs[i] = events.FromRecord(r)
	}
	if err := s.publisher.Publish(ctx, evs...); err != nil {
		s.metrics.IncEvent("error", len(evs))
		s.logger.WarnContext(ctx, "failed to publish analysis events",
			"error", err,
			"count", len(evs),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	s.metrics.IncEvent("ok", len(evs))
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
