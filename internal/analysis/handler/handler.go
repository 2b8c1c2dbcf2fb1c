package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	id "numintel/pkg/domain"
	dErrors "numintel/pkg/domain-errors"
	"numintel/pkg/platform/httputil"
	"numintel/pkg/platform/strings"
	"numintel/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the interface for analysis operations.
type Service interface {
	Analyze(ctx context.Context, n int64) (*models.Record, error)
	AnalyzeBatch(ctx context.Context, numbers []int64) ([]*models.Record, error)
	Get(ctx context.Context, analysisID id.AnalysisID) (*models.Record, error)
	Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error)
}

// Handler wires analysis endpoints to the analysis service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an analysis handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts analysis endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/batch", h.HandleBatch)
	r.Get("/analyses", h.HandleList)
	r.Get("/analyses/{id}", h.HandleGet)
}

// HandleAnalyze handles POST /analyze.
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[AnalyzeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	rec, err := h.service.Analyze(ctx, req.Number.Int64())
	if err != nil {
		h.logger.ErrorContext(ctx, "analysis failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "analysis served",
		"request_id", requestID,
		"analysis_id", rec.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// HandleBatch handles POST /batch. The response array follows request order.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	records, err := h.service.AnalyzeBatch(ctx, req.Int64s())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch analysis failed",
			"request_id", requestID,
			"size", len(req.Numbers),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch served",
		"request_id", requestID,
		"size", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, fromRecords(records))
}

// HandleList handles GET /analyses?limit=&id_type=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := ParseRecentFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.Recent(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "listing analyses failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{
		Analyses: fromRecords(records),
		Count:    len(records),
	})
}

// HandleGet handles GET /analyses/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	analysisID, err := id.ParseAnalysisID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Get(ctx, analysisID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "loading analysis failed",
				"request_id", requestcontext.RequestID(ctx),
				"analysis_id", analysisID.String(),
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(rec))
}

// ParseRecentFilter reads limit and repeated id_type query parameters. Unknown
// id types are rejected.
func ParseRecentFilter(r *http.Request) (models.RecentFilter, error) {
	q := r.URL.Query()
	var filter models.RecentFilter

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return filter, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
		}
		filter.Limit = limit
	}

	for _, raw := range strings.DedupeAndCollapse(q["id_type"]) {
		t, ok := classify.ParseIDType(raw)
		if !ok {
			return filter, dErrors.New(dErrors.CodeInvalidInput, "unknown id_type "+strconv.Quote(raw))
		}
		filter.IDTypes = append(filter.IDTypes, t)
	}
	return filter, nil
}
