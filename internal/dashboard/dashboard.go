// Package dashboard renders the latest analyses as an HTML table.
package dashboard

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	analysishandler "numintel/internal/analysis/handler"
	"numintel/internal/analysis/models"
	"numintel/internal/classify"
	dErrors "numintel/pkg/domain-errors"
	"numintel/pkg/requestcontext"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

var page = template.Must(template.New("dashboard.html").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/dashboard.html"))

// Reader is the read side of the analysis service.
type Reader interface {
	Recent(ctx context.Context, filter models.RecentFilter) ([]*models.Record, error)
	Count(ctx context.Context) (int, error)
}

// Handler serves GET /.
type Handler struct {
	reader Reader
	limit  int
	logger *slog.Logger
}

// New builds a dashboard showing up to limit rows by default.
func New(reader Reader, limit int, logger *slog.Logger) *Handler {
	if limit <= 0 {
		limit = models.DefaultRecentLimit
	}
	return &Handler{reader: reader, limit: limit, logger: logger}
}

// Register mounts the dashboard on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.HandleDashboard)
}

type row struct {
	Number  string
	Entropy string
	IDType  string
	Crypto  string
	Origin  string
	Fraud   string
	Flagged bool
}

type view struct {
	Rows   []row
	Total  int
	Filter []string
}

// HandleDashboard renders the newest analyses, optionally narrowed by repeated
// id_type parameters.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := analysishandler.ParseRecentFilter(r)
	if err != nil {
		msg := "bad request"
		if de, ok := dErrors.As(err); ok {
			msg = de.Message
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	if filter.Limit == 0 {
		filter.Limit = h.limit
	}

	records, err := h.reader.Recent(ctx, filter)
	if err != nil {
		h.fail(w, r, "loading analyses failed", err)
		return
	}
	total, err := h.reader.Count(ctx)
	if err != nil {
		h.fail(w, r, "counting analyses failed", err)
		return
	}

	v := view{Rows: make([]row, len(records)), Total: total}
	for _, t := range filter.IDTypes {
		v.Filter = append(v.Filter, string(t))
	}
	for i, rec := range records {
		v.Rows[i] = toRow(rec)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		h.fail(w, r, "rendering dashboard failed", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)

	h.logger.DebugContext(ctx, "dashboard served",
		"request_id", requestID,
		"rows", len(records),
	)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.ErrorContext(r.Context(), msg,
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
	http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
}

func joinFlags(flags []classify.FraudFlag) string {
	parts := make([]string, len(flags))
	for i, f := range flags {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func toRow(rec *models.Record) row {
	v := rec.Verdict
	return row{
		Number:  strconv.FormatInt(v.Number, 10),
		Entropy: strconv.FormatFloat(v.Entropy, 'f', -1, 64),
		IDType:  string(v.IDType),
		Crypto:  string(v.CryptoStrength),
		Origin:  string(v.Origin),
		Fraud:   joinFlags(v.FraudFlags),
		Flagged: v.Flagged(),
	}
}
