package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"unigraph/internal/normalize"
	"unigraph/internal/resolve"
	"unigraph/internal/vault"
	"unigraph/pkg/domain"
	dErrors "unigraph/pkg/domain-errors"
	"unigraph/pkg/platform/httputil"
	"unigraph/pkg/requestcontext"
)

// Resolver is the resolution surface the admin endpoints expose.
type Resolver interface {
	Run(ctx context.Context, raws []normalize.RawRecord, explicit []resolve.ExplicitEdge) (*resolve.Result, error)
	Queued() []*resolve.Decision
	Review(ctx context.Context, decisionID, reviewer string, approve bool) (*resolve.Decision, error)
}

// Auditor is the vault surface the admin endpoints expose.
type Auditor interface {
	VerifyChain(ctx context.Context) (vault.Report, error)
	Recent(ctx context.Context, limit int) ([]vault.Record, error)
}

// AdminHandler exposes resolution runs, the review queue, and audit chain
// inspection.
type AdminHandler struct {
	resolver Resolver
	auditor  Auditor
	logger   *slog.Logger
}

func NewAdminHandler(resolver Resolver, auditor Auditor, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{resolver: resolver, auditor: auditor, logger: logger}
}

// Register mounts the admin endpoints.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/resolution/run", h.HandleRun)
	r.Get("/resolution/decisions", h.HandleQueued)
	r.Post("/resolution/decisions/{decisionID}/review", h.HandleReview)
	r.Get("/audit/verify", h.HandleVerify)
	r.Get("/audit/recent", h.HandleRecent)
}

type explicitEdgeRequest struct {
	FromSource string  `json:"from_source"`
	FromID     string  `json:"from_id"`
	ToSource   string  `json:"to_source"`
	ToID       string  `json:"to_id"`
	Kind       string  `json:"kind"`
	Ownership  float64 `json:"ownership_pct,omitempty"`
	Role       string  `json:"role,omitempty"`
}

type runRequest struct {
	Records       []normalize.RawRecord `json:"records"`
	Relationships []explicitEdgeRequest `json:"relationships,omitempty"`
}

type runResponse struct {
	RunID     string                  `json:"run_id"`
	Entities  int                     `json:"entities"`
	Decisions int                     `json:"decisions"`
	Queued    int                     `json:"queued_for_review"`
	Compared  int                     `json:"compared_pairs"`
	Skipped   []resolve.SkippedRecord `json:"skipped_records,omitempty"`
}

func (h *AdminHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[runRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if len(req.Records) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "records must not be empty"))
		return
	}

	explicit, err := parseExplicitEdges(req.Relationships)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.resolver.Run(ctx, req.Records, explicit)
	if err != nil {
		h.logger.ErrorContext(ctx, "resolution run failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	var queued int
	for _, d := range result.Decisions {
		if d.State == resolve.StateQueued {
			queued++
		}
	}
	httputil.WriteJSON(w, http.StatusOK, runResponse{
		RunID:     result.RunID,
		Entities:  result.Snapshot.Len(),
		Decisions: len(result.Decisions),
		Queued:    queued,
		Compared:  result.ComparedPairs,
		Skipped:   result.Skipped,
	})
}

func parseExplicitEdges(in []explicitEdgeRequest) ([]resolve.ExplicitEdge, error) {
	var out []resolve.ExplicitEdge
	for _, e := range in {
		kind, err := domain.ParseEdgeKind(e.Kind)
		if err != nil {
			return nil, err
		}
		fromSrc, err := domain.ParseSourceSystem(e.FromSource)
		if err != nil {
			return nil, err
		}
		toSrc, err := domain.ParseSourceSystem(e.ToSource)
		if err != nil {
			return nil, err
		}
		out = append(out, resolve.ExplicitEdge{
			From:         domain.RecordRef{Source: fromSrc, LocalID: e.FromID},
			To:           domain.RecordRef{Source: toSrc, LocalID: e.ToID},
			Kind:         kind,
			OwnershipPct: e.Ownership,
			Role:         e.Role,
		})
	}
	return out, nil
}

func (h *AdminHandler) HandleQueued(w http.ResponseWriter, _ *http.Request) {
	queued := h.resolver.Queued()
	if queued == nil {
		queued = []*resolve.Decision{}
	}
	httputil.WriteJSON(w, http.StatusOK, queued)
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

func (h *AdminHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID := chi.URLParam(r, "decisionID")

	req, ok := httputil.DecodeAndPrepare[reviewRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	decision, err := h.resolver.Review(ctx, decisionID, requestcontext.CallerID(ctx), req.Approve)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

func (h *AdminHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	report, err := h.auditor.VerifyChain(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !report.Valid {
		// A broken chain is a trust incident, not a 200.
		h.logger.ErrorContext(r.Context(), "audit chain verification failed",
			"broken_at", report.BrokenAt,
			"reason", report.Reason,
		)
		httputil.WriteJSON(w, http.StatusConflict, report)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	records, err := h.auditor.Recent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []vault.Record{}
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}
