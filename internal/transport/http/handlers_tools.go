package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unigraph/internal/assemble"
	"unigraph/pkg/platform/httputil"
	"unigraph/pkg/requestcontext"
)

// Assembler is the query surface the tool endpoints expose.
type Assembler interface {
	Customer360(ctx context.Context, req assemble.GetCustomer360) (*assemble.Customer360, error)
	HouseholdSummary(ctx context.Context, req assemble.GetHouseholdSummary) (*assemble.HouseholdSummary, error)
	SearchEntities(ctx context.Context, req assemble.SearchEntities) ([]assemble.EntitySummary, error)
}

// ToolsHandler exposes the three read tools. Endpoint names are fixed for
// compatibility with upstream callers.
type ToolsHandler struct {
	assembler Assembler
	logger    *slog.Logger
}

func NewToolsHandler(assembler Assembler, logger *slog.Logger) *ToolsHandler {
	return &ToolsHandler{assembler: assembler, logger: logger}
}

// Register mounts the tool endpoints.
func (h *ToolsHandler) Register(r chi.Router) {
	r.Post("/tools/get_customer_360", h.HandleCustomer360)
	r.Post("/tools/get_household_summary", h.HandleHouseholdSummary)
	r.Post("/tools/search_entities", h.HandleSearchEntities)
}

func (h *ToolsHandler) HandleCustomer360(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[assemble.GetCustomer360](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	profile, err := h.assembler.Customer360(ctx, req)
	if err != nil {
		h.logTool(ctx, "get_customer_360", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *ToolsHandler) HandleHouseholdSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[assemble.GetHouseholdSummary](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	summary, err := h.assembler.HouseholdSummary(ctx, req)
	if err != nil {
		h.logTool(ctx, "get_household_summary", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}

func (h *ToolsHandler) HandleSearchEntities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[assemble.SearchEntities](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	hits, err := h.assembler.SearchEntities(ctx, req)
	if err != nil {
		h.logTool(ctx, "search_entities", err)
		httputil.WriteError(w, err)
		return
	}
	if hits == nil {
		hits = []assemble.EntitySummary{}
	}
	httputil.WriteJSON(w, http.StatusOK, hits)
}

func (h *ToolsHandler) logTool(ctx context.Context, tool string, err error) {
	h.logger.WarnContext(ctx, "tool call failed",
		"tool", tool,
		"request_id", requestcontext.RequestID(ctx),
		"caller_id", requestcontext.CallerID(ctx),
		"error", err,
	)
}
