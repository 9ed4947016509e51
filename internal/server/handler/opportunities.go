package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// OpportunityLister reads the opportunity journal.
type OpportunityLister interface {
	ListRecent(ctx context.Context, limit int) ([]domain.OpportunityEvent, error)
}

// OpportunityHandler serves journaled opportunities.
type OpportunityHandler struct {
	store  OpportunityLister
	logger *slog.Logger
}

// NewOpportunityHandler creates an OpportunityHandler. A nil store makes the
// endpoint answer 501.
func NewOpportunityHandler(store OpportunityLister, logger *slog.Logger) *OpportunityHandler {
	return &OpportunityHandler{store: store, logger: logger.With(slog.String("handler", "opportunities"))}
}

type listOpportunitiesResponse struct {
	Opportunities []domain.OpportunityEvent `json:"opportunities"`
}

// ListRecent returns the most recent journaled opportunities.
// GET /api/opportunities/recent?limit=20
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotImplemented, "opportunity journal not configured")
		return
	}

	events, err := h.store.ListRecent(r.Context(), parseLimit(r, 20, 200))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list opportunities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list opportunities")
		return
	}
	if events == nil {
		events = []domain.OpportunityEvent{}
	}

	writeJSON(w, http.StatusOK, listOpportunitiesResponse{Opportunities: events})
}
