package handler

import (
	"net/http"

	"github.com/alanyoungcy/arbmonitor/internal/arbitrage"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/feed"
)

// StateSource exposes the monitor's published snapshot.
type StateSource interface {
	Snapshot() domain.MarketState
	Opportunities() int64
	PushState() feed.ConnState
}

// StateHandler serves the latest MarketState and the detector's view of it.
type StateHandler struct {
	src         StateSource
	left, right domain.Venue
}

// NewStateHandler creates a StateHandler. left and right are passed to the
// detector in that order, matching the monitor loop's pull-then-push order.
func NewStateHandler(src StateSource, left, right domain.Venue) *StateHandler {
	return &StateHandler{src: src, left: left, right: right}
}

type stateResponse struct {
	Quotes        []domain.Quote      `json:"quotes"`
	PushState     string              `json:"push_state"`
	Opportunities int64               `json:"opportunities"`
	Current       *domain.Opportunity `json:"current,omitempty"`
	Spreads       *spreadView         `json:"spreads,omitempty"`
}

type spreadView struct {
	SellLeft  float64 `json:"sell_left"`
	SellRight float64 `json:"sell_right"`
}

// GetState returns the quotes currently held for each venue.
// GET /api/state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	state := h.src.Snapshot()

	resp := stateResponse{
		Quotes:        []domain.Quote{},
		PushState:     h.src.PushState().String(),
		Opportunities: h.src.Opportunities(),
	}
	for _, v := range []domain.Venue{h.left, h.right} {
		if q, ok := state[v]; ok {
			resp.Quotes = append(resp.Quotes, q)
		}
	}
	if l, rq, ok := state.Pair(h.left, h.right); ok {
		if opp, found := arbitrage.Detect(l, rq); found {
			resp.Current = &opp
		}
		sellLeft, sellRight := arbitrage.Spreads(l, rq)
		resp.Spreads = &spreadView{SellLeft: sellLeft, SellRight: sellRight}
	}

	writeJSON(w, http.StatusOK, resp)
}
