package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/feed"
	"github.com/alanyoungcy/arbmonitor/internal/server/handler"
)

type fakeState struct {
	state domain.MarketState
}

func (f fakeState) Snapshot() domain.MarketState { return f.state }
func (f fakeState) Opportunities() int64         { return 3 }
func (f fakeState) PushState() feed.ConnState    { return feed.Connected }

type fakeStore struct {
	events []domain.OpportunityEvent
	err    error
	limit  int
}

func (f *fakeStore) ListRecent(_ context.Context, limit int) ([]domain.OpportunityEvent, error) {
	f.limit = limit
	return f.events, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, apiKey string, store *fakeStore) *httptest.Server {
	t.Helper()
	state := domain.MarketState{
		domain.VenuePolymarket: {Venue: domain.VenuePolymarket, Instrument: "asset-1", BestBid: 0.40, BestAsk: 0.42},
		domain.VenueKalshi:     {Venue: domain.VenueKalshi, Instrument: "KX-T", BestBid: 0.45, BestAsk: 0.47},
	}
	handlers := Handlers{
		Health: handler.NewHealthHandler(),
		State:  handler.NewStateHandler(fakeState{state: state}, domain.VenueKalshi, domain.VenuePolymarket),
	}
	if store != nil {
		handlers.Opportunities = handler.NewOpportunityHandler(store, discardLogger())
	}
	srv := NewServer(Config{APIKey: apiKey}, handlers, nil, discardLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getJSON(t *testing.T, req *http.Request, out any) int {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", req.URL, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", req.URL, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "secret", nil)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/health", nil)

	var body map[string]any
	if code := getJSON(t, req, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestStateReportsDetectedOpportunity(t *testing.T) {
	ts := newTestServer(t, "", nil)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)

	var body struct {
		Quotes        []domain.Quote      `json:"quotes"`
		PushState     string              `json:"push_state"`
		Opportunities int64               `json:"opportunities"`
		Current       *domain.Opportunity `json:"current"`
	}
	if code := getJSON(t, req, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if len(body.Quotes) != 2 || body.Quotes[0].Venue != domain.VenueKalshi {
		t.Fatalf("quotes = %+v", body.Quotes)
	}
	if body.PushState != "connected" || body.Opportunities != 3 {
		t.Fatalf("push_state = %q, opportunities = %d", body.PushState, body.Opportunities)
	}
	if body.Current == nil {
		t.Fatal("expected a current opportunity")
	}
	if body.Current.BuyVenue != domain.VenuePolymarket || body.Current.SellVenue != domain.VenueKalshi {
		t.Fatalf("current = %+v", body.Current)
	}
}

func TestAuthRequiredForState(t *testing.T) {
	ts := newTestServer(t, "secret", nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)
	if code := getJSON(t, req, nil); code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", code)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/state", nil)
	req.Header.Set("Authorization", "Bearer secret")
	if code := getJSON(t, req, nil); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}

	req, _ = http.NewRequest(http.MethodGet, ts.URL+"/api/state?api_key=secret", nil)
	if code := getJSON(t, req, nil); code != http.StatusOK {
		t.Fatalf("query key status = %d, want 200", code)
	}
}

func TestOpportunitiesRecent(t *testing.T) {
	store := &fakeStore{events: []domain.OpportunityEvent{{
		ID:          "e1",
		Opportunity: domain.NewOpportunity(domain.VenuePolymarket, 0.42, domain.VenueKalshi, 0.45),
		DetectedAt:  time.Unix(1700000000, 0).UTC(),
	}}}
	ts := newTestServer(t, "", store)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/opportunities/recent?limit=1000", nil)

	var body struct {
		Opportunities []domain.OpportunityEvent `json:"opportunities"`
	}
	if code := getJSON(t, req, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if store.limit != 200 {
		t.Fatalf("limit = %d, want clamp to 200", store.limit)
	}
	if len(body.Opportunities) != 1 || body.Opportunities[0].ID != "e1" {
		t.Fatalf("opportunities = %+v", body.Opportunities)
	}
}

func TestOpportunitiesStoreError(t *testing.T) {
	ts := newTestServer(t, "", &fakeStore{err: errors.New("down")})
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/opportunities/recent", nil)
	if code := getJSON(t, req, nil); code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", code)
	}
}

func TestOpportunitiesNotRegisteredWithoutJournal(t *testing.T) {
	ts := newTestServer(t, "", nil)
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/opportunities/recent", nil)
	if code := getJSON(t, req, nil); code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, "secret", nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin = %q", got)
	}
}
