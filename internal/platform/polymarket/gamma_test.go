package polymarket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

const eventJSON = `[{"id":"1","slug":"lol-gam-tsw-2026-01-31","markets":[
 {"question":"Game 1 Winner","outcomes":"[\"GAM\",\"TSW\"]","clobTokenIds":"[\"g1\",\"g2\"]"},
 {"question":"GAM Esports vs Team Secret Whales (BO3)","outcomes":"[\"Team Secret Whales\",\"GAM Esports\"]","clobTokenIds":"[\"m1\",\"m2\"]"}
]}]`

func TestResolveAsset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" || r.URL.Query().Get("slug") != "lol-gam-tsw-2026-01-31" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(eventJSON))
	}))
	defer srv.Close()

	res, err := NewGammaClient(srv.URL).ResolveAsset(context.Background(), "lol-gam-tsw-2026-01-31")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.AssetID != "m2" || res.Anchor != "gam" || !res.AnchorMatched || res.Outcome != "GAM Esports" {
		t.Fatalf("resolution=%+v", res)
	}
}

func TestResolveAsset_AnchorMissingUsesFirstOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"markets":[{"question":"Who wins?","outcomes":"[\"Yes\",\"No\"]","clobTokenIds":"[\"y\",\"n\"]"}]}]`))
	}))
	defer srv.Close()

	res, err := NewGammaClient(srv.URL).ResolveAsset(context.Background(), "nba-dal-hou")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.AssetID != "y" || res.AnchorMatched {
		t.Fatalf("resolution=%+v", res)
	}
}

func TestResolveAsset_NoEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).ResolveAsset(context.Background(), "nba-dal-hou")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestResolveAsset_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewGammaClient(srv.URL).ResolveAsset(context.Background(), "nba-dal-hou")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("err=%v want ErrTransport", err)
	}
}

func TestMatchWinnerMarket_AllExcludedFallsBackToFirst(t *testing.T) {
	m, ok := matchWinnerMarket([]APIMarket{{Question: "Game 1"}, {Question: "Total kills O/U"}})
	if !ok || m.Question != "Game 1" {
		t.Fatalf("market=%+v ok=%v", m, ok)
	}
}
