package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// DefaultGammaURL is the production Gamma API root.
const DefaultGammaURL = "https://gamma-api.polymarket.com"

// excludedQuestionTerms mark side markets (per-game, props, totals) that are
// not the match-winner market of an event.
var excludedQuestionTerms = []string{
	"game", "blood", "handicap", "o/u", "spread", "total", "half", "1h", "2h",
}

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market discovery and metadata.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Resolution is the outcome token picked for an event slug.
type Resolution struct {
	AssetID  string
	Anchor   string
	Question string
	Outcome  string
	// AnchorMatched is false when no outcome mentioned the anchor and the
	// first outcome was used.
	AnchorMatched bool
}

// GetEventsBySlug returns the events matching slug.
func (g *GammaClient) GetEventsBySlug(ctx context.Context, slug string) ([]APIEvent, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events by slug %s: %w", slug, err)
	}

	var events []APIEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode events: %w: %w", domain.ErrDecode, err)
	}
	return events, nil
}

// ResolveAsset maps an event slug such as "lol-gam-tsw-2026-01-31" to the
// asset id of the anchor's outcome in the match-winner market. The anchor is
// the second dash-separated slug segment.
func (g *GammaClient) ResolveAsset(ctx context.Context, slug string) (Resolution, error) {
	anchor, err := AnchorFromSlug(slug)
	if err != nil {
		return Resolution{}, err
	}

	events, err := g.GetEventsBySlug(ctx, slug)
	if err != nil {
		return Resolution{}, err
	}
	if len(events) == 0 {
		return Resolution{}, fmt.Errorf("polymarket/gamma: no event for slug %s: %w", slug, domain.ErrNotFound)
	}

	market, ok := matchWinnerMarket(events[0].Markets)
	if !ok {
		return Resolution{}, fmt.Errorf("polymarket/gamma: no markets in event %s: %w", slug, domain.ErrNotFound)
	}

	outcomes, tokenIDs, err := market.OutcomeTokens()
	if err != nil {
		return Resolution{}, fmt.Errorf("polymarket/gamma: market %q: %w: %w", market.Question, domain.ErrDecode, err)
	}

	res := Resolution{Anchor: anchor, Question: market.Question}
	idx := 0
	for i, o := range outcomes {
		if strings.Contains(strings.ToLower(o), anchor) {
			idx = i
			res.AnchorMatched = true
			break
		}
	}
	if idx >= len(tokenIDs) {
		return Resolution{}, fmt.Errorf("polymarket/gamma: no asset id for slug %s: %w", slug, domain.ErrNotFound)
	}
	res.AssetID = tokenIDs[idx]
	if idx < len(outcomes) {
		res.Outcome = outcomes[idx]
	}
	return res, nil
}

// AnchorFromSlug returns the lower-cased second segment of slug.
func AnchorFromSlug(slug string) (string, error) {
	parts := strings.Split(slug, "-")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("polymarket/gamma: slug %q has no anchor segment: %w", slug, domain.ErrConfig)
	}
	return strings.ToLower(parts[1]), nil
}

// matchWinnerMarket returns the first market whose question carries none of
// the side-market terms, else the first market.
func matchWinnerMarket(markets []APIMarket) (APIMarket, bool) {
	if len(markets) == 0 {
		return APIMarket{}, false
	}
	for _, m := range markets {
		q := strings.ToLower(m.Question)
		excluded := false
		for _, term := range excludedQuestionTerms {
			if strings.Contains(q, term) {
				excluded = true
				break
			}
		}
		if !excluded {
			return m, true
		}
	}
	return markets[0], true
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", domain.ErrTransport, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx HTTP status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	detail := strings.TrimSpace(string(body))
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuth, statusCode, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransport, statusCode, detail)
	}
}
