package kalshi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// DefaultBaseURL is the production REST root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Signer signs timestamp+method+path for the KALSHI-ACCESS-SIGNATURE header.
type Signer interface {
	Sign(timestamp, method, path string) (string, error)
}

// Client is the REST client for the Kalshi exchange API.
type Client struct {
	baseURL    string
	basePath   string
	apiKeyID   string
	signer     Signer
	httpClient *http.Client
	logger     *slog.Logger
	debug      bool
}

// NewClient creates a new Kalshi REST client.
//
// baseURL is the API root, e.g. "https://api.elections.kalshi.com/trade-api/v2".
// Requests are signed over the full URL path, including the root's path
// prefix.
func NewClient(baseURL, apiKeyID string, signer Signer) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("kalshi: parse base url: %w: %w", domain.ErrConfig, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("kalshi: base url %q: %w", baseURL, domain.ErrConfig)
	}
	if apiKeyID == "" {
		return nil, fmt.Errorf("kalshi: api key id is empty: %w", domain.ErrConfig)
	}
	if signer == nil {
		return nil, fmt.Errorf("kalshi: signer is nil: %w", domain.ErrConfig)
	}
	return &Client{
		baseURL:  baseURL,
		basePath: u.Path,
		apiKeyID: apiKeyID,
		signer:   signer,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}, nil
}

// SetHTTPTimeout bounds every request issued by the client.
func (c *Client) SetHTTPTimeout(d time.Duration) {
	c.httpClient.Timeout = d
}

// SetDebug makes the client log raw orderbook bodies.
func (c *Client) SetDebug(logger *slog.Logger, debug bool) {
	c.logger = logger.With(slog.String("component", "kalshi_client"))
	c.debug = debug
}

// GetMarkets returns the markets belonging to an event.
func (c *Client) GetMarkets(ctx context.Context, eventTicker string) ([]KalshiMarket, error) {
	params := url.Values{}
	params.Set("event_ticker", strings.ToUpper(eventTicker))

	body, err := c.doSignedRequest(ctx, http.MethodGet, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("kalshi: get markets for %s: %w", eventTicker, err)
	}

	var resp struct {
		Markets []KalshiMarket `json:"markets"`
		Cursor  string         `json:"cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("kalshi: decode markets: %w: %w", domain.ErrDecode, err)
	}
	return resp.Markets, nil
}

// GetMarket returns a single market by its ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (KalshiMarket, error) {
	path := fmt.Sprintf("/markets/%s", url.PathEscape(ticker))

	body, err := c.doSignedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return KalshiMarket{}, fmt.Errorf("kalshi: get market %s: %w", ticker, err)
	}

	var resp struct {
		Market KalshiMarket `json:"market"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return KalshiMarket{}, fmt.Errorf("kalshi: decode market: %w: %w", domain.ErrDecode, err)
	}
	return resp.Market, nil
}

// GetOrderbook returns the current orderbook for the given market ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (KalshiOrderbook, error) {
	path := fmt.Sprintf("/markets/%s/orderbook", url.PathEscape(ticker))

	body, err := c.doSignedRequest(ctx, http.MethodGet, path)
	if err != nil {
		return KalshiOrderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}
	if c.debug {
		c.logger.DebugContext(ctx, "raw orderbook",
			slog.String("ticker", ticker),
			slog.String("body", string(body)),
		)
	}

	var resp struct {
		Orderbook KalshiOrderbook `json:"orderbook"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return KalshiOrderbook{}, fmt.Errorf("kalshi: decode orderbook: %w: %w", domain.ErrDecode, err)
	}
	return resp.Orderbook, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doSignedRequest builds, signs, sends, and reads a request against the
// Kalshi API. path is relative to the base URL and may carry a query.
func (c *Client) doSignedRequest(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.signRequest(req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w: %w", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w: %w", domain.ErrTransport, err)
	}

	if err := checkStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

// signRequest adds the KALSHI-ACCESS-* headers. The signed message is the
// millisecond timestamp, the method and the URL path without its query.
func (c *Client) signRequest(req *http.Request) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)

	sig, err := c.signer.Sign(ts, req.Method, req.URL.Path)
	if err != nil {
		return fmt.Errorf("sign request: %w: %w", domain.ErrAuth, err)
	}

	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", sig)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr KalshiErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	detail := apiErr.Error.Message
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, detail)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrAuth, statusCode, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", domain.ErrTransport, domain.ErrRateLimited, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrTransport, statusCode, detail)
	}
}
