package kalshi

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// ResolveMarketTicker maps an event ticker to the market ticker for anchor.
func (c *Client) ResolveMarketTicker(ctx context.Context, eventTicker, anchor string) (string, error) {
	markets, err := c.GetMarkets(ctx, eventTicker)
	if err != nil {
		return "", err
	}
	ticker, ok := SelectMarket(markets, anchor)
	if !ok {
		return "", fmt.Errorf("kalshi: no markets for event %s: %w", eventTicker, domain.ErrNotFound)
	}
	return ticker, nil
}

// SelectMarket picks the market for anchor. Matches are tried in order: a
// ticker ending in "-anchor", a title starting with "will anchor", any
// mention in ticker or title. Without a match the first market is used.
func SelectMarket(markets []KalshiMarket, anchor string) (string, bool) {
	if len(markets) == 0 {
		return "", false
	}

	anchor = strings.ToLower(strings.TrimSpace(anchor))
	if anchor != "" {
		for _, m := range markets {
			if strings.HasSuffix(strings.ToLower(m.Ticker), "-"+anchor) {
				return m.Ticker, true
			}
		}
		for _, m := range markets {
			if strings.HasPrefix(strings.ToLower(m.Title), "will "+anchor) {
				return m.Ticker, true
			}
		}
		for _, m := range markets {
			if strings.Contains(strings.ToLower(m.Title), anchor) ||
				strings.Contains(strings.ToLower(m.Ticker), anchor) {
				return m.Ticker, true
			}
		}
	}
	return markets[0].Ticker, true
}
