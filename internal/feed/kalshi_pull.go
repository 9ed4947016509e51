package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/platform/kalshi"
)

// KalshiMarketGetter is the subset of the Kalshi client used by the pull feed.
type KalshiMarketGetter interface {
	GetMarket(ctx context.Context, ticker string) (kalshi.KalshiMarket, error)
	GetOrderbook(ctx context.Context, ticker string) (kalshi.KalshiOrderbook, error)
}

// KalshiPull fetches one market and its depth per call.
type KalshiPull struct {
	client KalshiMarketGetter
	ticker string
	logger *slog.Logger
}

// NewKalshiPull creates a pull feed for ticker.
func NewKalshiPull(client KalshiMarketGetter, ticker string, logger *slog.Logger) *KalshiPull {
	return &KalshiPull{
		client: client,
		ticker: ticker,
		logger: logger.With(slog.String("component", "kalshi_pull"), slog.String("ticker", ticker)),
	}
}

// Venue implements PullAdapter.
func (k *KalshiPull) Venue() domain.Venue { return domain.VenueKalshi }

// Fetch returns the market's quote. A failed depth request is tolerated and
// yields a quote without levels; a failed market request is returned.
func (k *KalshiPull) Fetch(ctx context.Context) (domain.Quote, error) {
	m, err := k.client.GetMarket(ctx, k.ticker)
	if err != nil {
		return domain.Quote{}, err
	}

	var book *kalshi.KalshiOrderbook
	ob, err := k.client.GetOrderbook(ctx, k.ticker)
	if err != nil {
		k.logger.DebugContext(ctx, "orderbook unavailable, quoting without depth",
			slog.String("error", err.Error()),
		)
	} else {
		book = &ob
	}

	q := m.ToQuote(book)
	q.ReceivedAt = time.Now()
	return q, nil
}
