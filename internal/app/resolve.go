package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbmonitor/internal/config"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/platform/polymarket"
)

// Pair identifies the two instruments being compared.
type Pair struct {
	AssetID      string
	Anchor       string
	KalshiTicker string
}

// Instruments maps each venue to its instrument id.
func (p Pair) Instruments() map[domain.Venue]string {
	return map[domain.Venue]string{
		domain.VenuePolymarket: p.AssetID,
		domain.VenueKalshi:     p.KalshiTicker,
	}
}

type assetResolver interface {
	ResolveAsset(ctx context.Context, slug string) (polymarket.Resolution, error)
}

type tickerResolver interface {
	ResolveMarketTicker(ctx context.Context, eventTicker, anchor string) (string, error)
}

// resolvePair turns the configured slug and event ticker into concrete
// instruments. Explicit asset_id and market_ticker skip the lookups; an
// explicit anchor overrides the one derived from the slug.
func resolvePair(ctx context.Context, cfg *config.Config, assets assetResolver, tickers tickerResolver, logger *slog.Logger) (Pair, error) {
	var pair Pair

	switch {
	case cfg.Polymarket.AssetID != "":
		pair.AssetID = cfg.Polymarket.AssetID
		if cfg.Polymarket.Slug != "" {
			if anchor, err := polymarket.AnchorFromSlug(cfg.Polymarket.Slug); err == nil {
				pair.Anchor = anchor
			}
		}
	default:
		res, err := assets.ResolveAsset(ctx, cfg.Polymarket.Slug)
		if err != nil {
			return Pair{}, fmt.Errorf("polymarket slug %s: %w", cfg.Polymarket.Slug, err)
		}
		if !res.AnchorMatched {
			logger.WarnContext(ctx, "no outcome matched anchor, using first outcome",
				slog.String("anchor", res.Anchor),
				slog.String("outcome", res.Outcome),
			)
		}
		logger.InfoContext(ctx, "resolved polymarket asset",
			slog.String("slug", cfg.Polymarket.Slug),
			slog.String("question", res.Question),
			slog.String("outcome", res.Outcome),
			slog.String("asset_id", res.AssetID),
		)
		pair.AssetID = res.AssetID
		pair.Anchor = res.Anchor
	}
	if cfg.Polymarket.Anchor != "" {
		pair.Anchor = cfg.Polymarket.Anchor
	}

	if cfg.Kalshi.MarketTicker != "" {
		pair.KalshiTicker = cfg.Kalshi.MarketTicker
		return pair, nil
	}
	ticker, err := tickers.ResolveMarketTicker(ctx, cfg.Kalshi.EventTicker, pair.Anchor)
	if err != nil {
		return Pair{}, fmt.Errorf("kalshi event %s: %w", cfg.Kalshi.EventTicker, err)
	}
	logger.InfoContext(ctx, "resolved kalshi market",
		slog.String("event_ticker", cfg.Kalshi.EventTicker),
		slog.String("anchor", pair.Anchor),
		slog.String("ticker", ticker),
	)
	pair.KalshiTicker = ticker
	return pair, nil
}
