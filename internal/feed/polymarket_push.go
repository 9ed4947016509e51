package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/platform/polymarket"
)

// PolymarketBookStream is the subset of the Polymarket WebSocket client used
// by the push feed.
type PolymarketBookStream interface {
	Connect(ctx context.Context, assetIDs []string) error
	ReadBook(ctx context.Context) (polymarket.BookMessage, error)
	Close() error
}

// PolymarketPush reads book snapshots for one asset from the market channel.
type PolymarketPush struct {
	ws      PolymarketBookStream
	assetID string
	state   atomic.Int32
	logger  *slog.Logger
}

// NewPolymarketPush creates a push feed subscribed to assetID.
func NewPolymarketPush(ws PolymarketBookStream, assetID string, logger *slog.Logger) *PolymarketPush {
	return &PolymarketPush{
		ws:      ws,
		assetID: assetID,
		logger:  logger.With(slog.String("component", "polymarket_push"), slog.String("asset_id", assetID)),
	}
}

// Venue implements PushAdapter.
func (p *PolymarketPush) Venue() domain.Venue { return domain.VenuePolymarket }

// State implements PushAdapter.
func (p *PolymarketPush) State() ConnState { return ConnState(p.state.Load()) }

// Connect dials and subscribes. On failure the adapter stays Disconnected.
func (p *PolymarketPush) Connect(ctx context.Context) error {
	p.state.Store(int32(Connecting))
	if err := p.ws.Connect(ctx, []string{p.assetID}); err != nil {
		p.state.Store(int32(Disconnected))
		return fmt.Errorf("feed: polymarket connect: %w", err)
	}
	p.state.Store(int32(Connected))
	p.logger.InfoContext(ctx, "push feed connected")
	return nil
}

// ReadNext blocks until the next book snapshot arrives or ctx ends.
func (p *PolymarketPush) ReadNext(ctx context.Context) (domain.Quote, error) {
	if p.State() != Connected {
		return domain.Quote{}, fmt.Errorf("feed: polymarket read: %w: %w", domain.ErrTransport, domain.ErrNotConnected)
	}

	book, err := p.ws.ReadBook(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return domain.Quote{}, err
		}
		p.state.Store(int32(Disconnected))
		return domain.Quote{}, fmt.Errorf("feed: polymarket read: %w", err)
	}

	q := book.ToQuote()
	if q.Instrument == "" {
		q.Instrument = p.assetID
	}
	q.ReceivedAt = time.Now()
	return q, nil
}

// Close shuts the connection down.
func (p *PolymarketPush) Close() error {
	p.state.Store(int32(Disconnected))
	return p.ws.Close()
}
