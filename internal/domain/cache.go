package domain

import "context"

// QuoteCache holds the latest quote per venue. Each write replaces the
// previous one; no history is kept.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
}

// SignalBus provides pub/sub and capped streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}
