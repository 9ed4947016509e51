package present

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// Signal bus channel and stream names.
const (
	ChannelArb   = "ch:arb"
	ChannelQuote = "ch:quote"
	StreamArb    = "stream:arb"
)

// sinkTimeout bounds each bus or journal write.
const sinkTimeout = 2 * time.Second

// BusSink mirrors the latest quotes into the quote cache and publishes
// quotes and opportunity events on the signal bus.
type BusSink struct {
	cache  domain.QuoteCache
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewBusSink creates a sink; cache may be nil.
func NewBusSink(cache domain.QuoteCache, bus domain.SignalBus, logger *slog.Logger) *BusSink {
	return &BusSink{
		cache:  cache,
		bus:    bus,
		logger: logger.With(slog.String("component", "bus_sink")),
	}
}

// ShowState implements Sink.
func (s *BusSink) ShowState(ctx context.Context, state domain.MarketState) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	for _, q := range state {
		if s.cache != nil {
			if err := s.cache.SetQuote(ctx, q); err != nil {
				s.logger.WarnContext(ctx, "cache quote failed",
					slog.String("venue", string(q.Venue)),
					slog.String("error", err.Error()),
				)
			}
		}
		payload, err := json.Marshal(q)
		if err != nil {
			continue
		}
		if err := s.bus.Publish(ctx, ChannelQuote, payload); err != nil {
			s.logger.WarnContext(ctx, "publish quote failed", slog.String("error", err.Error()))
		}
	}
}

// ShowOpportunity implements Sink.
func (s *BusSink) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	ev := domain.NewOpportunityEvent(uuid.NewString(), opp, state, time.Now().UTC())
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal opportunity", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, ChannelArb, payload); err != nil {
		s.logger.WarnContext(ctx, "publish opportunity failed", slog.String("error", err.Error()))
	}
	if err := s.bus.StreamAppend(ctx, StreamArb, payload); err != nil {
		s.logger.WarnContext(ctx, "append opportunity stream failed", slog.String("error", err.Error()))
	}
}
