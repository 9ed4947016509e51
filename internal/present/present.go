// Package present renders the merged market state and detected
// opportunities to the terminal and forwards them to the configured sinks.
package present

import (
	"context"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// Sink consumes what the monitor loop presents. Implementations handle
// their own errors; a sink never fails the loop.
type Sink interface {
	ShowState(ctx context.Context, state domain.MarketState)
	ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState)
}

// Fanout forwards to every sink in order.
type Fanout []Sink

// ShowState implements Sink.
func (f Fanout) ShowState(ctx context.Context, state domain.MarketState) {
	for _, s := range f {
		s.ShowState(ctx, state)
	}
}

// ShowOpportunity implements Sink.
func (f Fanout) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	for _, s := range f {
		s.ShowOpportunity(ctx, opp, state)
	}
}

// Close closes every sink that owns a background worker, in order.
func (f Fanout) Close() {
	for _, s := range f {
		if c, ok := s.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
