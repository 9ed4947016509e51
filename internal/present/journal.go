package present

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

// JournalSink records opportunities in the store. An opportunity identical
// to the previously recorded one is not recorded again, so a persisting
// spread is one row until its prices change.
type JournalSink struct {
	store  domain.OpportunityStore
	logger *slog.Logger

	last   domain.Opportunity
	primed bool
}

// NewJournalSink creates a journal sink.
func NewJournalSink(store domain.OpportunityStore, logger *slog.Logger) *JournalSink {
	return &JournalSink{
		store:  store,
		logger: logger.With(slog.String("component", "journal_sink")),
	}
}

// ShowState implements Sink.
func (j *JournalSink) ShowState(context.Context, domain.MarketState) {}

// ShowOpportunity implements Sink.
func (j *JournalSink) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	if j.primed && opp == j.last {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	ev := domain.NewOpportunityEvent(uuid.NewString(), opp, state, time.Now().UTC())
	if err := j.store.Insert(ctx, ev); err != nil {
		j.logger.ErrorContext(ctx, "journal opportunity failed",
			slog.String("id", ev.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	j.last, j.primed = opp, true
}
