package present

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/notify"
)

const alertTimeout = 15 * time.Second

// Alerter is the notifier surface used by AlertSink.
type Alerter interface {
	Notify(ctx context.Context, event, key, title, message string) (bool, error)
}

// AlertSink sends an arb_detected notification per opportunity direction.
// Delivery runs in the background with at most one send in flight; an
// opportunity arriving while a send is running is dropped.
type AlertSink struct {
	alerter  Alerter
	logger   *slog.Logger
	inflight atomic.Bool
}

// NewAlertSink creates an alert sink.
func NewAlertSink(alerter Alerter, logger *slog.Logger) *AlertSink {
	return &AlertSink{
		alerter: alerter,
		logger:  logger.With(slog.String("component", "alert_sink")),
	}
}

// ShowState implements Sink.
func (a *AlertSink) ShowState(context.Context, domain.MarketState) {}

// ShowOpportunity implements Sink.
func (a *AlertSink) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	if !a.inflight.CompareAndSwap(false, true) {
		return
	}
	key := fmt.Sprintf("%s>%s", opp.BuyVenue, opp.SellVenue)
	title := fmt.Sprintf("Arbitrage: buy %s, sell %s", opp.BuyVenue, opp.SellVenue)
	msg := FormatOpportunity(opp, state)

	go func() {
		defer a.inflight.Store(false)
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if _, err := a.alerter.Notify(ctx, notify.EventArbDetected, key, title, msg); err != nil {
			a.logger.WarnContext(ctx, "alert failed", slog.String("error", err.Error()))
		}
	}()
}

// FormatOpportunity renders an opportunity as plain text.
func FormatOpportunity(opp domain.Opportunity, state domain.MarketState) string {
	buy, sell := state[opp.BuyVenue], state[opp.SellVenue]
	return fmt.Sprintf(
		"Buy on:  %s %s @ $%.4f\nSell on: %s %s @ $%.4f\nProfit: %.2f¢ (%.2f%%)",
		opp.BuyVenue, buy.Instrument, opp.BuyPrice,
		opp.SellVenue, sell.Instrument, opp.SellPrice,
		opp.ProfitCents(), opp.ProfitPct,
	)
}
