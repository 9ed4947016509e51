// Package notify delivers operator alerts to chat channels. Alerts are
// filtered by event type and rate limited per key so a persisting condition
// is not re-sent on every evaluation.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EventArbDetected is the event type for a detected cross-venue opportunity.
const EventArbDetected = "arb_detected"

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders.
type Notifier struct {
	senders  []Sender
	events   map[string]bool // allowed event types
	cooldown time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time
	now      func() time.Time
}

// NewNotifier creates a Notifier that will deliver to the given senders. Only
// events whose type appears in events are forwarded; an empty list allows
// all. A positive cooldown suppresses repeats of the same key within it.
func NewNotifier(senders []Sender, events []string, cooldown time.Duration, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders:  senders,
		events:   allowed,
		cooldown: cooldown,
		logger:   logger.With(slog.String("component", "notifier")),
		lastSent: make(map[string]time.Time),
		now:      time.Now,
	}
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool {
	return len(n.senders) > 0
}

// Notify sends to all senders when event is allowed and key is not cooling
// down. It reports whether the notification was dispatched.
func (n *Notifier) Notify(ctx context.Context, event, key, title, message string) (bool, error) {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return false, nil
	}
	if !n.claim(event + "/" + key) {
		return false, nil
	}
	return true, n.dispatch(ctx, title, message)
}

func (n *Notifier) claim(key string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	if last, ok := n.lastSent[key]; ok && n.cooldown > 0 && now.Sub(last) < n.cooldown {
		return false
	}
	n.lastSent[key] = now
	return true
}

// dispatch sends to every sender. A failing sender does not prevent
// delivery to the others; failures are joined into the returned error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}
