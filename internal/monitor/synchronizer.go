// Package monitor runs the merge loop that keeps the latest quote of a pull
// feed and a push feed side by side and evaluates them for arbitrage.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbmonitor/internal/arbitrage"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/feed"
)

// Presenter receives the merged state and detected opportunities.
type Presenter interface {
	ShowState(ctx context.Context, state domain.MarketState)
	ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState)
}

// Config bounds the per-tick work of the Synchronizer.
type Config struct {
	PollInterval     time.Duration
	PullTimeout      time.Duration
	PushReadTimeout  time.Duration
	ReconnectTimeout time.Duration
	TickDelay        time.Duration
	DisplayInterval  time.Duration
	DisplayEvery     int
	Verbose          bool
}

// DefaultConfig returns the loop settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		PollInterval:     500 * time.Millisecond,
		PullTimeout:      5 * time.Second,
		PushReadTimeout:  500 * time.Millisecond,
		ReconnectTimeout: 10 * time.Second,
		TickDelay:        10 * time.Millisecond,
		DisplayInterval:  10 * time.Second,
		DisplayEvery:     10,
	}
}

// TickReport summarizes one pass of the loop.
type TickReport struct {
	Pulled      bool
	Pushed      bool
	Reconnected bool
	Displayed   bool
	Opportunity *domain.Opportunity
}

// Synchronizer owns the MarketState. Only the goroutine running Tick or Run
// mutates it; Snapshot is safe from any goroutine.
type Synchronizer struct {
	pull      feed.PullAdapter
	push      feed.PushAdapter
	presenter Presenter
	cfg       Config
	logger    *slog.Logger

	state     domain.MarketState
	published atomic.Pointer[domain.MarketState]

	lastPull      time.Time
	lastDisplay   time.Time
	sinceDisplay  int
	opportunities atomic.Int64
}

// New creates a Synchronizer. Zero-valued Config fields take their defaults.
func New(pull feed.PullAdapter, push feed.PushAdapter, presenter Presenter, cfg Config, logger *slog.Logger) *Synchronizer {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PullTimeout <= 0 {
		cfg.PullTimeout = def.PullTimeout
	}
	if cfg.PushReadTimeout <= 0 {
		cfg.PushReadTimeout = def.PushReadTimeout
	}
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = def.ReconnectTimeout
	}
	if cfg.TickDelay < 0 {
		cfg.TickDelay = 0
	}
	if cfg.DisplayInterval <= 0 {
		cfg.DisplayInterval = def.DisplayInterval
	}
	if cfg.DisplayEvery <= 0 {
		cfg.DisplayEvery = def.DisplayEvery
	}

	s := &Synchronizer{
		pull:        pull,
		push:        push,
		presenter:   presenter,
		cfg:         cfg,
		logger:      logger.With(slog.String("component", "synchronizer")),
		state:       domain.MarketState{},
		lastDisplay: time.Now(),
	}
	empty := domain.MarketState{}
	s.published.Store(&empty)
	return s
}

// Run connects the push feed and ticks until ctx is cancelled. A failed
// initial connect is logged and retried by the loop. The push feed is closed
// on return.
func (s *Synchronizer) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "synchronizer started",
		slog.String("pull_venue", string(s.pull.Venue())),
		slog.String("push_venue", string(s.push.Venue())),
		slog.Duration("poll_interval", s.cfg.PollInterval),
	)
	defer func() {
		if err := s.push.Close(); err != nil {
			s.logger.Warn("close push feed", slog.String("error", err.Error()))
		}
		s.logger.Info("synchronizer stopped", slog.Int64("opportunities", s.opportunities.Load()))
	}()

	connCtx, cancel := context.WithTimeout(ctx, s.cfg.ReconnectTimeout)
	if err := s.push.Connect(connCtx); err != nil {
		s.logger.ErrorContext(ctx, "initial push connect failed, will retry",
			slog.String("error", err.Error()),
		)
	}
	cancel()

	timer := time.NewTimer(s.cfg.TickDelay)
	defer timer.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Tick(ctx)

		timer.Reset(s.cfg.TickDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick runs one pass: the due pull and one bounded push read concurrently,
// then applies their results and evaluates the merged state.
func (s *Synchronizer) Tick(ctx context.Context) TickReport {
	var (
		report TickReport
		pullQ  domain.Quote
		pushQ  domain.Quote
		g      errgroup.Group
	)

	if s.pullDue() {
		s.lastPull = time.Now()
		g.Go(func() error {
			pullQ, report.Pulled = s.pullBranch(ctx)
			return nil
		})
	}
	g.Go(func() error {
		pushQ, report.Pushed, report.Reconnected = s.pushBranch(ctx)
		return nil
	})
	_ = g.Wait()

	if report.Pulled {
		s.state[pullQ.Venue] = pullQ
	}
	if report.Pushed {
		s.state[pushQ.Venue] = pushQ
	}
	if report.Pulled || report.Pushed {
		snap := s.state.Clone()
		s.published.Store(&snap)
	}

	report.Displayed, report.Opportunity = s.evaluate(ctx)
	return report
}

// Snapshot returns a copy of the latest merged state.
func (s *Synchronizer) Snapshot() domain.MarketState {
	return (*s.published.Load()).Clone()
}

// Opportunities returns how many opportunities have been detected.
func (s *Synchronizer) Opportunities() int64 {
	return s.opportunities.Load()
}

// PushState reports the push feed's connection state.
func (s *Synchronizer) PushState() feed.ConnState {
	return s.push.State()
}

func (s *Synchronizer) pullDue() bool {
	return s.lastPull.IsZero() || time.Since(s.lastPull) >= s.cfg.PollInterval
}

func (s *Synchronizer) pullBranch(ctx context.Context) (domain.Quote, bool) {
	pullCtx, cancel := context.WithTimeout(ctx, s.cfg.PullTimeout)
	defer cancel()

	q, err := s.pull.Fetch(pullCtx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "pull fetch failed, keeping previous quote",
				slog.String("venue", string(s.pull.Venue())),
				slog.String("error", err.Error()),
			)
		}
		return domain.Quote{}, false
	}
	q.Venue = s.pull.Venue()
	return q, true
}

func (s *Synchronizer) pushBranch(ctx context.Context) (q domain.Quote, ok, reconnected bool) {
	readCtx, cancel := context.WithTimeout(ctx, s.cfg.PushReadTimeout)
	q, err := s.push.ReadNext(readCtx)
	cancel()

	switch {
	case err == nil:
		q.Venue = s.push.Venue()
		return q, true, false
	case ctx.Err() != nil:
		return domain.Quote{}, false, false
	case errors.Is(err, context.DeadlineExceeded):
		return domain.Quote{}, false, false
	}

	s.logger.WarnContext(ctx, "push read failed, reconnecting",
		slog.String("venue", string(s.push.Venue())),
		slog.String("error", err.Error()),
	)
	connCtx, cancelConn := context.WithTimeout(ctx, s.cfg.ReconnectTimeout)
	defer cancelConn()
	if err := s.push.Connect(connCtx); err != nil {
		s.logger.ErrorContext(ctx, "push reconnect failed",
			slog.String("venue", string(s.push.Venue())),
			slog.String("error", err.Error()),
		)
		return domain.Quote{}, false, false
	}
	s.logger.InfoContext(ctx, "push feed reconnected", slog.String("venue", string(s.push.Venue())))
	return domain.Quote{}, false, true
}

// evaluate presents the state on its throttle and always presents a detected
// opportunity. Presentation is detached from ctx so a shutdown signal does
// not cut an evaluation short.
func (s *Synchronizer) evaluate(ctx context.Context) (bool, *domain.Opportunity) {
	a, b, ok := s.state.Pair(s.pull.Venue(), s.push.Venue())
	if !ok {
		return false, nil
	}
	pctx := context.WithoutCancel(ctx)
	snap := s.state.Clone()

	display := s.cfg.Verbose ||
		s.sinceDisplay >= s.cfg.DisplayEvery ||
		time.Since(s.lastDisplay) >= s.cfg.DisplayInterval
	if display {
		s.presenter.ShowState(pctx, snap)
		s.sinceDisplay = 0
		s.lastDisplay = time.Now()
	} else {
		s.sinceDisplay++
	}

	opp, found := arbitrage.Detect(a, b)
	if !found {
		return display, nil
	}
	s.opportunities.Add(1)
	if !display {
		s.presenter.ShowState(pctx, snap)
	}
	s.presenter.ShowOpportunity(pctx, opp, snap)
	return display, &opp
}
