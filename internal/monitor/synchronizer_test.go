package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/domain"
	"github.com/alanyoungcy/arbmonitor/internal/feed"
	"github.com/alanyoungcy/arbmonitor/internal/present"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePull struct {
	mu     sync.Mutex
	quotes []domain.Quote
	errs   []error
	calls  atomic.Int32
}

func (f *fakePull) Venue() domain.Venue { return domain.VenueKalshi }

// Fetch returns the next scripted result; the last one repeats.
func (f *fakePull) Fetch(ctx context.Context) (domain.Quote, error) {
	n := int(f.calls.Add(1)) - 1
	f.mu.Lock()
	defer f.mu.Unlock()
	if n >= len(f.quotes) {
		n = len(f.quotes) - 1
	}
	return f.quotes[n], f.errs[n]
}

type fakePush struct {
	quotes     chan domain.Quote
	readErr    atomic.Pointer[error]
	connectErr error
	connects   atomic.Int32
	closed     atomic.Bool
	state      atomic.Int32
}

func newFakePush() *fakePush {
	return &fakePush{quotes: make(chan domain.Quote, 8)}
}

func (f *fakePush) Venue() domain.Venue { return domain.VenuePolymarket }

func (f *fakePush) Connect(ctx context.Context) error {
	f.connects.Add(1)
	if f.connectErr != nil {
		return f.connectErr
	}
	f.state.Store(int32(feed.Connected))
	return nil
}

func (f *fakePush) ReadNext(ctx context.Context) (domain.Quote, error) {
	if p := f.readErr.Load(); p != nil {
		return domain.Quote{}, *p
	}
	select {
	case q := <-f.quotes:
		return q, nil
	case <-ctx.Done():
		return domain.Quote{}, ctx.Err()
	}
}

func (f *fakePush) State() feed.ConnState { return feed.ConnState(f.state.Load()) }

func (f *fakePush) Close() error {
	f.closed.Store(true)
	return nil
}

type event struct {
	kind string
	opp  domain.Opportunity
}

type recordingPresenter struct {
	mu     sync.Mutex
	events []event
}

func (r *recordingPresenter) ShowState(ctx context.Context, state domain.MarketState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "state"})
}

func (r *recordingPresenter) ShowOpportunity(ctx context.Context, opp domain.Opportunity, state domain.MarketState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{kind: "opportunity", opp: opp})
}

func (r *recordingPresenter) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.kind)
	}
	return out
}

func kalshiQuote(bid, ask float64) domain.Quote {
	return domain.Quote{Venue: domain.VenueKalshi, Instrument: "KX", BestBid: bid, BestAsk: ask}
}

func polyQuote(bid, ask float64) domain.Quote {
	return domain.Quote{Venue: domain.VenuePolymarket, Instrument: "A1", BestBid: bid, BestAsk: ask}
}

func testConfig() Config {
	return Config{
		PollInterval:     time.Nanosecond,
		PullTimeout:      time.Second,
		PushReadTimeout:  20 * time.Millisecond,
		ReconnectTimeout: time.Second,
		DisplayInterval:  time.Hour,
		DisplayEvery:     1000,
	}
}

func TestTick_SilentPushDoesNotBlockPull(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.state.Store(int32(feed.Connected))
	s := New(pull, push, &recordingPresenter{}, testConfig(), discardLogger())

	start := time.Now()
	rep := s.Tick(context.Background())
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("tick took %v with a silent push feed", elapsed)
	}
	if !rep.Pulled || rep.Pushed || rep.Reconnected {
		t.Fatalf("report=%+v", rep)
	}
	if push.connects.Load() != 0 {
		t.Fatalf("read timeout must not trigger reconnect")
	}
	if _, ok := s.Snapshot()[domain.VenueKalshi]; !ok {
		t.Fatalf("pull quote not applied")
	}
}

func TestTick_FailedPullKeepsPreviousQuote(t *testing.T) {
	pull := &fakePull{
		quotes: []domain.Quote{kalshiQuote(0.60, 0.62), {}},
		errs:   []error{nil, domain.ErrTransport},
	}
	push := newFakePush()
	s := New(pull, push, &recordingPresenter{}, testConfig(), discardLogger())
	push.readErr.Store(&context.DeadlineExceeded)

	s.Tick(context.Background())
	time.Sleep(time.Millisecond)
	rep := s.Tick(context.Background())
	if rep.Pulled {
		t.Fatalf("second pull should have failed")
	}
	if pull.calls.Load() != 2 {
		t.Fatalf("pull calls=%d want 2", pull.calls.Load())
	}
	q := s.Snapshot()[domain.VenueKalshi]
	if q.BestBid != 0.60 || q.BestAsk != 0.62 {
		t.Fatalf("stale quote lost: %+v", q)
	}
}

func TestTick_PullGatedByPollInterval(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.5, 0.6)}, errs: []error{nil}}
	push := newFakePush()
	push.readErr.Store(&context.DeadlineExceeded)
	cfg := testConfig()
	cfg.PollInterval = time.Hour
	s := New(pull, push, &recordingPresenter{}, cfg, discardLogger())

	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}
	if got := pull.calls.Load(); got != 1 {
		t.Fatalf("pull calls=%d want 1", got)
	}
}

func TestTick_PushFailureReconnectsOncePerTick(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.5, 0.6)}, errs: []error{nil}}
	push := newFakePush()
	readErr := errors.Join(domain.ErrTransport, io.EOF)
	push.readErr.Store(&readErr)
	push.connectErr = domain.ErrTransport
	s := New(pull, push, &recordingPresenter{}, testConfig(), discardLogger())

	for i := 0; i < 3; i++ {
		rep := s.Tick(context.Background())
		if rep.Reconnected {
			t.Fatalf("reconnect should have failed")
		}
	}
	if got := push.connects.Load(); got != 3 {
		t.Fatalf("connects=%d want 3", got)
	}
	if _, ok := s.Snapshot()[domain.VenueKalshi]; !ok {
		t.Fatalf("pull branch must keep working while push is down")
	}

	push.connectErr = nil
	if rep := s.Tick(context.Background()); !rep.Reconnected {
		t.Fatalf("expected successful reconnect, report=%+v", rep)
	}
}

func TestTick_OpportunityAlwaysPresented(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.quotes <- polyQuote(0.65, 0.63)
	presenter := &recordingPresenter{}
	s := New(pull, push, presenter, testConfig(), discardLogger())

	rep := s.Tick(context.Background())
	if rep.Opportunity == nil {
		t.Fatalf("expected opportunity")
	}
	opp := *rep.Opportunity
	if opp.BuyVenue != domain.VenueKalshi || opp.SellVenue != domain.VenuePolymarket || opp.BuyPrice != 0.62 || opp.SellPrice != 0.65 {
		t.Fatalf("opp=%+v", opp)
	}
	got := presenter.kinds()
	if len(got) != 2 || got[0] != "state" || got[1] != "opportunity" {
		t.Fatalf("presented=%v want [state opportunity]", got)
	}

	// The opportunity persists on the next tick even though the throttle
	// has not elapsed.
	s.Tick(context.Background())
	if got := presenter.kinds(); len(got) != 4 {
		t.Fatalf("presented=%v want 4 events", got)
	}
	if s.Opportunities() != 2 {
		t.Fatalf("opportunities=%d want 2", s.Opportunities())
	}
}

func TestTick_NoOpportunityScenario(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.quotes <- polyQuote(0.61, 0.63)
	presenter := &recordingPresenter{}
	s := New(pull, push, presenter, testConfig(), discardLogger())

	if rep := s.Tick(context.Background()); rep.Opportunity != nil {
		t.Fatalf("unexpected opportunity %+v", rep.Opportunity)
	}
	if got := presenter.kinds(); len(got) != 0 {
		t.Fatalf("throttled state should not be shown, got %v", got)
	}
}

func TestTick_NoCrossingWithinSpreads(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.50, 0.55)}, errs: []error{nil}}
	push := newFakePush()
	push.quotes <- polyQuote(0.48, 0.52)
	presenter := &recordingPresenter{}
	s := New(pull, push, presenter, testConfig(), discardLogger())

	rep := s.Tick(context.Background())
	if !rep.Pulled || !rep.Pushed {
		t.Fatalf("report=%+v", rep)
	}
	if rep.Opportunity != nil || s.Opportunities() != 0 {
		t.Fatalf("unexpected opportunity %+v", rep.Opportunity)
	}
}

// hungBus blocks every call until the caller's context ends.
type hungBus struct{}

func (hungBus) Publish(ctx context.Context, _ string, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func (hungBus) Subscribe(ctx context.Context, _ string) (<-chan []byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (hungBus) StreamAppend(ctx context.Context, _ string, _ []byte) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTick_HungBusDoesNotStretchTick(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.quotes <- polyQuote(0.65, 0.63)
	bus := present.NewQueuedSink("bus", present.NewBusSink(nil, hungBus{}, discardLogger()), 4, discardLogger())
	defer bus.Close()
	presenter := &recordingPresenter{}
	cfg := testConfig()
	cfg.Verbose = true
	s := New(pull, push, present.Fanout{presenter, bus}, cfg, discardLogger())

	for i := 0; i < 3; i++ {
		start := time.Now()
		rep := s.Tick(context.Background())
		if d := time.Since(start); d > 500*time.Millisecond {
			t.Fatalf("tick %d took %v with a hung bus", i, d)
		}
		if rep.Opportunity == nil {
			t.Fatalf("tick %d: expected opportunity", i)
		}
	}
	if got := presenter.kinds(); len(got) != 6 {
		t.Fatalf("presented=%v want 6 events", got)
	}
}

func TestTick_StateThrottle(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.quotes <- polyQuote(0.61, 0.63)
	presenter := &recordingPresenter{}
	cfg := testConfig()
	cfg.PollInterval = time.Hour
	cfg.DisplayEvery = 3
	s := New(pull, push, presenter, cfg, discardLogger())

	var shown int
	for i := 0; i < 4; i++ {
		if s.Tick(context.Background()).Displayed {
			shown++
		}
	}
	if shown != 1 {
		t.Fatalf("state shown %d times in 4 ticks, want 1", shown)
	}

	cfg.Verbose = true
	pull2 := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push2 := newFakePush()
	push2.quotes <- polyQuote(0.61, 0.63)
	verbose := &recordingPresenter{}
	s = New(pull2, push2, verbose, cfg, discardLogger())
	for i := 0; i < 3; i++ {
		s.Tick(context.Background())
	}
	if got := verbose.kinds(); len(got) != 3 {
		t.Fatalf("verbose presented=%v want 3 states", got)
	}
}

func TestTick_NothingEvaluatedUntilBothVenuesPresent(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{{}}, errs: []error{domain.ErrAuth}}
	push := newFakePush()
	push.quotes <- polyQuote(0.65, 0.63)
	presenter := &recordingPresenter{}
	cfg := testConfig()
	cfg.Verbose = true
	s := New(pull, push, presenter, cfg, discardLogger())

	rep := s.Tick(context.Background())
	if !rep.Pushed || rep.Displayed || rep.Opportunity != nil {
		t.Fatalf("report=%+v", rep)
	}
	if len(presenter.kinds()) != 0 {
		t.Fatalf("presenter should not be called with one venue")
	}
}

func TestRun_InitialConnectFailureIsNotFatal(t *testing.T) {
	pull := &fakePull{quotes: []domain.Quote{kalshiQuote(0.60, 0.62)}, errs: []error{nil}}
	push := newFakePush()
	push.connectErr = domain.ErrTransport
	readErr := errors.Join(domain.ErrTransport, domain.ErrNotConnected)
	push.readErr.Store(&readErr)
	cfg := testConfig()
	cfg.TickDelay = time.Millisecond
	s := New(pull, push, &recordingPresenter{}, cfg, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for push.connects.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err=%v want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
	if push.connects.Load() < 3 {
		t.Fatalf("connects=%d, loop did not keep retrying", push.connects.Load())
	}
	if !push.closed.Load() {
		t.Fatalf("push feed not closed on shutdown")
	}
	if _, ok := s.Snapshot()[domain.VenueKalshi]; !ok {
		t.Fatalf("pull quotes should flow while push is down")
	}
}
