package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexusfeed/nexusfeed/internal/config"
	"github.com/nexusfeed/nexusfeed/internal/connector"
	"github.com/nexusfeed/nexusfeed/internal/model"
)

// fakeConnector serves a fixed ticker payload with a configurable delay and
// counts the fetches in flight at any instant.
type fakeConnector struct {
	id       string
	delay    time.Duration
	err      error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	fetches  atomic.Int32
}

func (f *fakeConnector) ID() string { return f.id }

func (f *fakeConnector) FetchTicker(ctx context.Context, symbol string) (connector.Payload, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	f.fetches.Add(1)

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return connector.Payload{"last": 100.0, "timestamp": time.Now().UnixMilli()}, nil
}

func (f *fakeConnector) FetchOrderBook(ctx context.Context, symbol string, depth int) (connector.Payload, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConnector) FetchTrades(ctx context.Context, symbol string, limit int) ([]connector.Payload, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConnector) FetchMarkets(ctx context.Context) ([]connector.Payload, error) {
	return nil, errors.New("not implemented")
}

// recordingSink captures resets and appends in call order.
type recordingSink struct {
	mu      sync.Mutex
	ops     []string
	appends map[string]int
	err     error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{appends: make(map[string]int)}
}

func (r *recordingSink) Reset(source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "reset:"+source)
	return nil
}

func (r *recordingSink) AppendTicker(rec model.Ticker) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.ops = append(r.ops, "append:"+rec.Source)
	r.appends[rec.Source+"/"+rec.Symbol]++
	return nil
}

func (r *recordingSink) opList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ops...)
}

func (r *recordingSink) appendCount(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appends[key]
}

func testScheduler(conns map[string]connector.Connector, snk *recordingSink, targets []model.PollTarget) *Scheduler {
	registry := connector.NewStaticRegistry(conns)
	cfg := Config{FetchTimeout: 2 * time.Second, PersistFailureEscalation: 3}
	return New(cfg, registry, snk, targets, nil, nil)
}

func TestSchedulerResetBeforeFirstAppend(t *testing.T) {
	fake := &fakeConnector{id: "sim"}
	snk := newRecordingSink()
	sched := testScheduler(
		map[string]connector.Connector{"sim": fake},
		snk,
		[]model.PollTarget{
			{Source: "sim", Symbol: "BTC/USDT", Interval: time.Hour},
			{Source: "sim", Symbol: "ETH/USDT", Interval: time.Hour},
		},
	)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop(ctx)

	waitFor(t, time.Second, func() bool {
		return snk.appendCount("sim/BTC/USDT") >= 1 && snk.appendCount("sim/ETH/USDT") >= 1
	})

	ops := snk.opList()
	if len(ops) == 0 || ops[0] != "reset:sim" {
		t.Fatalf("first op = %v, want reset:sim", ops)
	}
	resets := 0
	for i, op := range ops {
		if op == "reset:sim" {
			resets++
			if i != 0 {
				t.Errorf("reset at position %d, want only before appends", i)
			}
		}
	}
	if resets != 1 {
		t.Errorf("got %d resets for one source, want 1", resets)
	}
}

func TestSchedulerNoOverlapPerTarget(t *testing.T) {
	// Fetch takes four times the interval; ticks must queue, not stack.
	fake := &fakeConnector{id: "sim", delay: 80 * time.Millisecond}
	snk := newRecordingSink()
	sched := testScheduler(
		map[string]connector.Connector{"sim": fake},
		snk,
		[]model.PollTarget{{Source: "sim", Symbol: "BTC/USDT", Interval: 20 * time.Millisecond}},
	)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	time.Sleep(400 * time.Millisecond)
	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if max := fake.maxSeen.Load(); max > 1 {
		t.Errorf("max in-flight fetches = %d, want at most 1", max)
	}
	if n := fake.fetches.Load(); n < 2 {
		t.Errorf("got %d fetches, want the loop to keep ticking", n)
	}
}

func TestSchedulerFailureIsolation(t *testing.T) {
	good := &fakeConnector{id: "good"}
	bad := &fakeConnector{id: "bad", err: errors.New("vendor down")}
	snk := newRecordingSink()
	sched := testScheduler(
		map[string]connector.Connector{"good": good, "bad": bad},
		snk,
		[]model.PollTarget{
			{Source: "good", Symbol: "BTC/USDT", Interval: 20 * time.Millisecond},
			{Source: "bad", Symbol: "BTC/USDT", Interval: 20 * time.Millisecond},
		},
	)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop(ctx)

	waitFor(t, 2*time.Second, func() bool {
		return snk.appendCount("good/BTC/USDT") >= 3 && bad.fetches.Load() >= 3
	})

	if n := snk.appendCount("bad/BTC/USDT"); n != 0 {
		t.Errorf("failing source persisted %d records, want 0", n)
	}

	var badStatus *TargetStatus
	for _, st := range sched.Snapshot() {
		if st.Source == "bad" {
			cp := st
			badStatus = &cp
		}
	}
	if badStatus == nil {
		t.Fatal("no status for failing target")
	}
	if badStatus.Failures == 0 {
		t.Error("failing target reports zero failures")
	}
	if badStatus.LastError == "" {
		t.Error("failing target reports no last error")
	}
}

func TestSchedulerHandlerReceivesRecords(t *testing.T) {
	fake := &fakeConnector{id: "sim"}
	snk := newRecordingSink()
	registry := connector.NewStaticRegistry(map[string]connector.Connector{"sim": fake})

	var handled atomic.Int32
	handler := TickerHandlerFunc(func(rec model.Ticker) error {
		if rec.Source != "sim" || rec.Symbol != "BTC/USDT" {
			t.Errorf("handler got %s %s, want sim BTC/USDT", rec.Source, rec.Symbol)
		}
		handled.Add(1)
		return nil
	})

	sched := New(DefaultConfig(), registry, snk,
		[]model.PollTarget{{Source: "sim", Symbol: "BTC/USDT", Interval: time.Hour}},
		handler, nil)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer sched.Stop(ctx)

	waitFor(t, time.Second, func() bool { return handled.Load() >= 1 })
}

func TestSchedulerStopHaltsTicking(t *testing.T) {
	fake := &fakeConnector{id: "sim"}
	snk := newRecordingSink()
	sched := testScheduler(
		map[string]connector.Connector{"sim": fake},
		snk,
		[]model.PollTarget{{Source: "sim", Symbol: "BTC/USDT", Interval: 10 * time.Millisecond}},
	)

	ctx := context.Background()
	if err := sched.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	waitFor(t, time.Second, func() bool { return fake.fetches.Load() >= 2 })

	if err := sched.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	before := fake.fetches.Load()
	time.Sleep(60 * time.Millisecond)
	if after := fake.fetches.Load(); after != before {
		t.Errorf("fetches continued after Stop: %d -> %d", before, after)
	}
}

func TestBuildTargets(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sources.Symbols = map[string][]string{
		"binance_spot": {"BTC/USDT", "ETH/USDT"},
		"okx":          {"BTC/USDT"},
	}
	cfg.Sources.RefreshInterval = 5 * time.Second

	targets := BuildTargets(cfg)
	if len(targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(targets))
	}
	for _, tgt := range targets {
		if tgt.Interval != 5*time.Second {
			t.Errorf("target %s interval = %v, want 5s", tgt.Key(), tgt.Interval)
		}
	}
}

func TestBuildTargetsHonorsEnabledList(t *testing.T) {
	cfg := &config.Config{}
	cfg.Sources.Symbols = map[string][]string{
		"binance_spot": {"BTC/USDT"},
		"okx":          {"BTC/USDT"},
	}
	cfg.Sources.Enabled = []string{"okx"}
	cfg.Sources.RefreshInterval = time.Second

	targets := BuildTargets(cfg)
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(targets))
	}
	if targets[0].Source != "okx" {
		t.Errorf("Source = %q, want %q", targets[0].Source, "okx")
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
