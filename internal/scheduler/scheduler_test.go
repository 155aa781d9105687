package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"CookieBroker/internal/automation"
	"CookieBroker/internal/collector"
	"CookieBroker/internal/ledger"
	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
	"CookieBroker/internal/recorder"
	"CookieBroker/internal/strategy"
)

type stubTrader struct {
	err   error
	calls int
}

func (s *stubTrader) Buy(context.Context, model.Stock, int) error  { s.calls++; return s.err }
func (s *stubTrader) Sell(context.Context, model.Stock, int) error { s.calls++; return s.err }

type stubNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *stubNotifier) Send(_ context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *stubNotifier) SendWithRetry(ctx context.Context, text string, _ int) error {
	return n.Send(ctx, text)
}

type stubRecorder struct {
	recorder.NoopRecorder
	trades []model.Trade
	cycles []recorder.CycleEvent
	quotes int
}

func (r *stubRecorder) RecordTrade(t *model.Trade) (string, error) {
	r.trades = append(r.trades, *t)
	return fmt.Sprintf("t%d", len(r.trades)), nil
}

func (r *stubRecorder) RecordCycle(evt *recorder.CycleEvent) error {
	r.cycles = append(r.cycles, *evt)
	return nil
}

func (r *stubRecorder) RecordQuotes(_ time.Time, stocks []model.Stock) error {
	r.quotes += len(stocks)
	return nil
}

type stubPublisher struct {
	kinds []string
}

func (p *stubPublisher) Publish(kind string, _ any) { p.kinds = append(p.kinds, kind) }

// cheapCursorState has CRL at 8.5 against a resting value of 10, in slow rise.
func cheapCursorState() *model.GameState {
	fields := make([]string, market.StockCount)
	for i := range fields {
		fields[i] = fmt.Sprintf("%d:0:0:100:0", market.RestingValue(i, 1)*100)
	}
	fields[0] = "850:1:0:100:0"
	buildings := make(map[string]model.Building)
	for _, e := range market.Catalog {
		buildings[e.Building] = model.Building{Name: e.Building, Amount: 10, Level: 1}
	}
	return &model.GameState{
		MarketSave: "0:0:1:0:0 " + strings.Join(fields, "!") + "!",
		Buildings:  buildings,
		Cookies:    1e6,
		PeakCps:    10,
	}
}

type harness struct {
	sched  *Scheduler
	source *collector.MockSource
	trader *stubTrader
	notes  *stubNotifier
	rec    *stubRecorder
	events *stubPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		source: &collector.MockSource{State: cheapCursorState()},
		trader: &stubTrader{},
		notes:  &stubNotifier{},
		rec:    &stubRecorder{},
		events: &stubPublisher{},
	}
	led := ledger.New(t.TempDir() + "/ledger.json")
	mkt := market.NewMarket(strategy.Limits{BuyLimit: -10, SellLimit: 40}, h.trader, led)
	h.sched = NewScheduler(context.Background(), collector.NewCollector(h.source), mkt, led,
		automation.NewGate(), h.notes, h.rec, h.events,
		Intervals{Idle: 30 * time.Second, Active: 60 * time.Second})
	return h
}

func TestRunCycleTrades(t *testing.T) {
	h := newHarness(t)

	next := h.sched.RunCycle(context.Background())
	if next != 60*time.Second {
		t.Errorf("next = %v, want active interval", next)
	}
	if h.trader.calls != 1 {
		t.Errorf("trader calls = %d, want 1", h.trader.calls)
	}
	if len(h.rec.trades) != 1 || h.rec.trades[0].Symbol != "CRL" || h.rec.trades[0].Side != model.SideBuy {
		t.Errorf("recorded trades = %+v", h.rec.trades)
	}
	if h.rec.quotes != market.StockCount {
		t.Errorf("recorded %d quotes, want %d", h.rec.quotes, market.StockCount)
	}
	if len(h.rec.cycles) != 1 || h.rec.cycles[0].Buys != 1 {
		t.Errorf("recorded cycles = %+v", h.rec.cycles)
	}
	if len(h.notes.sent) != 1 || !strings.Contains(h.notes.sent[0], "Bought 20 CRL") {
		t.Errorf("notifications = %q", h.notes.sent)
	}
	if got := strings.Join(h.events.kinds, ","); got != "trade,cycle" {
		t.Errorf("events = %s, want trade,cycle", got)
	}
	if last := h.sched.LastCycle(); last.Buys != 1 || last.Next != next {
		t.Errorf("last cycle = %+v", last)
	}
}

func TestRunCyclePausedRefreshesOnly(t *testing.T) {
	h := newHarness(t)
	h.sched.Pause()

	next := h.sched.RunCycle(context.Background())
	if next != 30*time.Second {
		t.Errorf("next = %v, want idle interval", next)
	}
	if h.trader.calls != 0 {
		t.Errorf("trader called %d times while paused", h.trader.calls)
	}
	if h.source.Reads != 1 || !h.sched.Market.Status().Ready {
		t.Error("paused cycle should still refresh the market")
	}
	if !h.rec.cycles[0].Paused {
		t.Error("cycle not recorded as paused")
	}

	h.sched.Resume()
	h.sched.RunCycle(context.Background())
	if h.trader.calls != 1 {
		t.Errorf("trader calls after resume = %d, want 1", h.trader.calls)
	}
}

func TestRunCycleCollectFailureKeepsSnapshot(t *testing.T) {
	h := newHarness(t)
	h.sched.Pause()
	h.sched.RunCycle(context.Background())
	h.sched.Resume()

	h.source.Err = errors.New("save locked")
	next := h.sched.RunCycle(context.Background())
	if next != 30*time.Second {
		t.Errorf("next = %v, want idle interval", next)
	}
	if h.trader.calls != 0 {
		t.Error("evaluated despite failed refresh")
	}
	if last := h.sched.LastCycle(); !strings.Contains(last.Error, "save locked") {
		t.Errorf("cycle error = %q", last.Error)
	}
	if s, ok := h.sched.Market.GetStock("CRL"); !ok || s.Value != 8.5 {
		t.Errorf("snapshot lost: %+v", s)
	}
	if h.sched.Gate.Stopped() {
		t.Error("collect failure must not stop the bot")
	}
}

func TestRunStopsOnAutomationFailure(t *testing.T) {
	h := newHarness(t)
	h.trader.err = fmt.Errorf("%w: display gone", automation.ErrAutomationFailure)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := h.sched.Run(ctx)
	if !errors.Is(err, automation.ErrAutomationFailure) {
		t.Fatalf("Run error = %v, want ErrAutomationFailure", err)
	}
	if !h.sched.Gate.Stopped() {
		t.Error("gate not stopped")
	}
	if len(h.notes.sent) == 0 || !strings.Contains(h.notes.sent[len(h.notes.sent)-1], "Bot stopped") {
		t.Errorf("notifications = %q", h.notes.sent)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := h.sched.Run(ctx); err != nil {
		t.Errorf("Run = %v, want nil", err)
	}
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.sched.RunCycle(ctx)

	tests := []struct {
		cmd  string
		want string
	}{
		{"/status", "Portfolio"},
		{"/stocks", "CRL"},
		{"/ledger", "Open positions: 1"},
		{"/pause@CookieBrokerBot", "paused"},
		{"/status", "State: paused"},
		{"/RESUME", "resumed"},
		{"hello", "Commands:"},
	}
	for _, tt := range tests {
		if got := h.sched.HandleCommand(ctx, tt.cmd); !strings.Contains(got, tt.want) {
			t.Errorf("HandleCommand(%q) = %q, want it to contain %q", tt.cmd, got, tt.want)
		}
	}
	if h.sched.Paused() {
		t.Error("should be resumed")
	}
}

func TestRegisterSummary(t *testing.T) {
	h := newHarness(t)
	if err := h.sched.RegisterSummary(""); err != nil {
		t.Errorf("empty spec: %v", err)
	}
	if err := h.sched.RegisterSummary("0 0 * * * *"); err != nil {
		t.Errorf("valid spec: %v", err)
	}
	if err := h.sched.RegisterSummary("not a cron"); err == nil {
		t.Error("invalid spec should fail")
	}
	if n := len(h.sched.Cron.Entries()); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}
