package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"CookieBroker/internal/automation"
	"CookieBroker/internal/collector"
	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
	"CookieBroker/internal/notifier"
	"CookieBroker/internal/recorder"

	"github.com/robfig/cron/v3"
)

// Publisher receives live events, e.g. the websocket hub.
type Publisher interface {
	Publish(kind string, payload any)
}

// LedgerReader exposes the persisted ledger for commands.
type LedgerReader interface {
	Document() *model.LedgerDocument
}

// Intervals sets the cycle cadence.
type Intervals struct {
	Idle   time.Duration // after a cycle with zero net activity
	Active time.Duration // after a cycle that changed holdings
}

// CycleSummary is published after every cycle.
type CycleSummary struct {
	StartedAt time.Time     `json:"started_at"`
	Buys      int           `json:"buys"`
	Sells     int           `json:"sells"`
	Balance   float64       `json:"balance"`
	Paused    bool          `json:"paused"`
	Next      time.Duration `json:"next_ns"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler runs trading cycles and the cron jobs around them.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Market    *market.Market
	Ledger    LedgerReader
	Gate      *automation.Gate
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Events    Publisher

	intervals Intervals
	mu        sync.Mutex
	paused    bool
	lastCycle CycleSummary
	ctx       context.Context
}

// NewScheduler wires a scheduler. Events may be nil.
func NewScheduler(ctx context.Context, col *collector.Collector, mkt *market.Market, led LedgerReader,
	gate *automation.Gate, n notifier.Notifier, rec recorder.Recorder, events Publisher, iv Intervals) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Market:    mkt,
		Ledger:    led,
		Gate:      gate,
		Notifier:  n,
		Recorder:  rec,
		Events:    events,
		intervals: iv,
		ctx:       ctx,
	}
}

// RegisterSummary schedules the portfolio summary message.
func (s *Scheduler) RegisterSummary(spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.Cron.AddFunc(spec, s.summaryTask); err != nil {
		return fmt.Errorf("register summary task: %w", err)
	}
	return nil
}

// Run executes cycles until ctx is done or the gate is stopped. It returns
// the gate's stop error, if any.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
	defer func() {
		<-s.Cron.Stop().Done()
		log.Println("[INFO] scheduler stopped")
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if s.Gate.Stopped() {
			return s.Gate.Err()
		}
		next := s.RunCycle(ctx)
		if s.Gate.Stopped() {
			return s.Gate.Err()
		}
		timer.Reset(next)
	}
}

// RunCycle refreshes the market from the save and, unless paused, trades.
// It returns the delay before the next cycle.
func (s *Scheduler) RunCycle(ctx context.Context) time.Duration {
	sum := CycleSummary{StartedAt: time.Now(), Paused: s.Paused()}
	var res *model.CycleResult

	err := s.Gate.Exclusive(ctx, func(ctx context.Context) error {
		state, err := s.Collector.Collect()
		if err != nil {
			return fmt.Errorf("collect: %w", err)
		}
		if err := s.Market.UpdateStocks(state); err != nil {
			return fmt.Errorf("update stocks: %w", err)
		}
		if sum.Paused {
			return nil
		}
		res, err = s.Market.Evaluate(ctx)
		return err
	})

	if res != nil {
		sum.Buys, sum.Sells = len(res.Buys), len(res.Sells)
		s.afterTrades(res)
	}
	sum.Balance = s.Market.Balance()
	if err != nil {
		sum.Error = err.Error()
		s.handleCycleError(err)
	}
	if s.Market.Status().Ready {
		if err := s.Recorder.RecordQuotes(sum.StartedAt, s.Market.Stocks()); err != nil {
			log.Printf("[ERROR] record quotes: %v", err)
		}
	}

	sum.Next = s.intervals.Idle
	if res.Net() != 0 {
		sum.Next = s.intervals.Active
	}
	if err := s.Recorder.RecordCycle(&recorder.CycleEvent{
		StartedAt: sum.StartedAt,
		Duration:  time.Since(sum.StartedAt),
		Buys:      sum.Buys,
		Sells:     sum.Sells,
		Balance:   sum.Balance,
		Paused:    sum.Paused,
		Error:     sum.Error,
	}); err != nil {
		log.Printf("[ERROR] record cycle: %v", err)
	}

	s.mu.Lock()
	s.lastCycle = sum
	s.mu.Unlock()
	s.publish("cycle", sum)
	log.Printf("[INFO] cycle done: %d buys, %d sells, next in %v", sum.Buys, sum.Sells, sum.Next)
	return sum.Next
}

func (s *Scheduler) afterTrades(res *model.CycleResult) {
	trades := res.Trades()
	if len(trades) == 0 {
		return
	}
	for i := range trades {
		id, err := s.Recorder.RecordTrade(&trades[i])
		if err != nil {
			log.Printf("[ERROR] record trade: %v", err)
		}
		s.publish("trade", recorder.TradeRow{ID: id, Trade: trades[i]})
	}
	s.trySend(notifier.FormatTradeReport(res, time.Now()))
}

func (s *Scheduler) handleCycleError(err error) {
	switch {
	case errors.Is(err, automation.ErrAutomationFailure):
		log.Printf("[FATAL] automation failed, stopping: %v", err)
		s.Gate.Stop(err)
		s.trySend(fmt.Sprintf("🛑 <b>Bot stopped</b>\n\n%v", err))
	case errors.Is(err, market.ErrMalformedSaveField), errors.Is(err, market.ErrUnknownCommodity):
		log.Printf("[WARN] keeping last market snapshot: %v", err)
	case errors.Is(err, context.Canceled):
		log.Printf("[INFO] cycle cancelled")
	default:
		log.Printf("[ERROR] cycle failed: %v", err)
	}
}

// Pause stops trading; cycles keep refreshing the snapshot.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.paused {
		log.Println("[INFO] trading paused")
	}
	s.paused = true
}

func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		log.Println("[INFO] trading resumed")
	}
	s.paused = false
}

func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// LastCycle returns the summary of the most recent cycle.
func (s *Scheduler) LastCycle() CycleSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastCycle
}

func (s *Scheduler) summaryTask() {
	log.Println("[INFO] running summary task")
	s.trySend(s.statusText())
}

func (s *Scheduler) statusText() string {
	var holdings []model.Stock
	for _, st := range s.Market.Stocks() {
		if st.Held > 0 {
			holdings = append(holdings, st)
		}
	}
	return notifier.FormatStatus(s.Market.Status(), holdings, s.Paused())
}

// HandleCommand answers a chat command.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/status":
		return s.statusText()
	case "/stocks":
		return notifier.FormatStocks(s.Market.Plan())
	case "/ledger":
		return notifier.FormatLedger(s.Ledger.Document())
	case "/pause":
		s.Pause()
		return "⏸ Trading paused."
	case "/resume":
		s.Resume()
		return "▶️ Trading resumed."
	default:
		return "Commands:\n/status\n/stocks\n/ledger\n/pause\n/resume"
	}
}

func (s *Scheduler) publish(kind string, payload any) {
	if s.Events != nil {
		s.Events.Publish(kind, payload)
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
