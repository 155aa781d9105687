package recorder

import (
	"time"

	"CookieBroker/internal/model"
)

// CycleEvent summarises one scheduler cycle.
type CycleEvent struct {
	StartedAt time.Time
	Duration  time.Duration
	Buys      int
	Sells     int
	Balance   float64
	Paused    bool   // trading was paused, snapshot refreshed only
	Error     string // set when the cycle aborted
}

// TradeRow is a stored trade.
type TradeRow struct {
	ID string `json:"id"`
	model.Trade
}

// Recorder persists trading history for later analysis.
type Recorder interface {
	RecordTrade(trade *model.Trade) (string, error)
	RecordCycle(evt *CycleEvent) error
	RecordQuotes(at time.Time, stocks []model.Stock) error
	RecentTrades(limit int) ([]TradeRow, error)
	Close() error
}
