package recorder

import (
	"time"

	"CookieBroker/internal/model"
)

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordTrade(_ *model.Trade) (string, error)      { return "", nil }
func (n *NoopRecorder) RecordCycle(_ *CycleEvent) error                 { return nil }
func (n *NoopRecorder) RecordQuotes(_ time.Time, _ []model.Stock) error { return nil }
func (n *NoopRecorder) RecentTrades(_ int) ([]TradeRow, error)          { return nil, nil }
func (n *NoopRecorder) Close() error                                    { return nil }
