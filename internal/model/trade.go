package model

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is one executed buy or sell.
type Trade struct {
	Side        Side      `json:"side"`
	StockID     int       `json:"stock_id"`
	Symbol      string    `json:"symbol"`
	Amount      int       `json:"amount"`
	Value       float64   `json:"value"`        // unit price at execution, in seconds of CpS
	Cookies     float64   `json:"cookies"`      // cost of a buy or proceeds of a sale
	RestingDiff float64   `json:"resting_diff"` // percent from resting value
	Mode        Mode      `json:"mode"`
	CostBasis   float64   `json:"cost_basis,omitempty"`
	Profit      float64   `json:"profit,omitempty"`
	ExecutedAt  time.Time `json:"executed_at"`
}

// CycleResult summarises one evaluation pass.
type CycleResult struct {
	Buys    []Trade
	Sells   []Trade
	Balance float64 // spendable cookies after the cycle
}

// Net is buys minus sells; zero means nothing changed on balance.
func (r *CycleResult) Net() int {
	if r == nil {
		return 0
	}
	return len(r.Buys) - len(r.Sells)
}

// Trades returns buys followed by sells, the order they were executed.
func (r *CycleResult) Trades() []Trade {
	if r == nil {
		return nil
	}
	out := make([]Trade, 0, len(r.Buys)+len(r.Sells))
	out = append(out, r.Buys...)
	return append(out, r.Sells...)
}
