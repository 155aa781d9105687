package strategy

import "CookieBroker/internal/model"

// Action is what the policy wants done with a stock this cycle.
type Action int

const (
	Hold Action = iota
	Buy
	Sell
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Limits are the user-tuned resting-diff thresholds, in percent.
type Limits struct {
	BuyLimit  float64 // buy at or below this, typically negative
	SellLimit float64 // sell at or above this, typically positive
}

// Quote is a stock together with the derived signals the policy reads.
type Quote struct {
	Stock       *model.Stock
	RestingDiff float64
	HardCap     float64
}

// Decide maps one quote to an action. Buy requires an empty position and sell
// a non-empty one, so a stock can never be both in the same cycle.
func Decide(q Quote, l Limits) Action {
	switch {
	case shouldBuy(q, l):
		return Buy
	case shouldSell(q, l):
		return Sell
	default:
		return Hold
	}
}

// Partition splits quotes into buy and sell candidates, preserving input order.
func Partition(quotes []Quote, l Limits) (buys, sells []Quote) {
	for _, q := range quotes {
		switch Decide(q, l) {
		case Buy:
			buys = append(buys, q)
		case Sell:
			sells = append(sells, q)
		}
	}
	return buys, sells
}
