package market

import (
	"context"
	"fmt"
	"log"

	"CookieBroker/internal/model"
	"CookieBroker/internal/strategy"
)

// Decision is what the policy would do with one stock right now.
type Decision struct {
	Stock       model.Stock     `json:"stock"`
	Action      strategy.Action `json:"-"`
	ActionName  string          `json:"action"`
	RestingDiff float64         `json:"resting_diff"`
	Amount      int             `json:"amount"` // units to buy or sell; 0 on hold
}

// Plan evaluates the policy without trading.
func (m *Market) Plan() []Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()

	quotes := m.quotes()
	out := make([]Decision, 0, len(quotes))
	for _, q := range quotes {
		d := Decision{Stock: *q.Stock, RestingDiff: q.RestingDiff}
		if m.ready {
			d.Action = strategy.Decide(q, m.limits)
		}
		switch d.Action {
		case strategy.Buy:
			d.Amount = m.amountCanPurchase(q.Stock)
		case strategy.Sell:
			d.Amount = q.Stock.Held
		}
		d.ActionName = d.Action.String()
		out = append(out, d)
	}
	return out
}

// quotes must be called with m.mu held.
func (m *Market) quotes() []strategy.Quote {
	hardCap := HardCap(m.bankLevel)
	out := make([]strategy.Quote, 0, StockCount)
	for _, e := range Catalog {
		s := m.stocks[e.Slot]
		out = append(out, strategy.Quote{Stock: s, RestingDiff: RestingDiff(s), HardCap: hardCap})
	}
	return out
}

// EvaluateStocks runs one trading pass and returns buys minus sells.
func (m *Market) EvaluateStocks(ctx context.Context) (int, error) {
	res, err := m.Evaluate(ctx)
	return res.Net(), err
}

// Evaluate runs one trading pass: all buys, then all sells. Candidates are
// fixed before any trade executes. A trader failure stops the pass and is
// returned with the trades completed so far.
func (m *Market) Evaluate(ctx context.Context) (*model.CycleResult, error) {
	m.mu.RLock()
	if !m.ready {
		m.mu.RUnlock()
		return &model.CycleResult{}, nil
	}
	buys, sells := strategy.Partition(m.quotes(), m.limits)
	buyIDs := stockIDs(buys)
	sellIDs := stockIDs(sells)
	m.mu.RUnlock()

	res := &model.CycleResult{}
	for _, id := range buyIDs {
		if err := ctx.Err(); err != nil {
			res.Balance = m.Balance()
			return res, err
		}
		t, ok, err := m.buy(ctx, id)
		if err != nil {
			res.Balance = m.Balance()
			return res, err
		}
		if ok {
			res.Buys = append(res.Buys, t)
		}
	}
	for _, id := range sellIDs {
		if err := ctx.Err(); err != nil {
			res.Balance = m.Balance()
			return res, err
		}
		t, err := m.sell(ctx, id)
		if err != nil {
			res.Balance = m.Balance()
			return res, err
		}
		res.Sells = append(res.Sells, t)
	}
	res.Balance = m.Balance()
	return res, nil
}

func stockIDs(qs []strategy.Quote) []int {
	ids := make([]int, len(qs))
	for i, q := range qs {
		ids[i] = q.Stock.ID
	}
	return ids
}

func (m *Market) buy(ctx context.Context, id int) (model.Trade, bool, error) {
	m.mu.RLock()
	s := *m.stocks[id]
	amount := m.amountCanPurchase(&s)
	cost := m.buyPriceRaw(&s, amount)
	m.mu.RUnlock()

	diff := RestingDiff(&s)
	if amount == 0 {
		log.Printf("[INFO] %s is a buy at %+.2f%% but the balance covers no units", s.Symbol, diff)
		return model.Trade{}, false, nil
	}

	if err := m.trader.Buy(ctx, s, amount); err != nil {
		return model.Trade{}, false, fmt.Errorf("buy %d %s: %w", amount, s.Symbol, err)
	}
	if err := m.ledger.RecordPurchase(&s, amount, cost); err != nil {
		log.Printf("[ERROR] ledger purchase %s: %v", s.Symbol, err)
	}

	m.mu.Lock()
	cur := m.stocks[id]
	cur.Held = amount
	cur.BoughtFor = cost
	m.balance -= cost
	m.mu.Unlock()

	log.Printf("[INFO] bought %d %s at $%.2f (%+.2f%% from resting, %s) for %.0f cookies",
		amount, s.Symbol, s.Value, diff, s.Mode, cost)
	return model.Trade{
		Side:        model.SideBuy,
		StockID:     id,
		Symbol:      s.Symbol,
		Amount:      amount,
		Value:       s.Value,
		Cookies:     cost,
		RestingDiff: diff,
		Mode:        s.Mode,
		ExecutedAt:  m.now(),
	}, true, nil
}

func (m *Market) sell(ctx context.Context, id int) (model.Trade, error) {
	m.mu.RLock()
	s := *m.stocks[id]
	proceeds := m.salePriceRaw(&s, s.Held)
	m.mu.RUnlock()

	diff := RestingDiff(&s)
	if err := m.trader.Sell(ctx, s, s.Held); err != nil {
		return model.Trade{}, fmt.Errorf("sell %d %s: %w", s.Held, s.Symbol, err)
	}
	matched, err := m.ledger.RecordSale(&s, proceeds)
	if err != nil {
		log.Printf("[ERROR] ledger sale %s: %v", s.Symbol, err)
	}

	t := model.Trade{
		Side:        model.SideSell,
		StockID:     id,
		Symbol:      s.Symbol,
		Amount:      s.Held,
		Value:       s.Value,
		Cookies:     proceeds,
		RestingDiff: diff,
		Mode:        s.Mode,
		ExecutedAt:  m.now(),
	}

	m.mu.Lock()
	cur := m.stocks[id]
	basis := cur.BoughtFor
	if basis == 0 && matched != nil {
		basis = matched.PurchasedFor
	}
	if basis > 0 {
		t.CostBasis = basis
		t.Profit = proceeds - basis
		cur.LifetimeEarnings += t.Profit
	}
	cur.SoldFor = proceeds
	cur.BoughtFor = 0
	cur.Held = 0
	m.balance += proceeds
	m.mu.Unlock()

	if basis > 0 {
		log.Printf("[INFO] sold %d %s at $%.2f (%+.2f%% from resting, %s) for %.0f cookies, profit %.0f",
			t.Amount, s.Symbol, s.Value, diff, s.Mode, proceeds, t.Profit)
	} else {
		log.Printf("[INFO] sold %d %s at $%.2f (%+.2f%% from resting, %s) for %.0f cookies, no cost basis",
			t.Amount, s.Symbol, s.Value, diff, s.Mode, proceeds)
	}
	return t, nil
}
