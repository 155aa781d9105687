package market

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"CookieBroker/internal/model"
	"CookieBroker/internal/strategy"
)

// Trader executes a decided trade on screen.
type Trader interface {
	Buy(ctx context.Context, s model.Stock, amount int) error
	Sell(ctx context.Context, s model.Stock, amount int) error
}

// Ledger persists open positions and closed trades.
type Ledger interface {
	RecordPurchase(s *model.Stock, quantity int, cost float64) error
	// RecordSale returns the open position it reconciled against, or nil.
	RecordSale(s *model.Stock, proceeds float64) (*model.OpenPosition, error)
}

// Snapshot is one fully parsed market save.
type Snapshot struct {
	OfficeLevel int
	Brokers     int
	BankLevel   int
	Stocks      []*model.Stock // catalog order
}

// LoadStocks rebuilds every stock from scratch. It has no side effects; any
// error means the whole snapshot is unusable.
func LoadStocks(raw string, buildings map[string]model.Building) (*Snapshot, error) {
	rm, err := parseMarketSave(raw)
	if err != nil {
		return nil, err
	}
	bank, ok := buildings["bank"]
	if !ok {
		return nil, fmt.Errorf("%w: no bank building in save", ErrUnknownCommodity)
	}

	snap := &Snapshot{
		OfficeLevel: rm.OfficeLevel,
		Brokers:     rm.Brokers,
		BankLevel:   bank.Level,
		Stocks:      make([]*model.Stock, 0, StockCount),
	}
	for _, entry := range Catalog {
		b, ok := buildings[entry.Building]
		if !ok {
			return nil, fmt.Errorf("%w: no %q building in save", ErrUnknownCommodity, entry.Building)
		}
		s, err := NewStock(b, bank.Level, rm.OfficeLevel, rm.Stocks[entry.Slot])
		if err != nil {
			return nil, err
		}
		snap.Stocks = append(snap.Stocks, s)
	}
	return snap, nil
}

// Status is a read-only summary of the market.
type Status struct {
	Ready            bool      `json:"ready"`
	OfficeLevel      int       `json:"office_level"`
	Brokers          int       `json:"brokers"`
	BankLevel        int       `json:"bank_level"`
	Balance          float64   `json:"balance"`
	PeakCps          float64   `json:"peak_cps"`
	HardCap          float64   `json:"hard_cap"`
	Holdings         int       `json:"holdings"`
	LifetimeEarnings float64   `json:"lifetime_earnings"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Market owns the stocks and runs the trading policy against them.
type Market struct {
	mu sync.RWMutex

	officeLevel int
	brokers     int
	bankLevel   int
	balance     float64
	peakCps     float64
	updatedAt   time.Time
	ready       bool

	// Keyed by slot; entries live for the process lifetime so bookkeeping survives refreshes.
	stocks map[int]*model.Stock

	limits strategy.Limits
	trader Trader
	ledger Ledger
	now    func() time.Time
}

// NewMarket creates a market with one empty stock per catalog entry.
func NewMarket(limits strategy.Limits, trader Trader, ledger Ledger) *Market {
	m := &Market{
		stocks: make(map[int]*model.Stock, StockCount),
		limits: limits,
		trader: trader,
		ledger: ledger,
		now:    time.Now,
	}
	for _, e := range Catalog {
		m.stocks[e.Slot] = &model.Stock{ID: e.Slot, Symbol: e.Symbol, Name: e.Name}
	}
	return m
}

// UpdateStocks applies a fresh save to the existing stocks. Only fields the
// save owns are overwritten. On error nothing changes.
func (m *Market) UpdateStocks(state *model.GameState) error {
	snap, err := LoadStocks(state.MarketSave, state.Buildings)
	if err != nil {
		return fmt.Errorf("load stocks: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.officeLevel = snap.OfficeLevel
	m.brokers = snap.Brokers
	m.bankLevel = snap.BankLevel
	m.balance = state.Cookies
	m.peakCps = state.PeakCps
	m.updatedAt = m.now()
	m.ready = true

	for _, fresh := range snap.Stocks {
		cur := m.stocks[fresh.ID]
		cur.Value = fresh.Value
		cur.Mode = fresh.Mode
		cur.ModeDuration = fresh.ModeDuration
		cur.Delta = fresh.Delta
		cur.Held = fresh.Held
		cur.Capacity = fresh.Capacity
		cur.RestingValue = fresh.RestingValue
		if cur.Held == 0 && cur.BoughtFor != 0 {
			log.Printf("[WARN] %s shows no holdings but has cost basis %.0f; save may be stale or a sale went unrecorded",
				cur.Symbol, cur.BoughtFor)
		}
	}
	return nil
}

// Restore seeds bookkeeping from the ledger after a restart.
// openBySymbol carries the cost basis of positions still open; earnings the realised profit per symbol.
func (m *Market) Restore(openBySymbol map[string]model.OpenPosition, earnings map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.stocks {
		if pos, ok := openBySymbol[s.Symbol]; ok {
			s.BoughtFor = pos.PurchasedFor
		}
		s.LifetimeEarnings = earnings[s.Symbol]
	}
}

// GetStock looks a stock up by symbol.
func (m *Market) GetStock(symbol string) (model.Stock, bool) {
	entry, ok := BySymbol(symbol)
	if !ok {
		return model.Stock{}, false
	}
	return m.GetStockByID(entry.Slot)
}

// GetStockByID looks a stock up by slot.
func (m *Market) GetStockByID(id int) (model.Stock, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stocks[id]
	if !ok {
		return model.Stock{}, false
	}
	return *s, true
}

// Stocks returns copies of all stocks in slot order.
func (m *Market) Stocks() []model.Stock {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Stock, 0, len(m.stocks))
	for _, s := range m.stocks {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Status summarises the current market.
func (m *Market) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Status{
		Ready:       m.ready,
		OfficeLevel: m.officeLevel,
		Brokers:     m.brokers,
		BankLevel:   m.bankLevel,
		Balance:     m.balance,
		PeakCps:     m.peakCps,
		HardCap:     HardCap(m.bankLevel),
		UpdatedAt:   m.updatedAt,
	}
	for _, s := range m.stocks {
		if s.Held > 0 {
			st.Holdings++
		}
		st.LifetimeEarnings += s.LifetimeEarnings
	}
	return st
}

// Balance is the spendable cookie balance as last read or adjusted by trades.
func (m *Market) Balance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}
