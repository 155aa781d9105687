package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"CookieBroker/internal/model"
	"CookieBroker/internal/strategy"
)

type fakeTrader struct {
	buys, sells []string
	failOn      string
}

func (f *fakeTrader) Buy(_ context.Context, s model.Stock, amount int) error {
	if f.failOn == s.Symbol {
		return errors.New("click failed")
	}
	f.buys = append(f.buys, fmt.Sprintf("%s:%d", s.Symbol, amount))
	return nil
}

func (f *fakeTrader) Sell(_ context.Context, s model.Stock, amount int) error {
	if f.failOn == s.Symbol {
		return errors.New("click failed")
	}
	f.sells = append(f.sells, fmt.Sprintf("%s:%d", s.Symbol, amount))
	return nil
}

type fakeLedger struct {
	open      map[string]model.OpenPosition
	purchases int
	sales     int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{open: make(map[string]model.OpenPosition)}
}

func (f *fakeLedger) RecordPurchase(s *model.Stock, qty int, cost float64) error {
	f.purchases++
	f.open[s.Symbol] = model.OpenPosition{Amount: qty, PurchasedFor: cost, Symbol: s.Symbol, Value: s.Value}
	return nil
}

func (f *fakeLedger) RecordSale(s *model.Stock, _ float64) (*model.OpenPosition, error) {
	f.sales++
	pos, ok := f.open[s.Symbol]
	if !ok {
		return nil, nil
	}
	delete(f.open, s.Symbol)
	return &pos, nil
}

// marketState builds a save where every stock sits at its resting value with
// nothing held, then applies overrides keyed by slot.
func marketState(bankLevel int, overrides map[int]string) *model.GameState {
	fields := make([]string, StockCount)
	for i := range fields {
		resting := RestingValue(i, bankLevel)
		fields[i] = fmt.Sprintf("%d:0:0:100:0", resting*100)
		if o, ok := overrides[i]; ok {
			fields[i] = o
		}
	}
	buildings := make(map[string]model.Building, StockCount)
	for _, e := range Catalog {
		buildings[e.Building] = model.Building{Name: e.Building, Amount: 10, Level: 1}
	}
	bank := buildings["bank"]
	bank.Level = bankLevel
	buildings["bank"] = bank
	return &model.GameState{
		MarketSave: "0:0:1:0:0 " + strings.Join(fields, "!") + "!",
		Buildings:  buildings,
		Cookies:    1e6,
		PeakCps:    10,
	}
}

func newTestMarket(t *testing.T, state *model.GameState) (*Market, *fakeTrader, *fakeLedger) {
	t.Helper()
	tr := &fakeTrader{}
	led := newFakeLedger()
	m := NewMarket(strategy.Limits{BuyLimit: -10, SellLimit: 40}, tr, led)
	if err := m.UpdateStocks(state); err != nil {
		t.Fatalf("update stocks: %v", err)
	}
	return m, tr, led
}

func TestLoadStocks_HeldWithinCapacity(t *testing.T) {
	st := marketState(1, map[int]string{2: "3000:0:0:10:500", 5: "6000:1:0:10:7"})
	snap, err := LoadStocks(st.MarketSave, st.Buildings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Stocks) != StockCount {
		t.Fatalf("expected %d stocks, got %d", StockCount, len(snap.Stocks))
	}
	for i, s := range snap.Stocks {
		if s.ID != i {
			t.Errorf("stock %d out of order: id %d", i, s.ID)
		}
		if s.Held < 0 || s.Held > s.Capacity {
			t.Errorf("%s: held %d outside [0,%d]", s.Symbol, s.Held, s.Capacity)
		}
	}
	if snap.Stocks[5].Held != 7 || snap.Stocks[5].Mode != model.ModeSlowRise {
		t.Errorf("SLT fields not parsed: %+v", snap.Stocks[5])
	}
}

func TestLoadStocks_RestingValue(t *testing.T) {
	st := marketState(5, nil)
	snap, err := LoadStocks(st.MarketSave, st.Buildings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := snap.Stocks[0].RestingValue; got != 14 {
		t.Errorf("CRL resting at bank 5: expected 14, got %d", got)
	}
	if got := snap.Stocks[15].RestingValue; got != 164 {
		t.Errorf("SBD resting at bank 5: expected 164, got %d", got)
	}
}

func TestLoadStocks_Errors(t *testing.T) {
	tests := []struct {
		name  string
		state func() *model.GameState
		want  error
	}{
		{"bad value", func() *model.GameState { return marketState(1, map[int]string{3: "abc:0:0:1:0"}) }, ErrMalformedSaveField},
		{"bad mode", func() *model.GameState { return marketState(1, map[int]string{3: "1000:9:0:1:0"}) }, ErrMalformedSaveField},
		{"negative held", func() *model.GameState { return marketState(1, map[int]string{3: "1000:0:0:1:-2"}) }, ErrMalformedSaveField},
		{"short fields", func() *model.GameState { return marketState(1, map[int]string{3: "1000:0"}) }, ErrMalformedSaveField},
		{"no stock section", func() *model.GameState {
			st := marketState(1, nil)
			st.MarketSave = "1:2"
			return st
		}, ErrMalformedSaveField},
		{"missing building", func() *model.GameState {
			st := marketState(1, nil)
			delete(st.Buildings, "prism")
			return st
		}, ErrUnknownCommodity},
	}
	for _, tt := range tests {
		st := tt.state()
		_, err := LoadStocks(st.MarketSave, st.Buildings)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestNewStock_UnknownBuilding(t *testing.T) {
	_, err := NewStock(model.Building{Name: "cursor"}, 1, 0, []string{"100", "0", "0", "0", "0"})
	if !errors.Is(err, ErrUnknownCommodity) {
		t.Fatalf("expected ErrUnknownCommodity, got %v", err)
	}
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		office, qty, level, want int
	}{
		{0, 10, 1, 20},
		{1, 10, 1, 45},
		{4, 10, 1, 120},
		{5, 11, 2, 17 + 20 + 100},
	}
	for _, tt := range tests {
		if got := Capacity(tt.office, tt.qty, tt.level); got != tt.want {
			t.Errorf("Capacity(%d,%d,%d): expected %d, got %d", tt.office, tt.qty, tt.level, tt.want, got)
		}
	}
}

func TestUpdateStocks_KeepsBookkeeping(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, nil))
	m.mu.Lock()
	m.stocks[4].BoughtFor = 1234
	m.stocks[4].SoldFor = 99
	m.stocks[4].LifetimeEarnings = 55
	m.mu.Unlock()

	if err := m.UpdateStocks(marketState(1, map[int]string{4: "4200:3:0:50:6"})); err != nil {
		t.Fatalf("update: %v", err)
	}
	s, _ := m.GetStock("NUT")
	if s.Value != 42 || s.Held != 6 || s.Mode != model.ModeFastRise {
		t.Errorf("external fields not applied: %+v", s)
	}
	if s.BoughtFor != 1234 || s.SoldFor != 99 || s.LifetimeEarnings != 55 {
		t.Errorf("bookkeeping lost: %+v", s)
	}
}

func TestUpdateStocks_FailureKeepsSnapshot(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, map[int]string{0: "850:1:0:10:0"}))
	err := m.UpdateStocks(marketState(1, map[int]string{0: "x:1:0:10:0"}))
	if !errors.Is(err, ErrMalformedSaveField) {
		t.Fatalf("expected ErrMalformedSaveField, got %v", err)
	}
	s, _ := m.GetStockByID(0)
	if s.Value != 8.5 {
		t.Errorf("previous snapshot not retained: value %.2f", s.Value)
	}
}

func TestPricing(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, nil))
	s := &model.Stock{Value: 10, RestingValue: 10, Capacity: 50}
	// No brokers: 20% overhead.
	if got := m.GetStockPrice(s, 3); got != 36 {
		t.Errorf("GetStockPrice: expected 36, got %.2f", got)
	}
	if got := m.GetStockBuyPriceRaw(s, 2); got != 240 {
		t.Errorf("GetStockBuyPriceRaw: expected 240, got %.2f", got)
	}
	if got := m.GetStockSalePriceRaw(s, 2); got != 200 {
		t.Errorf("GetStockSalePriceRaw: expected 200, got %.2f", got)
	}
}

func TestRestingDiff_Example(t *testing.T) {
	s := &model.Stock{ID: 0, Value: 8.5, RestingValue: RestingValue(0, 1)}
	if got := RestingDiff(s); got != -15.0 {
		t.Fatalf("expected -15.00, got %.2f", got)
	}
}

func TestGetAmountCanPurchase(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, nil))
	tests := []struct {
		balance  float64
		capacity int
		want     int
	}{
		{1e9, 20, 20},  // capped at capacity
		{1201, 20, 10}, // 10 units cost exactly 1200
		{1200, 20, 9},  // strictly less than balance
		{100, 20, 0},   // cannot afford one
		{1e9, 0, 0},    // no capacity
	}
	for _, tt := range tests {
		m.mu.Lock()
		m.balance = tt.balance
		m.mu.Unlock()
		s := &model.Stock{Value: 10, Capacity: tt.capacity}
		got := m.GetAmountCanPurchase(s)
		if got != tt.want {
			t.Errorf("balance %.0f cap %d: expected %d, got %d", tt.balance, tt.capacity, tt.want, got)
		}
		if got > s.Capacity {
			t.Errorf("amount %d exceeds capacity %d", got, s.Capacity)
		}
		if got > 0 && m.GetStockBuyPriceRaw(s, got) >= tt.balance {
			t.Errorf("amount %d not covered by balance %.0f", got, tt.balance)
		}
	}
}

func TestEvaluate_BuysCandidate(t *testing.T) {
	// CRL at 8.5 vs resting 10, slow rise.
	m, tr, led := newTestMarket(t, marketState(1, map[int]string{0: "850:1:0:100:0"}))
	net, err := m.EvaluateStocks(context.Background())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if net != 1 {
		t.Fatalf("expected net 1, got %d", net)
	}
	if len(tr.buys) != 1 || tr.buys[0] != "CRL:20" {
		t.Fatalf("unexpected buys: %v", tr.buys)
	}
	if led.purchases != 1 {
		t.Errorf("expected 1 ledger purchase, got %d", led.purchases)
	}
	s, _ := m.GetStock("CRL")
	if s.Held != 20 {
		t.Errorf("expected held 20, got %d", s.Held)
	}
	wantCost := 10 * 8.5 * 1.2 * 20
	if diff := s.BoughtFor - wantCost; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("expected boughtFor %.2f, got %.2f", wantCost, s.BoughtFor)
	}
	if m.Balance() >= 1e6 {
		t.Error("balance not reduced by purchase")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	m, tr, _ := newTestMarket(t, marketState(1, map[int]string{
		0: "850:1:0:100:0",
		6: "10500:0:0:100:5",
	}))
	first, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if len(first.Buys) != 1 || len(first.Sells) != 1 {
		t.Fatalf("expected 1 buy and 1 sell, got %d and %d", len(first.Buys), len(first.Sells))
	}
	second, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if len(second.Buys) != 0 || len(second.Sells) != 0 {
		t.Fatalf("second pass traded again: %d buys, %d sells", len(second.Buys), len(second.Sells))
	}
	if len(tr.buys) != 1 || len(tr.sells) != 1 {
		t.Errorf("trader called again: %v %v", tr.buys, tr.sells)
	}
}

func TestEvaluate_HardCapSellsSugar(t *testing.T) {
	// SUG at 112 with bank level 5 hits the 112 cap; slow rise with a long duration would otherwise hold.
	m, tr, _ := newTestMarket(t, marketState(5, map[int]string{3: "11200:1:0:300:4"}))
	m.limits.SellLimit = 1000
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Sells) != 1 || res.Sells[0].Symbol != "SUG" {
		t.Fatalf("expected SUG sale, got %+v", res.Sells)
	}
	if len(tr.sells) != 1 || tr.sells[0] != "SUG:4" {
		t.Errorf("unexpected sells: %v", tr.sells)
	}
	s, _ := m.GetStock("SUG")
	if s.Held != 0 || s.BoughtFor != 0 {
		t.Errorf("expected reset position, got held=%d boughtFor=%.2f", s.Held, s.BoughtFor)
	}
}

func TestEvaluate_SaleProfitUsesLedgerBasis(t *testing.T) {
	m, _, led := newTestMarket(t, marketState(1, map[int]string{1: "3000:0:0:100:10"}))
	led.open["CHC"] = model.OpenPosition{Amount: 10, PurchasedFor: 1000, Symbol: "CHC"}

	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Sells) != 1 {
		t.Fatalf("expected one sale, got %d", len(res.Sells))
	}
	// 10 CpS * $30 * 10 units = 3000 proceeds.
	if res.Sells[0].Profit != 2000 {
		t.Errorf("expected profit 2000, got %.2f", res.Sells[0].Profit)
	}
	s, _ := m.GetStock("CHC")
	if s.LifetimeEarnings != 2000 || s.SoldFor != 3000 {
		t.Errorf("bookkeeping wrong: %+v", s)
	}
}

func TestEvaluate_SaleWithoutBasis(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, map[int]string{1: "3000:0:0:100:10"}))
	res, err := m.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Sells[0].Profit != 0 {
		t.Errorf("expected no profit without basis, got %.2f", res.Sells[0].Profit)
	}
	s, _ := m.GetStock("CHC")
	if s.LifetimeEarnings != 0 {
		t.Errorf("expected lifetime earnings untouched, got %.2f", s.LifetimeEarnings)
	}
}

func TestEvaluate_TraderFailureStopsPass(t *testing.T) {
	m, tr, led := newTestMarket(t, marketState(1, map[int]string{
		0: "850:1:0:100:0",
		1: "1500:1:0:100:0",
	}))
	tr.failOn = "CRL"
	res, err := m.Evaluate(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(res.Buys) != 0 || len(tr.buys) != 0 {
		t.Errorf("pass continued after failure: %v", tr.buys)
	}
	if led.purchases != 0 {
		t.Error("ledger written for failed trade")
	}
	s, _ := m.GetStock("CRL")
	if s.Held != 0 {
		t.Errorf("held changed after failed trade: %d", s.Held)
	}
}

// crlCost is 20 CRL at 8.5 with a level-1 bank.
const crlCost = 10 * 8.5 * 1.2 * 20

func near(a, b float64) bool {
	d := a - b
	return d < 1e-6 && d > -1e-6
}

func TestEvaluate_LaterBuyFailureKeepsEarlierTrade(t *testing.T) {
	m, tr, led := newTestMarket(t, marketState(1, map[int]string{
		0: "850:1:0:100:0",
		1: "1500:1:0:100:0",
	}))
	tr.failOn = "CHC"
	res, err := m.Evaluate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "buy 20 CHC") {
		t.Fatalf("expected CHC buy error, got %v", err)
	}
	if len(res.Buys) != 1 || res.Buys[0].Symbol != "CRL" {
		t.Fatalf("expected the CRL buy in the partial result, got %+v", res.Buys)
	}
	if led.purchases != 1 {
		t.Errorf("expected 1 ledger purchase, got %d", led.purchases)
	}
	if pos, ok := led.open["CRL"]; !ok || pos.Amount != 20 || !near(pos.PurchasedFor, crlCost) {
		t.Errorf("CRL ledger record missing or wrong: %+v", pos)
	}
	crl, _ := m.GetStock("CRL")
	if crl.Held != 20 || !near(crl.BoughtFor, crlCost) {
		t.Errorf("CRL bookkeeping lost: held=%d boughtFor=%.2f", crl.Held, crl.BoughtFor)
	}
	chc, _ := m.GetStock("CHC")
	if chc.Held != 0 || chc.BoughtFor != 0 {
		t.Errorf("CHC touched by failed buy: held=%d boughtFor=%.2f", chc.Held, chc.BoughtFor)
	}
	if !near(res.Balance, 1e6-crlCost) || !near(m.Balance(), 1e6-crlCost) {
		t.Errorf("balance = %.2f / %.2f, want %.2f", res.Balance, m.Balance(), 1e6-crlCost)
	}
}

func TestEvaluate_SellFailureKeepsEarlierBuy(t *testing.T) {
	// BTR at 60 against 30 resting is a stable-mode sale.
	m, tr, led := newTestMarket(t, marketState(1, map[int]string{
		0: "850:1:0:100:0",
		2: "6000:0:0:100:5",
	}))
	tr.failOn = "BTR"
	res, err := m.Evaluate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sell 5 BTR") {
		t.Fatalf("expected BTR sell error, got %v", err)
	}
	if len(res.Buys) != 1 || len(res.Sells) != 0 {
		t.Fatalf("expected 1 buy and no sells, got %d and %d", len(res.Buys), len(res.Sells))
	}
	if led.purchases != 1 || led.sales != 0 {
		t.Errorf("ledger purchases=%d sales=%d", led.purchases, led.sales)
	}
	crl, _ := m.GetStock("CRL")
	if crl.Held != 20 || !near(crl.BoughtFor, crlCost) {
		t.Errorf("CRL bookkeeping lost: held=%d boughtFor=%.2f", crl.Held, crl.BoughtFor)
	}
	btr, _ := m.GetStock("BTR")
	if btr.Held != 5 || btr.SoldFor != 0 {
		t.Errorf("BTR changed by failed sale: %+v", btr)
	}
}

func TestEvaluate_NotReady(t *testing.T) {
	tr := &fakeTrader{}
	m := NewMarket(strategy.Limits{BuyLimit: -10, SellLimit: 40}, tr, newFakeLedger())
	net, err := m.EvaluateStocks(context.Background())
	if err != nil || net != 0 {
		t.Fatalf("expected no-op before first update, got %d, %v", net, err)
	}
}

func TestRestore(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, nil))
	m.Restore(
		map[string]model.OpenPosition{"JAM": {Amount: 3, PurchasedFor: 450, Symbol: "JAM"}},
		map[string]float64{"JAM": 75, "CRL": -10},
	)
	jam, _ := m.GetStock("JAM")
	if jam.BoughtFor != 450 || jam.LifetimeEarnings != 75 {
		t.Errorf("JAM not restored: %+v", jam)
	}
	if st := m.Status(); st.LifetimeEarnings != 65 {
		t.Errorf("expected total earnings 65, got %.2f", st.LifetimeEarnings)
	}
}

func TestPlan(t *testing.T) {
	m, _, _ := newTestMarket(t, marketState(1, map[int]string{0: "850:1:0:100:0"}))
	plan := m.Plan()
	if len(plan) != StockCount {
		t.Fatalf("expected %d decisions, got %d", StockCount, len(plan))
	}
	if plan[0].Action != strategy.Buy || plan[0].Amount != 20 {
		t.Errorf("CRL: expected BUY 20, got %s %d", plan[0].ActionName, plan[0].Amount)
	}
	if plan[1].Action != strategy.Hold {
		t.Errorf("CHC: expected HOLD, got %s", plan[1].ActionName)
	}
}
