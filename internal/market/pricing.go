package market

import (
	"math"

	"github.com/shopspring/decimal"

	"CookieBroker/internal/model"
)

func round2(x float64) float64 {
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// overhead is the brokerage multiplier on purchases; each broker cuts the 20% fee by 5%.
func overhead(brokers int) float64 {
	return 1 + 0.2*math.Pow(0.95, float64(brokers))
}

// RestingDiff is the signed percent deviation of the price from its resting value.
func RestingDiff(s *model.Stock) float64 {
	if s.RestingValue == 0 {
		return 0
	}
	return round2((s.Value/float64(s.RestingValue) - 1) * 100)
}

// GetStockPrice is the quoted price of qty units including brokerage, in seconds of CpS.
func (m *Market) GetStockPrice(s *model.Stock, qty int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return round2(s.Value * float64(qty) * overhead(m.brokers))
}

// GetStockBuyPriceRaw is the cookie cost of buying qty units.
func (m *Market) GetStockBuyPriceRaw(s *model.Stock, qty int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.buyPriceRaw(s, qty)
}

// GetStockSalePriceRaw is the cookie proceeds of selling qty units. Sales carry no overhead.
func (m *Market) GetStockSalePriceRaw(s *model.Stock, qty int) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.salePriceRaw(s, qty)
}

// GetAmountCanPurchase is the most units the current balance strictly covers, capped at capacity.
func (m *Market) GetAmountCanPurchase(s *model.Stock) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.amountCanPurchase(s)
}

// GetRestingDiff is RestingDiff exposed alongside the other pricing getters.
func (m *Market) GetRestingDiff(s *model.Stock) float64 {
	return RestingDiff(s)
}

func (m *Market) buyPriceRaw(s *model.Stock, qty int) float64 {
	return m.peakCps * s.Value * overhead(m.brokers) * float64(qty)
}

func (m *Market) salePriceRaw(s *model.Stock, qty int) float64 {
	return m.peakCps * s.Value * float64(qty)
}

// Capacity is at most a few hundred, so a linear scan is fine.
func (m *Market) amountCanPurchase(s *model.Stock) int {
	amount := 0
	for qty := 1; qty <= s.Capacity; qty++ {
		if m.buyPriceRaw(s, qty) >= m.balance {
			break
		}
		amount = qty
	}
	return amount
}
