package market

import (
	"fmt"
	"log"
	"math"

	"CookieBroker/internal/model"
)

// RestingValue is the equilibrium price a stock drifts toward.
func RestingValue(id, bankLevel int) int {
	return 10*(id+1) + (bankLevel - 1)
}

// HardCap is the price at or above which any holding is sold regardless of mode.
func HardCap(bankLevel int) float64 {
	return float64(100 + 3*(bankLevel-1))
}

// Capacity is how many units of a stock can be held.
// Office tiers 1-4 add 25 each; past tier 4 the building count is worth 1.5x.
func Capacity(officeLevel, quantity, level int) int {
	tiers := officeLevel
	if tiers > 4 {
		tiers = 4
	}
	if tiers < 0 {
		tiers = 0
	}
	q := float64(quantity)
	if officeLevel > 4 {
		q *= 1.5
	}
	return int(math.Ceil(q)) + 10*level + 25*tiers
}

// NewStock builds a stock from its owning building and the five raw save
// fields: value*100, mode, delta*100, duration, held. Extra fields are ignored.
func NewStock(b model.Building, bankLevel, officeLevel int, raw []string) (*model.Stock, error) {
	entry, ok := ByBuilding(b.Name)
	if !ok {
		return nil, fmt.Errorf("%w: building %q", ErrUnknownCommodity, b.Name)
	}
	if len(raw) < 5 {
		return nil, fmt.Errorf("%w: %s has %d sub-fields, want 5", ErrMalformedSaveField, entry.Symbol, len(raw))
	}

	value, err := parseNumber(entry.Symbol+".value", raw[0])
	if err != nil {
		return nil, err
	}
	if value < 0 {
		return nil, fmt.Errorf("%w: %s.value=%q is negative", ErrMalformedSaveField, entry.Symbol, raw[0])
	}
	mode, err := parseCount(entry.Symbol+".mode", raw[1])
	if err != nil {
		return nil, err
	}
	if !model.Mode(mode).Valid() {
		return nil, fmt.Errorf("%w: %s.mode=%d out of range", ErrMalformedSaveField, entry.Symbol, mode)
	}
	delta, err := parseNumber(entry.Symbol+".delta", raw[2])
	if err != nil {
		return nil, err
	}
	duration, err := parseCount(entry.Symbol+".duration", raw[3])
	if err != nil {
		return nil, err
	}
	held, err := parseCount(entry.Symbol+".held", raw[4])
	if err != nil {
		return nil, err
	}

	s := &model.Stock{
		ID:           entry.Slot,
		Symbol:       entry.Symbol,
		Name:         entry.Name,
		Value:        value / 100,
		Mode:         model.Mode(mode),
		ModeDuration: duration,
		Delta:        delta / 100,
		Held:         held,
		RestingValue: RestingValue(entry.Slot, bankLevel),
		Capacity:     Capacity(officeLevel, b.Amount, b.Level),
	}
	// The game enforces its own cap, so a save holding more proves the cap is higher.
	if s.Held > s.Capacity {
		log.Printf("[WARN] %s holds %d above computed capacity %d, raising capacity", s.Symbol, s.Held, s.Capacity)
		s.Capacity = s.Held
	}
	return s, nil
}
