package strategy

import (
	"testing"

	"CookieBroker/internal/model"
)

var defaultLimits = Limits{BuyLimit: -10, SellLimit: 40}

func quote(value float64, resting int, mode model.Mode, dur, held int, bankLevel int) Quote {
	s := &model.Stock{Value: value, RestingValue: resting, Mode: mode, ModeDuration: dur, Held: held}
	diff := (value/float64(resting) - 1) * 100
	return Quote{Stock: s, RestingDiff: diff, HardCap: float64(100 + 3*(bankLevel-1))}
}

func TestDecide_CerealsBelowRestingSlowRise(t *testing.T) {
	q := quote(8.5, 10, model.ModeSlowRise, 100, 0, 1)
	q.RestingDiff = -15.0
	if got := Decide(q, defaultLimits); got != Buy {
		t.Fatalf("expected BUY, got %s", got)
	}
}

func TestDecide_BuyModeGates(t *testing.T) {
	tests := []struct {
		mode model.Mode
		dur  int
		want Action
	}{
		{model.ModeStable, 30, Buy},
		{model.ModeStable, 31, Hold},
		{model.ModeChaotic, 500, Buy},
		{model.ModeSlowFall, 5, Buy},
		{model.ModeSlowFall, 6, Hold},
		{model.ModeSlowRise, 900, Buy},
		{model.ModeFastRise, 900, Buy},
		{model.ModeFastFall, 5, Buy},
		{model.ModeFastFall, 6, Hold},
	}
	for _, tt := range tests {
		q := quote(5, 10, tt.mode, tt.dur, 0, 1)
		if got := Decide(q, defaultLimits); got != tt.want {
			t.Errorf("%s dur=%d: expected %s, got %s", tt.mode, tt.dur, tt.want, got)
		}
	}
}

func TestDecide_SellModeGates(t *testing.T) {
	tests := []struct {
		mode model.Mode
		dur  int
		want Action
	}{
		{model.ModeStable, 200, Sell},
		{model.ModeChaotic, 200, Sell},
		{model.ModeFastFall, 200, Sell},
		{model.ModeSlowFall, 200, Sell},
		{model.ModeFastRise, 400, Sell},
		{model.ModeFastRise, 5, Sell},
		{model.ModeFastRise, 200, Hold},
		{model.ModeSlowRise, 5, Sell},
		{model.ModeSlowRise, 6, Hold},
	}
	for _, tt := range tests {
		// 15 vs resting 10 is +50%, over the 40% sell limit but under the cap.
		q := quote(15, 10, tt.mode, tt.dur, 20, 1)
		if got := Decide(q, defaultLimits); got != tt.want {
			t.Errorf("%s dur=%d: expected %s, got %s", tt.mode, tt.dur, tt.want, got)
		}
	}
}

func TestDecide_HardCapOverridesMode(t *testing.T) {
	// Sugar at bank level 5: cap is 100+3*4 = 112, resting 44.
	for _, mode := range []model.Mode{model.ModeSlowRise, model.ModeFastRise, model.ModeStable} {
		q := quote(112, 44, mode, 200, 3, 5)
		if got := Decide(q, Limits{BuyLimit: -10, SellLimit: 1000}); got != Sell {
			t.Errorf("%s at cap: expected SELL, got %s", mode, got)
		}
	}
}

func TestDecide_NothingHeldNeverSells(t *testing.T) {
	q := quote(200, 10, model.ModeStable, 0, 0, 1)
	if got := Decide(q, defaultLimits); got != Hold {
		t.Fatalf("expected HOLD, got %s", got)
	}
}

func TestDecide_HoldingNeverBuys(t *testing.T) {
	q := quote(1, 10, model.ModeChaotic, 0, 4, 1)
	if got := Decide(q, defaultLimits); got != Hold {
		t.Fatalf("expected HOLD, got %s", got)
	}
}

func TestDecide_BuysAtCapBelowResting(t *testing.T) {
	// Subsidiaries rest at 160 with no bank levels, far above the 100 cap.
	q := quote(100, 160, model.ModeChaotic, 0, 0, 1)
	if got := Decide(q, defaultLimits); got != Buy {
		t.Fatalf("expected BUY below resting at cap, got %s", got)
	}
}

func TestDecide_HeldAtCapSells(t *testing.T) {
	// Once bought, the cap forces the sale on the next pass.
	q := quote(100, 160, model.ModeChaotic, 0, 3, 1)
	if got := Decide(q, defaultLimits); got != Sell {
		t.Fatalf("expected SELL at cap, got %s", got)
	}
}

func TestPartition_KeepsOrder(t *testing.T) {
	quotes := []Quote{
		quote(5, 10, model.ModeChaotic, 0, 0, 1),
		quote(15, 10, model.ModeStable, 0, 1, 1),
		quote(10, 10, model.ModeStable, 0, 0, 1),
		quote(6, 10, model.ModeFastRise, 0, 0, 1),
	}
	buys, sells := Partition(quotes, defaultLimits)
	if len(buys) != 2 || len(sells) != 1 {
		t.Fatalf("expected 2 buys and 1 sell, got %d and %d", len(buys), len(sells))
	}
	if buys[0].Stock != quotes[0].Stock || buys[1].Stock != quotes[3].Stock {
		t.Error("buy order not preserved")
	}
}
