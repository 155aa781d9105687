package model

import "fmt"

// Mode is the volatility regime a stock is currently in.
type Mode int

const (
	ModeStable Mode = iota
	ModeSlowRise
	ModeSlowFall
	ModeFastRise
	ModeFastFall
	ModeChaotic
)

var modeNames = [...]string{"STABLE", "SLOW_RISE", "SLOW_FALL", "FAST_RISE", "FAST_FALL", "CHAOTIC"}

func (m Mode) String() string {
	if m.Valid() {
		return modeNames[m]
	}
	return fmt.Sprintf("MODE(%d)", int(m))
}

// Valid reports whether m is one of the six known modes.
func (m Mode) Valid() bool {
	return m >= ModeStable && m <= ModeChaotic
}

// MarshalText encodes the mode by name so JSON output stays readable.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	for i, name := range modeNames {
		if name == string(b) {
			*m = Mode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown mode %q", b)
}

// Stock is the runtime state of one tradeable commodity.
//
// Value, Mode, ModeDuration, Delta, Held, Capacity and RestingValue mirror the
// game save and are overwritten every cycle. BoughtFor, SoldFor and
// LifetimeEarnings belong to the bot and are never touched by a save refresh.
type Stock struct {
	ID     int    `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	Value        float64 `json:"value"`
	Mode         Mode    `json:"mode"`
	ModeDuration int     `json:"mode_duration"`
	Delta        float64 `json:"delta"`
	Held         int     `json:"held"`
	Capacity     int     `json:"capacity"`
	RestingValue int     `json:"resting_value"`

	BoughtFor        float64 `json:"bought_for"`
	SoldFor          float64 `json:"sold_for"`
	LifetimeEarnings float64 `json:"lifetime_earnings"`
}
