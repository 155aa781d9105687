package model

// GameState is everything one cycle needs from a decoded save.
type GameState struct {
	MarketSave string              // bank minigame string: "office:brokers v:m:d:dur:held!..."
	Buildings  map[string]Building // keyed by lower-case building name
	Cookies    float64             // spendable balance
	PeakCps    float64             // highest raw cookies-per-second this ascension
}
