package strategy

import "CookieBroker/internal/model"

// shouldBuy: below the buy limit, nothing held, and the mode is unlikely to
// keep dragging the price down for long.
func shouldBuy(q Quote, l Limits) bool {
	s := q.Stock
	if s.Held != 0 || q.RestingDiff > l.BuyLimit {
		return false
	}

	switch s.Mode {
	case model.ModeStable:
		return s.ModeDuration <= 30
	case model.ModeChaotic, model.ModeSlowRise, model.ModeFastRise:
		return true
	case model.ModeSlowFall, model.ModeFastFall:
		return s.ModeDuration <= 5
	default:
		return false
	}
}

// shouldSell: something held and either above the sell limit or at the cap.
func shouldSell(q Quote, l Limits) bool {
	s := q.Stock
	if s.Held <= 0 {
		return false
	}
	atCap := s.Value >= q.HardCap
	if !atCap && q.RestingDiff < l.SellLimit {
		return false
	}
	if atCap {
		return true
	}

	switch s.Mode {
	case model.ModeStable, model.ModeChaotic, model.ModeFastFall, model.ModeSlowFall:
		return true
	case model.ModeFastRise:
		// 3% per tick to flip into a fast fall; by 400 ticks that is near certain.
		return s.ModeDuration >= 400 || s.ModeDuration <= 5
	case model.ModeSlowRise:
		return s.ModeDuration <= 5
	default:
		return false
	}
}
