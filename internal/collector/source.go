package collector

import "CookieBroker/internal/model"

// Source supplies the decoded game state for one cycle.
type Source interface {
	ReadState() (*model.GameState, error)
	Name() string
}
