package collector

import (
	"fmt"
	"log"

	"CookieBroker/internal/model"
)

// MockSource returns a fixed game state for development and testing.
type MockSource struct {
	State *model.GameState
	Err   error
	Reads int
}

func (m *MockSource) Name() string { return "mock" }

func (m *MockSource) ReadState() (*model.GameState, error) {
	m.Reads++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.State, nil
}

// Collector reads the game state and checks it has what the market needs.
type Collector struct {
	Source Source
}

// NewCollector creates a new Collector.
func NewCollector(src Source) *Collector {
	return &Collector{Source: src}
}

// Collect reads one game state.
func (c *Collector) Collect() (*model.GameState, error) {
	state, err := c.Source.ReadState()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c.Source.Name(), err)
	}
	if state.MarketSave == "" {
		return nil, fmt.Errorf("read %s: bank has no stock market save", c.Source.Name())
	}
	if state.PeakCps <= 0 {
		return nil, fmt.Errorf("read %s: peak CpS unknown, set peak_cps_override", c.Source.Name())
	}
	if state.Cookies <= 0 {
		log.Printf("[WARN] cookie balance is %.0f, nothing can be bought", state.Cookies)
	}
	return state, nil
}
