package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
)

// Layout places the stock market controls on screen. Row id sits RowHeight
// pixels below row 0.
type Layout struct {
	FirstBuy   Point         `yaml:"first_buy"`
	SellOffset Point         `yaml:"sell_offset"`
	RowHeight  int           `yaml:"row_height"`
	Settle     time.Duration `yaml:"settle"`
}

// BuyPoint is the buy-max control of row id.
func (l Layout) BuyPoint(id int) Point {
	return Point{X: l.FirstBuy.X, Y: l.FirstBuy.Y + id*l.RowHeight}
}

// SellPoint is the sell-all control of row id.
func (l Layout) SellPoint(id int) Point {
	b := l.BuyPoint(id)
	return Point{X: b.X + l.SellOffset.X, Y: b.Y + l.SellOffset.Y}
}

var _ market.Trader = (*ScreenTrader)(nil)

// ScreenTrader executes trades by clicking the market rows.
// Callers hold the gate exclusively while it runs.
type ScreenTrader struct {
	device Device
	layout Layout
	sleep  func(context.Context, time.Duration) error
}

func NewScreenTrader(device Device, layout Layout) *ScreenTrader {
	return &ScreenTrader{device: device, layout: layout, sleep: sleepCtx}
}

func (t *ScreenTrader) Buy(ctx context.Context, s model.Stock, amount int) error {
	return t.press(ctx, "buy", s, amount, t.layout.BuyPoint(s.ID))
}

func (t *ScreenTrader) Sell(ctx context.Context, s model.Stock, amount int) error {
	return t.press(ctx, "sell", s, amount, t.layout.SellPoint(s.ID))
}

func (t *ScreenTrader) press(ctx context.Context, side string, s model.Stock, amount int, p Point) error {
	if s.ID < 0 || s.ID >= market.StockCount {
		return fmt.Errorf("%w: no row for stock id %d", ErrAutomationFailure, s.ID)
	}
	if err := t.device.Click(ctx, p); err != nil {
		return fmt.Errorf("%s %s: %w", side, s.Symbol, wrapFailure(err))
	}
	log.Printf("[INFO] clicked %s x%d for %s at (%d, %d)", side, amount, s.Symbol, p.X, p.Y)
	// The click has landed; an interrupted settle must not undo the trade.
	if t.layout.Settle > 0 {
		if err := t.sleep(ctx, t.layout.Settle); err != nil {
			log.Printf("[WARN] settle after %s %s interrupted: %v", side, s.Symbol, err)
		}
	}
	return nil
}

func wrapFailure(err error) error {
	if errors.Is(err, ErrAutomationFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAutomationFailure, err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
