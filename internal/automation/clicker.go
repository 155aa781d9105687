package automation

import (
	"context"
	"errors"
	"log"

	"golang.org/x/time/rate"
)

// ClickLoop keeps clicking one point, yielding to Gate.Exclusive.
type ClickLoop struct {
	gate    *Gate
	device  Device
	target  Point
	limiter *rate.Limiter
	clicks  int64
}

// NewClickLoop paces clicks at perSecond.
func NewClickLoop(gate *Gate, device Device, target Point, perSecond float64) *ClickLoop {
	return &ClickLoop{
		gate:    gate,
		device:  device,
		target:  target,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Run clicks until ctx is done or the gate is stopped. A failsafe trip stops the gate.
func (c *ClickLoop) Run(ctx context.Context) error {
	log.Printf("[INFO] click loop started on %s at (%d, %d), %.1f clicks/s",
		c.device.Name(), c.target.X, c.target.Y, float64(c.limiter.Limit()))

	stopWake := context.AfterFunc(ctx, c.gate.wake)
	defer stopWake()

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			log.Printf("[INFO] click loop stopped after %d clicks", c.clicks)
			return nil
		}
		ok, err := c.gate.click(ctx, func() error {
			return c.device.Click(ctx, c.target)
		})
		if !ok {
			log.Printf("[INFO] click loop stopped after %d clicks", c.clicks)
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrFailsafe) {
				log.Printf("[FATAL] failsafe detected, stopping")
			} else {
				log.Printf("[ERROR] click failed: %v", err)
			}
			c.gate.Stop(err)
			return err
		}
		c.clicks++
	}
}
