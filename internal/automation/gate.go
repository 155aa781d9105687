package automation

import (
	"context"
	"sync"
)

// Gate coordinates the click loop with anything else that drives the mouse.
//
// The click loop calls Wait before every click and holds the input lock while
// clicking. Exclusive pauses the loop, takes the input lock so no click is in
// flight, runs its function and then resumes the loop. Stop is the process-wide
// stop flag; once set it stays set.
type Gate struct {
	input sync.Mutex // held for the duration of any mouse action

	mu      sync.Mutex
	cond    *sync.Cond
	pausers int
	stopped bool
	err     error
}

// NewGate returns an open gate.
func NewGate() *Gate {
	g := &Gate{}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Exclusive runs fn with the click loop paused and no click in flight.
func (g *Gate) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	g.pausers++
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.pausers--
		g.cond.Broadcast()
		g.mu.Unlock()
	}()

	g.input.Lock()
	defer g.input.Unlock()
	return fn(ctx)
}

// Paused reports whether an exclusive section is running or waiting.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pausers > 0
}

// click runs one loop action under the input lock, first waiting out any pause.
// It returns false once the gate is stopped or ctx is done.
func (g *Gate) click(ctx context.Context, fn func() error) (bool, error) {
	g.mu.Lock()
	for g.pausers > 0 && !g.stopped && ctx.Err() == nil {
		g.cond.Wait()
	}
	stopped := g.stopped
	g.mu.Unlock()
	if stopped || ctx.Err() != nil {
		return false, nil
	}

	g.input.Lock()
	defer g.input.Unlock()
	return true, fn()
}

// Stop sets the stop flag. The first error recorded wins.
func (g *Gate) Stop(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.stopped {
		g.stopped = true
		g.err = err
	}
	g.cond.Broadcast()
}

// Stopped reports whether Stop has been called.
func (g *Gate) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Err is the error passed to the first Stop call.
func (g *Gate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// wake releases waiters so they can observe a cancelled context.
func (g *Gate) wake() {
	g.mu.Lock()
	g.cond.Broadcast()
	g.mu.Unlock()
}
