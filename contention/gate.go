package contention

import (
	"context"
	"sync"
	"sync/atomic"
)

// Gate is a one-shot start barrier. Participants Await it, the coordinator waits until all
// expected participants have arrived and then releases every waiter at once by closing a channel.
type Gate struct {
	expected    int64
	arrived     atomic.Int64
	ready       chan struct{}
	released    chan struct{}
	readyOnce   sync.Once
	releaseOnce sync.Once
}

// NewGate creates a Gate for expected participants.
func NewGate(expected int) *Gate {
	g := &Gate{
		expected: int64(expected),
		ready:    make(chan struct{}),
		released: make(chan struct{}),
	}

	if expected <= 0 {
		g.readyOnce.Do(func() { close(g.ready) })
	}

	return g
}

// Await registers the caller's arrival and blocks until Release or until ctx is done.
// No caller returns nil before Release has been called.
func (g *Gate) Await(ctx context.Context) error {
	if g.arrived.Add(1) == g.expected {
		g.readyOnce.Do(func() { close(g.ready) })
	}

	select {
	case <-g.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitReady blocks until all expected participants have called Await, or until ctx is done.
func (g *Gate) WaitReady(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release opens the gate for all current and future waiters. Only the first call has an effect;
// it reports whether this call was the one that released.
func (g *Gate) Release() bool {
	released := false

	g.releaseOnce.Do(func() {
		close(g.released)
		released = true
	})

	return released
}

// Arrived returns how many participants have called Await so far.
func (g *Gate) Arrived() int {
	return int(g.arrived.Load())
}
