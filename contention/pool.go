package contention

import (
	"context"
	"sync/atomic"
)

// ResourcePool is the shared counter all participants of a run compete for.
//
// count and version are written only through RawDecrement, LockedPool.TryDecrement and
// CompareAndDecrement (plus Reset between runs). Every successful mutation increments version.
//
// Any storage that satisfies this contract (in-memory, a database row with a version column, ...)
// is interchangeable.
type ResourcePool interface {
	// Reset sets count to capacity and version to 0. It must not be called while a run is in flight.
	Reset(ctx context.Context, capacity int64) error

	// Peek reads the current state without any synchronization beyond the value observed at call time.
	Peek(ctx context.Context) (PoolStatus, error)

	// RawDecrement decrements count without checking it. count may become negative.
	RawDecrement(ctx context.Context) (PoolStatus, error)

	// Lock blocks until the pool's single mutual-exclusion lock is acquired or ctx is done.
	// There is no acquisition timeout: a stalled holder stalls every other caller.
	Lock(ctx context.Context) (LockedPool, error)

	// CompareAndDecrement atomically decrements count and increments version if version equals
	// expectedVersion and count is positive. Otherwise, nothing is mutated and false is returned.
	// The returned status is only meaningful on success.
	CompareAndDecrement(ctx context.Context, expectedVersion uint64) (bool, PoolStatus, error)
}

// LockedPool is the critical section obtained from ResourcePool.Lock.
// Unlock must be called exactly once, on every exit path, by the caller that obtained it.
type LockedPool interface {
	Peek(ctx context.Context) (PoolStatus, error)

	// TryDecrement decrements count if it is positive and reports whether it did.
	TryDecrement(ctx context.Context) (bool, PoolStatus, error)

	Unlock(ctx context.Context) error
}

// MemoryPool is the in-memory ResourcePool.
//
// The state is an immutable PoolStatus behind an atomic pointer, so every mutation is a single
// pointer swap and CompareAndDecrement is indivisible. The lock is a one-slot channel, which makes
// waiting for it observable to context cancellation.
type MemoryPool struct {
	state atomic.Pointer[PoolStatus]
	lock  chan struct{}
}

// NewMemoryPool creates a MemoryPool with count and version 0.
func NewMemoryPool() *MemoryPool {
	p := &MemoryPool{lock: make(chan struct{}, 1)}
	p.state.Store(&PoolStatus{})

	return p
}

// Reset implements ResourcePool.
func (p *MemoryPool) Reset(_ context.Context, capacity int64) error {
	if capacity < 0 {
		return ErrInvalidCapacity
	}

	p.state.Store(&PoolStatus{Count: capacity})

	return nil
}

// Peek implements ResourcePool.
func (p *MemoryPool) Peek(_ context.Context) (PoolStatus, error) {
	return *p.state.Load(), nil
}

// RawDecrement implements ResourcePool.
// The decrement is atomic only at the level of the storage word; the caller's earlier read
// is not re-validated, which is what lets over-allocation happen.
func (p *MemoryPool) RawDecrement(_ context.Context) (PoolStatus, error) {
	for {
		current := p.state.Load()
		next := &PoolStatus{Count: current.Count - 1, Version: current.Version + 1}

		if p.state.CompareAndSwap(current, next) {
			return *next, nil
		}
	}
}

// Lock implements ResourcePool.
func (p *MemoryPool) Lock(ctx context.Context) (LockedPool, error) {
	select {
	case p.lock <- struct{}{}:
		return &memoryLockedPool{pool: p}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// CompareAndDecrement implements ResourcePool.
func (p *MemoryPool) CompareAndDecrement(_ context.Context, expectedVersion uint64) (bool, PoolStatus, error) {
	current := p.state.Load()
	if current.Version != expectedVersion || current.Count <= 0 {
		return false, *current, nil
	}

	next := &PoolStatus{Count: current.Count - 1, Version: current.Version + 1}

	// Every mutation swaps the pointer, so a failed swap means the version moved on.
	if !p.state.CompareAndSwap(current, next) {
		return false, *p.state.Load(), nil
	}

	return true, *next, nil
}

type memoryLockedPool struct {
	pool     *MemoryPool
	released atomic.Bool
}

func (l *memoryLockedPool) Peek(ctx context.Context) (PoolStatus, error) {
	return l.pool.Peek(ctx)
}

func (l *memoryLockedPool) TryDecrement(_ context.Context) (bool, PoolStatus, error) {
	for {
		current := l.pool.state.Load()
		if current.Count <= 0 {
			return false, *current, nil
		}

		next := &PoolStatus{Count: current.Count - 1, Version: current.Version + 1}
		if l.pool.state.CompareAndSwap(current, next) {
			return true, *next, nil
		}
	}
}

func (l *memoryLockedPool) Unlock(_ context.Context) error {
	if !l.released.CompareAndSwap(false, true) {
		return ErrLockNotHeld
	}

	<-l.pool.lock

	return nil
}

var _ ResourcePool = (*MemoryPool)(nil)
