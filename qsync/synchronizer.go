// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// spinThreshold is the remaining-budget cutoff below which a timed
// acquire busy-retries instead of paying for a timed park; see spec §4.2.
const spinThreshold = 1000 * time.Nanosecond

// errTimeout is an internal sentinel distinguishing "deadline expired"
// from "context cancelled" inside acquireQueued; callers translate it to
// a (false, nil) result, since timeout is a value, not an error (§7).
var errTimeout = errors.New("qsync: internal timeout sentinel")

// Ops is the set of hooks a concrete synchronizer supplies to interpret
// the opaque state word. Each hook defaults to ErrUnsupported via
// DefaultOps; a concrete type embeds DefaultOps and overrides only what
// it needs, mirroring AbstractQueuedSynchronizer's tryAcquire family.
type Ops interface {
	// TryAcquire attempts an exclusive acquisition without blocking.
	TryAcquire(arg int32) (bool, error)
	// TryRelease attempts an exclusive release.
	TryRelease(arg int32) (bool, error)
	// TryAcquireShared attempts a shared acquisition. Negative means
	// failure; zero means success with no further shared acquires
	// guaranteed to succeed; positive means success and subsequent
	// shared acquires may also succeed (propagate the wakeup).
	TryAcquireShared(arg int32) (int32, error)
	// TryReleaseShared attempts a shared release, returning true iff
	// this release may have made a waiting acquire possible.
	TryReleaseShared(arg int32) (bool, error)
	// IsHeldExclusively reports whether the current state represents
	// exclusive ownership, for Condition's precondition check.
	IsHeldExclusively() bool
}

// DefaultOps gives ErrUnsupported/false defaults for every hook; embed it
// in a concrete synchronizer and override only the hooks it needs.
type DefaultOps struct{}

func (DefaultOps) TryAcquire(int32) (bool, error)       { return false, ErrUnsupported }
func (DefaultOps) TryRelease(int32) (bool, error)       { return false, ErrUnsupported }
func (DefaultOps) TryAcquireShared(int32) (int32, error) { return -1, ErrUnsupported }
func (DefaultOps) TryReleaseShared(int32) (bool, error)  { return false, ErrUnsupported }
func (DefaultOps) IsHeldExclusively() bool               { return false }

// Synchronizer is the queued synchronizer engine: an opaque 32-bit state
// word plus a CLH-style FIFO wait queue, with exclusive and shared
// acquire/release built on top. See spec §4.2–§4.4.
type Synchronizer struct {
	state atomic.Int32
	q     syncQueue
	ops   Ops
}

// New returns a Synchronizer whose state starts at zero and whose
// acquire/release semantics are defined by ops.
func New(ops Ops) *Synchronizer {
	return &Synchronizer{ops: ops}
}

func (s *Synchronizer) LoadState() int32 { return s.state.Load() }
func (s *Synchronizer) StoreState(v int32) { s.state.Store(v) }
func (s *Synchronizer) CompareAndSwapState(old, new int32) bool {
	return s.state.CompareAndSwap(old, new)
}

func (s *Synchronizer) addWaiter(m mode) *node {
	n := newNode(m)
	s.q.enqueue(n)
	return n
}

// shouldParkAfterFailedAcquire implements spec §4.2 step 2: decide
// whether it is safe to park after a failed acquire attempt, splicing
// past cancelled predecessors along the way.
func (s *Synchronizer) shouldParkAfterFailedAcquire(p, n *node) bool {
	ws := p.status()
	if ws == statusSignal {
		return true
	}
	if ws > 0 {
		for {
			p = p.prev.Load()
			if p.status() <= 0 {
				break
			}
		}
		n.prev.Store(p)
		p.next.Store(n)
		return false
	}
	p.casStatus(ws, statusSignal)
	return false
}

func ctxErr(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrInterrupted
}

// acquireQueued runs the retry loop common to exclusive and shared
// acquisition for a node already linked into the sync queue. tryAcq
// attempts the hook and returns (ok, r, err); r is only meaningful in
// shared mode, where it drives setHeadAndPropagate.
func (s *Synchronizer) acquireQueued(ctx context.Context, n *node, tryAcq func() (bool, int32, error), deadline time.Time, timed bool) error {
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	succeeded := false
	defer func() {
		if !succeeded {
			s.q.cancelAcquire(n)
		}
	}()
	for {
		p := n.prev.Load()
		if p == s.q.head.Load() {
			ok, r, err := tryAcq()
			if err != nil {
				return err
			}
			if ok {
				if n.isShared() {
					s.setHeadAndPropagate(n, r)
				} else {
					s.q.setHead(n)
				}
				p.next.Store(nil)
				succeeded = true
				return nil
			}
		}
		if timed && !time.Now().Before(deadline) {
			return errTimeout
		}
		if s.shouldParkAfterFailedAcquire(p, n) {
			if timed {
				remaining := time.Until(deadline)
				if remaining <= spinThreshold {
					continue
				}
				_, expired, cancelled := n.p.parkCtx(done, deadline)
				if expired {
					return errTimeout
				}
				if cancelled {
					return ctxErr(ctx)
				}
			} else if done != nil {
				_, _, cancelled := n.p.parkCtx(done, time.Time{})
				if cancelled {
					return ctxErr(ctx)
				}
			} else {
				n.p.park()
			}
		}
	}
}

func (s *Synchronizer) reacquireQueued(n *node, arg int32) error {
	return s.acquireQueued(nil, n, func() (bool, int32, error) {
		ok, err := s.ops.TryAcquire(arg)
		return ok, 0, err
	}, time.Time{}, false)
}

// --- exclusive acquire/release ---

// Acquire blocks uninterruptibly until the exclusive acquisition
// succeeds.
func (s *Synchronizer) Acquire(arg int32) error {
	if ok, err := s.ops.TryAcquire(arg); err != nil {
		return err
	} else if ok {
		return nil
	}
	n := s.addWaiter(exclusive)
	return s.acquireQueued(nil, n, func() (bool, int32, error) {
		ok, err := s.ops.TryAcquire(arg)
		return ok, 0, err
	}, time.Time{}, false)
}

// AcquireContext blocks until the exclusive acquisition succeeds or ctx
// is done, in which case it returns ctx.Err() (or ErrInterrupted).
func (s *Synchronizer) AcquireContext(ctx context.Context, arg int32) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if ok, err := s.ops.TryAcquire(arg); err != nil {
		return err
	} else if ok {
		return nil
	}
	n := s.addWaiter(exclusive)
	return s.acquireQueued(ctx, n, func() (bool, int32, error) {
		ok, err := s.ops.TryAcquire(arg)
		return ok, 0, err
	}, time.Time{}, false)
}

// AcquireTimeout attempts the exclusive acquisition, giving up after
// timeout elapses. ctx may be nil for no cancellation.
func (s *Synchronizer) AcquireTimeout(ctx context.Context, arg int32, timeout time.Duration) (bool, error) {
	if ok, err := s.ops.TryAcquire(arg); err != nil {
		return false, err
	} else if ok {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	n := s.addWaiter(exclusive)
	err := s.acquireQueued(ctx, n, func() (bool, int32, error) {
		ok, err := s.ops.TryAcquire(arg)
		return ok, 0, err
	}, deadline, true)
	switch err {
	case nil:
		return true, nil
	case errTimeout:
		return false, nil
	default:
		return false, err
	}
}

// Release performs an exclusive release and wakes a successor if one is
// waiting and ready for a signal.
func (s *Synchronizer) Release(arg int32) (bool, error) {
	ok, err := s.ops.TryRelease(arg)
	if err != nil {
		return false, err
	}
	if ok {
		if h := s.q.head.Load(); h != nil && h.status() != statusInitial {
			s.q.unparkSuccessor(h)
		}
	}
	return ok, nil
}

// --- shared acquire/release ---

func (s *Synchronizer) setHeadAndPropagate(n *node, r int32) {
	oldHead := s.q.head.Load()
	s.q.setHead(n)
	if r > 0 || oldHead == nil || oldHead.status() < 0 {
		newHead := s.q.head.Load()
		if newHead == nil || newHead.status() < 0 {
			succ := n.next.Load()
			if succ == nil || succ.isShared() {
				s.doReleaseShared()
			}
		}
	}
}

// doReleaseShared implements spec §4.4: propagate a shared release even
// when it races with another acquirer, via the PROPAGATE tag.
func (s *Synchronizer) doReleaseShared() {
	for {
		h := s.q.head.Load()
		if h != nil && h != s.q.tail.Load() {
			ws := h.status()
			if ws == statusSignal {
				if !h.casStatus(statusSignal, statusInitial) {
					continue
				}
				s.q.unparkSuccessor(h)
			} else if ws == statusInitial && !h.casStatus(statusInitial, statusPropagate) {
				continue
			}
		}
		if h == s.q.head.Load() {
			break
		}
	}
}

// AcquireShared blocks uninterruptibly until a shared acquisition
// succeeds.
func (s *Synchronizer) AcquireShared(arg int32) error {
	if r, err := s.ops.TryAcquireShared(arg); err != nil {
		return err
	} else if r >= 0 {
		return nil
	}
	n := s.addWaiter(shared)
	return s.acquireQueued(nil, n, func() (bool, int32, error) {
		r, err := s.ops.TryAcquireShared(arg)
		return r >= 0, r, err
	}, time.Time{}, false)
}

// AcquireSharedContext is the interruptible variant of AcquireShared.
func (s *Synchronizer) AcquireSharedContext(ctx context.Context, arg int32) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if r, err := s.ops.TryAcquireShared(arg); err != nil {
		return err
	} else if r >= 0 {
		return nil
	}
	n := s.addWaiter(shared)
	return s.acquireQueued(ctx, n, func() (bool, int32, error) {
		r, err := s.ops.TryAcquireShared(arg)
		return r >= 0, r, err
	}, time.Time{}, false)
}

// AcquireSharedTimeout is the timed variant of AcquireShared.
func (s *Synchronizer) AcquireSharedTimeout(ctx context.Context, arg int32, timeout time.Duration) (bool, error) {
	if r, err := s.ops.TryAcquireShared(arg); err != nil {
		return false, err
	} else if r >= 0 {
		return true, nil
	}
	if timeout <= 0 {
		return false, nil
	}
	deadline := time.Now().Add(timeout)
	n := s.addWaiter(shared)
	err := s.acquireQueued(ctx, n, func() (bool, int32, error) {
		r, err := s.ops.TryAcquireShared(arg)
		return r >= 0, r, err
	}, deadline, true)
	switch err {
	case nil:
		return true, nil
	case errTimeout:
		return false, nil
	default:
		return false, err
	}
}

// ReleaseShared performs a shared release, propagating wakeups as
// needed.
func (s *Synchronizer) ReleaseShared(arg int32) (bool, error) {
	ok, err := s.ops.TryReleaseShared(arg)
	if err != nil {
		return false, err
	}
	if ok {
		s.doReleaseShared()
	}
	return ok, nil
}

// --- inspection (§6) ---

// HasQueuedThreads reports whether any goroutine is currently waiting to
// acquire.
func (s *Synchronizer) HasQueuedThreads() bool {
	return s.q.head.Load() != s.q.tail.Load()
}

// QueueLength estimates the number of goroutines waiting to acquire.
// Because the queue can change concurrently the result is an estimate,
// as in the Java original.
func (s *Synchronizer) QueueLength() int {
	n := 0
	for p := s.q.tail.Load(); p != nil; p = p.prev.Load() {
		if p.p != nil {
			n++
		}
	}
	return n
}

func (s *Synchronizer) fullyRelease(n *node) (int32, error) {
	saved := s.LoadState()
	ok, err := s.Release(saved)
	if err != nil {
		n.setStatus(statusCancelled)
		return 0, err
	}
	if !ok {
		n.setStatus(statusCancelled)
		return 0, ErrNotHeld
	}
	return saved, nil
}
