// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import "context"

// ErrBrokenBarrier is returned to every party waiting on a CyclicBarrier
// that was broken by a reset, a cancelled waiter, or a failed action.
var ErrBrokenBarrier = newBarrierError("qsync: broken barrier")

func newBarrierError(msg string) error { return &barrierError{msg: msg} }

type barrierError struct{ msg string }

func (e *barrierError) Error() string { return e.msg }

// generation tracks one barrier cycle; a new pointer value is installed
// each time the barrier trips or is reset, which is what lets waiters
// notice they woke up into a different cycle than the one they parked
// in (java.util.concurrent.CyclicBarrier's Generation object, unchanged
// in spirit).
type generation struct {
	broken bool
}

// CyclicBarrier lets a fixed number of goroutines wait for each other at
// a rendezvous point, optionally running a barrier action once the last
// party arrives, then resets for reuse. It is built out of qsync's own
// Mutex and Condition rather than directly on Synchronizer, the way
// java.util.concurrent.CyclicBarrier is written in terms of
// ReentrantLock and Condition instead of its own AQS subclass.
type CyclicBarrier struct {
	lock    *Mutex
	trip    *Condition
	parties int
	action  func() error

	count int
	gen   *generation
}

// NewCyclicBarrier returns a barrier for parties goroutines. If action is
// non-nil it runs (by whichever goroutine trips the barrier) after the
// last party arrives and before any party is released. parties must be
// positive.
func NewCyclicBarrier(parties int, action func() error) (*CyclicBarrier, error) {
	if parties <= 0 {
		return nil, ErrInvalidArgument
	}
	b := &CyclicBarrier{
		lock:    NewMutex(),
		parties: parties,
		action:  action,
		count:   parties,
		gen:     &generation{},
	}
	b.trip = b.lock.s.NewCondition()
	return b, nil
}

func (b *CyclicBarrier) nextGeneration() {
	b.trip.SignalAll()
	b.count = b.parties
	b.gen = &generation{}
}

func (b *CyclicBarrier) breakBarrier() {
	b.gen.broken = true
	b.count = b.parties
	b.trip.SignalAll()
}

// Await blocks until all parties have called Await, then returns this
// party's arrival index (parties-1 for the first arriver down to 0 for
// the last, matching java.util.concurrent.CyclicBarrier). ctx may be nil
// for an uninterruptible wait.
func (b *CyclicBarrier) Await(ctx context.Context) (int, error) {
	if ctx != nil {
		if err := b.lock.LockContext(ctx); err != nil {
			return -1, err
		}
	} else {
		b.lock.Lock()
	}
	defer b.lock.Unlock()

	g := b.gen
	if g.broken {
		return -1, ErrBrokenBarrier
	}

	index := b.count - 1
	b.count--
	if b.count == 0 {
		if b.action != nil {
			if err := b.action(); err != nil {
				b.breakBarrier()
				return index, err
			}
		}
		b.nextGeneration()
		return index, nil
	}

	for {
		var err error
		if ctx != nil {
			err = b.trip.Await(ctx)
		} else {
			err = b.trip.AwaitUninterruptibly()
		}
		if g.broken {
			return index, ErrBrokenBarrier
		}
		if err != nil {
			if g == b.gen {
				b.breakBarrier()
				return index, err
			}
			// A generation change raced with the cancellation; honor the
			// successful trip and swallow the stale interrupt, mirroring
			// CyclicBarrier.dowait's reinterrupt-after-trip handling.
			continue
		}
		if g != b.gen {
			return index, nil
		}
	}
}

// Reset breaks the barrier for all current waiters and starts a fresh
// generation.
func (b *CyclicBarrier) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.breakBarrier()
	b.nextGeneration()
}

// Parties returns the number of parties required to trip the barrier.
func (b *CyclicBarrier) Parties() int { return b.parties }

// NumberWaiting returns the number of parties currently waiting at the
// barrier.
func (b *CyclicBarrier) NumberWaiting() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.parties - b.count
}

// IsBroken reports whether the barrier is in a broken state.
func (b *CyclicBarrier) IsBroken() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.gen.broken
}
