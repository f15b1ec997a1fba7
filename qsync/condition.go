// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import (
	"context"
	"runtime"
	"time"
)

// Condition is a Mesa-style condition queue tied to a Synchronizer,
// analogous to AbstractQueuedSynchronizer.ConditionObject. It is a
// singly-linked list of nodes in state CONDITION, chained through
// node.nextWaiter. Every method requires the caller to hold the
// associated Synchronizer exclusively; see spec §4.5.
type Condition struct {
	s           *Synchronizer
	firstWaiter *node
	lastWaiter  *node
}

// NewCondition returns a Condition bound to s.
func (s *Synchronizer) NewCondition() *Condition {
	return &Condition{s: s}
}

func (c *Condition) addWaiter() (*node, error) {
	if !c.s.ops.IsHeldExclusively() {
		return nil, ErrNotHeld
	}
	t := c.lastWaiter
	if t != nil && t.status() != statusCondition {
		c.unlinkCancelledWaiters()
		t = c.lastWaiter
	}
	n := newNode(exclusive)
	n.setStatus(statusCondition)
	if t == nil {
		c.firstWaiter = n
	} else {
		t.nextWaiter = n
	}
	c.lastWaiter = n
	return n, nil
}

// unlinkCancelledWaiters purges nodes that are no longer in state
// CONDITION from the head of the condition list.
func (c *Condition) unlinkCancelledWaiters() {
	t := c.firstWaiter
	var trail *node
	for t != nil {
		next := t.nextWaiter
		if t.status() != statusCondition {
			t.nextWaiter = nil
			if trail == nil {
				c.firstWaiter = next
			} else {
				trail.nextWaiter = next
			}
			if next == nil {
				c.lastWaiter = trail
			}
		} else {
			trail = t
		}
		t = next
	}
}

// transferForSignal moves n from the condition queue to the sync queue,
// returning false if n was already cancelled.
func (s *Synchronizer) transferForSignal(n *node) bool {
	if !n.casStatus(statusCondition, statusInitial) {
		return false
	}
	pred := s.q.enqueue(n)
	ws := pred.status()
	if ws > 0 {
		n.p.unpark()
	} else if !pred.casStatus(ws, statusSignal) {
		n.p.unpark()
	}
	return true
}

func (c *Condition) doSignal(first *node) {
	for first != nil {
		next := first.nextWaiter
		first.nextWaiter = nil
		c.firstWaiter = next
		if next == nil {
			c.lastWaiter = nil
		}
		if c.s.transferForSignal(first) {
			return
		}
		first = next
	}
}

func (c *Condition) doSignalAll(first *node) {
	c.firstWaiter, c.lastWaiter = nil, nil
	for first != nil {
		next := first.nextWaiter
		first.nextWaiter = nil
		c.s.transferForSignal(first)
		first = next
	}
}

// Signal wakes the first non-cancelled waiter, if any. The caller must
// hold the Synchronizer exclusively.
func (c *Condition) Signal() error {
	if !c.s.ops.IsHeldExclusively() {
		return ErrNotHeld
	}
	if first := c.firstWaiter; first != nil {
		c.doSignal(first)
	}
	return nil
}

// SignalAll wakes every waiter. The caller must hold the Synchronizer
// exclusively.
func (c *Condition) SignalAll() error {
	if !c.s.ops.IsHeldExclusively() {
		return ErrNotHeld
	}
	if first := c.firstWaiter; first != nil {
		c.doSignalAll(first)
	}
	return nil
}

// spinUntilOnSyncQueue busy-waits for n to become visible on the sync
// queue after signal() has begun, but not yet finished, transferring it.
func (c *Condition) spinUntilOnSyncQueue(n *node) {
	for !c.s.q.isOnSyncQueue(n) {
		runtime.Gosched()
	}
}

// Await atomically releases the Synchronizer and blocks until Signal,
// SignalAll, or ctx being done (a nil ctx or context.Background() gives
// an uninterruptible wait). It always reacquires the Synchronizer at
// its pre-await state before returning, even on error.
func (c *Condition) Await(ctx context.Context) error {
	n, err := c.addWaiter()
	if err != nil {
		return err
	}
	savedState, err := c.s.fullyRelease(n)
	if err != nil {
		return err
	}

	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	interruptMode := 0 // 0 none, 1 we transitioned (report ctx error), 2 signal transitioned first
	for !c.s.q.isOnSyncQueue(n) {
		if done == nil {
			n.p.park()
			continue
		}
		_, _, cancelled := n.p.parkCtx(done, time.Time{})
		if !cancelled {
			continue
		}
		if n.casStatus(statusCondition, statusInitial) {
			c.s.q.enqueue(n)
			interruptMode = 1
		} else {
			c.spinUntilOnSyncQueue(n)
			interruptMode = 2
		}
		break
	}

	if rerr := c.s.reacquireQueued(n, savedState); rerr != nil && interruptMode == 0 {
		return rerr
	}
	if n.nextWaiter != nil {
		c.unlinkCancelledWaiters()
	}
	if interruptMode == 1 {
		return ctxErr(ctx)
	}
	return nil
}

// AwaitUninterruptibly is equivalent to Await(nil): it cannot be
// cancelled.
func (c *Condition) AwaitUninterruptibly() error {
	return c.Await(nil)
}

// AwaitTimeout is the timed variant of Await. It reports whether the
// deadline was reached before a signal arrived.
func (c *Condition) AwaitTimeout(ctx context.Context, timeout time.Duration) (timedOut bool, err error) {
	n, aerr := c.addWaiter()
	if aerr != nil {
		return false, aerr
	}
	savedState, rerr := c.s.fullyRelease(n)
	if rerr != nil {
		return false, rerr
	}

	deadline := time.Now().Add(timeout)
	var done <-chan struct{}
	if ctx != nil {
		done = ctx.Done()
	}
	interruptMode := 0
	for !c.s.q.isOnSyncQueue(n) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			if n.casStatus(statusCondition, statusInitial) {
				c.s.q.enqueue(n)
				timedOut = true
			} else {
				c.spinUntilOnSyncQueue(n)
			}
			break
		}
		_, expired, cancelled := n.p.parkCtx(done, deadline)
		if expired {
			continue
		}
		if cancelled {
			if n.casStatus(statusCondition, statusInitial) {
				c.s.q.enqueue(n)
				interruptMode = 1
			} else {
				c.spinUntilOnSyncQueue(n)
				interruptMode = 2
			}
			break
		}
	}

	if err := c.s.reacquireQueued(n, savedState); err != nil && interruptMode == 0 {
		return timedOut, err
	}
	if n.nextWaiter != nil {
		c.unlinkCancelledWaiters()
	}
	if interruptMode == 1 {
		return timedOut, ctxErr(ctx)
	}
	return timedOut, nil
}
