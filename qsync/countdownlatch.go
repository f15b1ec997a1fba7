// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import (
	"context"
	"time"
)

// CountDownLatch is a one-shot shared gate: the state word starts at
// count and CountDown decrements it until it reaches zero, at which
// point every blocked and future Await call returns immediately. It
// mirrors java.util.concurrent.CountDownLatch's Sync.
type CountDownLatch struct {
	s *Synchronizer
}

type countDownLatchOps struct {
	l *CountDownLatch
}

func (o countDownLatchOps) TryAcquireShared(int32) (int32, error) {
	if o.l.s.LoadState() == 0 {
		return 1, nil
	}
	return -1, nil
}

func (o countDownLatchOps) TryReleaseShared(int32) (bool, error) {
	for {
		c := o.l.s.LoadState()
		if c == 0 {
			return false, nil
		}
		next := c - 1
		if o.l.s.CompareAndSwapState(c, next) {
			return next == 0, nil
		}
	}
}

func (countDownLatchOps) TryAcquire(int32) (bool, error) { return false, ErrUnsupported }
func (countDownLatchOps) TryRelease(int32) (bool, error) { return false, ErrUnsupported }
func (countDownLatchOps) IsHeldExclusively() bool        { return false }

// NewCountDownLatch returns a latch that requires count calls to
// CountDown before any Await call returns. count must be non-negative.
func NewCountDownLatch(count int32) (*CountDownLatch, error) {
	if count < 0 {
		return nil, ErrInvalidArgument
	}
	l := &CountDownLatch{}
	l.s = New(countDownLatchOps{l: l})
	l.s.StoreState(count)
	return l, nil
}

// Await blocks until the count reaches zero.
func (l *CountDownLatch) Await() { _ = l.s.AcquireShared(1) }

// AwaitContext is Await but cancellable via ctx.
func (l *CountDownLatch) AwaitContext(ctx context.Context) error {
	return l.s.AcquireSharedContext(ctx, 1)
}

// AwaitTimeout blocks until the count reaches zero or timeout elapses,
// reporting whether the count reached zero.
func (l *CountDownLatch) AwaitTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	return l.s.AcquireSharedTimeout(ctx, 1, timeout)
}

// CountDown decrements the count, releasing all waiters once it reaches
// zero. Calls made after the count has already reached zero have no
// effect.
func (l *CountDownLatch) CountDown() { _, _ = l.s.ReleaseShared(1) }

// Count returns the current count.
func (l *CountDownLatch) Count() int32 { return l.s.LoadState() }
