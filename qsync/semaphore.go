// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import (
	"context"
	"time"
)

// Semaphore is a counting semaphore built in shared mode on Synchronizer,
// mirroring java.util.concurrent.Semaphore's Sync: the state word is the
// available permit count, and Acquire/Release are plain CAS loops with
// no ownership tracking (any goroutine may release a permit it never
// acquired).
type Semaphore struct {
	s *Synchronizer
}

type semaphoreOps struct {
	sem *Semaphore
}

func (o semaphoreOps) nonfairTryAcquireShared(acquires int32) (int32, error) {
	for {
		available := o.sem.s.LoadState()
		remaining := available - acquires
		if remaining < 0 {
			return remaining, nil
		}
		if o.sem.s.CompareAndSwapState(available, remaining) {
			return remaining, nil
		}
	}
}

func (o semaphoreOps) TryAcquireShared(acquires int32) (int32, error) {
	return o.nonfairTryAcquireShared(acquires)
}

func (o semaphoreOps) TryReleaseShared(releases int32) (bool, error) {
	for {
		current := o.sem.s.LoadState()
		next := current + releases
		if next < current {
			return false, ErrInvalidArgument // overflow
		}
		if o.sem.s.CompareAndSwapState(current, next) {
			return true, nil
		}
	}
}

func (semaphoreOps) TryAcquire(int32) (bool, error)   { return false, ErrUnsupported }
func (semaphoreOps) TryRelease(int32) (bool, error)   { return false, ErrUnsupported }
func (semaphoreOps) IsHeldExclusively() bool          { return false }

// NewSemaphore returns a Semaphore initialized with permits available
// permits. permits may be negative, in which case that many releases
// must occur before any acquire can succeed.
func NewSemaphore(permits int32) *Semaphore {
	sem := &Semaphore{}
	sem.s = New(semaphoreOps{sem: sem})
	sem.s.StoreState(permits)
	return sem
}

// Acquire blocks until one permit is available and takes it.
func (sem *Semaphore) Acquire() { _ = sem.s.AcquireShared(1) }

// AcquireN blocks until n permits are available and takes them all.
func (sem *Semaphore) AcquireN(n int32) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	return sem.s.AcquireShared(n)
}

// AcquireContext is Acquire but cancellable via ctx.
func (sem *Semaphore) AcquireContext(ctx context.Context) error {
	return sem.s.AcquireSharedContext(ctx, 1)
}

// TryAcquireTimeout attempts to acquire one permit within timeout.
func (sem *Semaphore) TryAcquireTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	return sem.s.AcquireSharedTimeout(ctx, 1, timeout)
}

// TryAcquire attempts to acquire one permit without blocking.
func (sem *Semaphore) TryAcquire() bool {
	remaining, _ := semaphoreOps{sem: sem}.nonfairTryAcquireShared(1)
	return remaining >= 0
}

// Release returns one permit, potentially unblocking a waiting acquirer.
func (sem *Semaphore) Release() { _, _ = sem.s.ReleaseShared(1) }

// ReleaseN returns n permits.
func (sem *Semaphore) ReleaseN(n int32) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	_, err := sem.s.ReleaseShared(n)
	return err
}

// AvailablePermits returns the current permit count. Acquires never take
// it below zero; it is negative only while a semaphore created with a
// negative count has not yet been released that many times.
func (sem *Semaphore) AvailablePermits() int32 { return sem.s.LoadState() }
