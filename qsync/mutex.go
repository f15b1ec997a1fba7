// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import (
	"context"
	"time"
)

// Mutex is a non-reentrant exclusive lock built directly on Synchronizer,
// the same way java.util.concurrent.locks.ReentrantLock's non-fair Sync
// wraps AbstractQueuedSynchronizer, minus the reentrant hold count: a
// second Lock call from the same goroutine blocks like any other.
type Mutex struct {
	s *Synchronizer
}

type mutexOps struct {
	m *Mutex
}

func (o mutexOps) TryAcquire(arg int32) (bool, error) {
	return o.m.s.CompareAndSwapState(0, 1), nil
}

func (o mutexOps) TryRelease(int32) (bool, error) {
	if o.m.s.LoadState() == 0 {
		return false, ErrNotHeld
	}
	o.m.s.StoreState(0)
	return true, nil
}

func (mutexOps) TryAcquireShared(int32) (int32, error) { return -1, ErrUnsupported }
func (mutexOps) TryReleaseShared(int32) (bool, error)  { return false, ErrUnsupported }

func (o mutexOps) IsHeldExclusively() bool { return o.m.s.LoadState() == 1 }

// NewMutex returns an unlocked Mutex.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.s = New(mutexOps{m: m})
	return m
}

// Lock blocks until the mutex is acquired; it cannot be cancelled.
func (m *Mutex) Lock() { _ = m.s.Acquire(0) }

// LockContext blocks until the mutex is acquired or ctx is done.
func (m *Mutex) LockContext(ctx context.Context) error { return m.s.AcquireContext(ctx, 0) }

// TryLockTimeout attempts to acquire the mutex within timeout, reporting
// whether it succeeded.
func (m *Mutex) TryLockTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	return m.s.AcquireTimeout(ctx, 0, timeout)
}

// TryLock attempts to acquire the mutex without blocking.
func (m *Mutex) TryLock() bool {
	return m.s.CompareAndSwapState(0, 1)
}

// Unlock releases the mutex. It is the caller's responsibility to only
// call Unlock while holding the lock; like sync.Mutex this is not
// checked against goroutine identity.
func (m *Mutex) Unlock() {
	if _, err := m.s.Release(0); err != nil {
		panic("qsync: unlock of unlocked mutex")
	}
}

// IsLocked reports whether the mutex is currently held. Intended for
// diagnostics, not for synchronization decisions.
func (m *Mutex) IsLocked() bool { return m.s.LoadState() == 1 }

// NewCondition returns a Condition associated with m. The caller must
// hold m when calling any method on the returned Condition.
func (m *Mutex) NewCondition() *Condition { return m.s.NewCondition() }
