// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qsync provides a queued synchronizer framework: a reusable
// engine for blocking acquire/release semantics built on a single atomic
// state word and an intrusive FIFO wait queue. Mutex, RWMutex, Semaphore,
// CountDownLatch and CyclicBarrier are all implemented as thin
// interpretations of the state word on top of Synchronizer.
//
// The design follows java.util.concurrent.locks.AbstractQueuedSynchronizer:
// a CLH-style queue of waiting goroutines with explicit prev links so that
// a parked goroutine can cancel (on context cancellation or timeout)
// without requiring the whole queue to be locked.
//
// Park/unpark of a queued goroutine is implemented with a per-node binary
// semaphore (a buffered channel of capacity one), the same pattern the
// v.io/x/lib/nsync package used for its own waiter queues.
package qsync
