// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type taskState int32

const (
	taskPending taskState = iota
	taskRunning
	taskDone
	taskCancelled
)

// ScheduledFuture is the handle returned by ScheduledCore's schedule
// methods, mirroring java.util.concurrent.ScheduledFuture.
type ScheduledFuture interface {
	// GetDelay returns the remaining delay until the next trigger; it
	// may be negative if the task is already due.
	GetDelay() time.Duration

	// Cancel prevents a pending task from running, or (if
	// mayInterrupt is set and the task is currently running) requests
	// its context be cancelled. It reports whether the cancellation
	// took effect — false if the task had already finished or was
	// already cancelled.
	Cancel(mayInterrupt bool) bool

	IsCancelled() bool
	IsDone() bool
	IsPeriodic() bool

	// Wait blocks until the task (for a one-shot) or its final
	// execution (for a periodic task, once cancelled or errored) has
	// completed, and returns the error from that execution, if any. A
	// task cancelled before it ever started running reports
	// ErrAlreadyCancelled.
	Wait() error
}

// ScheduledTask is the concrete, heap-resident implementation of
// ScheduledFuture. Fields touched by DelayHeap are only ever mutated
// while its mutex is held; the remainder use atomics so Cancel/IsDone/
// IsCancelled can be called from any goroutine without locking the
// heap.
type ScheduledTask struct {
	seq int64

	// trigger is UnixNano of the next scheduled run. period is 0 for a
	// one-shot task, +p for fixed-rate, -p for fixed-delay (matching
	// spec's sign convention).
	trigger int64
	period  time.Duration

	// fn receives a context that is cancelled if Cancel(true) is called
	// while it is running, so a long-running task can observe
	// interruption instead of running to completion regardless.
	fn func(ctx context.Context) error

	// heapIndex is maintained exclusively by DelayHeap under its lock;
	// -1 means "not currently in the heap".
	heapIndex int

	state      atomic.Int32
	cancelFunc func() // best-effort interrupt of a running execution.

	mu   sync.Mutex
	err  error
	done chan struct{}

	// outer is set to the task itself by newScheduledTask and nothing
	// else sets or reads it: reExecutePeriodic re-enqueues the task
	// directly, and there is no hook for wrapping task execution.
	outer *ScheduledTask
}

func newScheduledTask(seq int64, trigger time.Time, period time.Duration, fn func(ctx context.Context) error) *ScheduledTask {
	t := &ScheduledTask{
		seq:       seq,
		trigger:   trigger.UnixNano(),
		period:    period,
		fn:        fn,
		heapIndex: -1,
		done:      make(chan struct{}),
	}
	t.outer = t
	return t
}

func (t *ScheduledTask) GetDelay() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.trigger) - time.Now().UnixNano())
}

func (t *ScheduledTask) IsPeriodic() bool { return t.period != 0 }

func (t *ScheduledTask) IsCancelled() bool {
	return taskState(t.state.Load()) == taskCancelled
}

func (t *ScheduledTask) IsDone() bool {
	s := taskState(t.state.Load())
	return s == taskDone || s == taskCancelled
}

func (t *ScheduledTask) Wait() error {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancel transitions a pending task straight to cancelled. A task that
// is currently running is left to finish its current execution (with
// its context cancelled if mayInterrupt is set); its periodic
// rescheduling, if any, is suppressed once the execution returns.
func (t *ScheduledTask) Cancel(mayInterrupt bool) bool {
	for {
		s := taskState(t.state.Load())
		if s == taskDone || s == taskCancelled {
			return false
		}
		if s == taskPending {
			if t.state.CompareAndSwap(int32(taskPending), int32(taskCancelled)) {
				t.finish(ErrAlreadyCancelled)
				return true
			}
			continue
		}
		// taskRunning: suppress future reschedules without racing the
		// in-flight execution's own state transition.
		if mayInterrupt && t.cancelFunc != nil {
			t.cancelFunc()
		}
		t.period = 0
		return true
	}
}

func (t *ScheduledTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}

// compareTask orders two tasks by trigger time, breaking ties by
// sequence number (FIFO among equal deadlines), matching spec §5's
// ordering guarantee.
func compareTask(a, b *ScheduledTask) bool {
	if a.trigger != b.trigger {
		return a.trigger < b.trigger
	}
	return a.seq < b.seq
}
