// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/go-sync-lib/qconc/vlog"
)

// RejectionHandler is invoked instead of enqueuing a task that was
// submitted after the core entered a state that rejects it.
type RejectionHandler func(t *ScheduledTask, c *ScheduledCore)

// DiscardPolicy silently drops a rejected task. It is the default
// RejectionHandler.
func DiscardPolicy(*ScheduledTask, *ScheduledCore) {}

// AbortPolicy is a RejectionHandler that panics with ErrRejected; useful
// in tests or programs that treat rejection as a bug.
func AbortPolicy(*ScheduledTask, *ScheduledCore) { panic(ErrRejected) }

// Policy bundles the three process-wide ScheduledCore booleans
// described in spec §4.7.
type Policy struct {
	ContinuePeriodicAfterShutdown bool
	ExecuteDelayedAfterShutdown   bool
	RemoveOnCancel                bool
}

// DefaultPolicy matches the spec's defaults.
func DefaultPolicy() Policy {
	return Policy{
		ContinuePeriodicAfterShutdown: false,
		ExecuteDelayedAfterShutdown:   true,
		RemoveOnCancel:                false,
	}
}

// ScheduledCore owns a DelayHeap and a WorkerPool and implements
// one-shot, fixed-rate and fixed-delay scheduling on top of them, per
// spec §4.7 (java.util.concurrent.ScheduledThreadPoolExecutor).
type ScheduledCore struct {
	heap *DelayHeap
	pool *WorkerPool

	policy   atomic.Pointer[Policy]
	rejected RejectionHandler

	seq     atomic.Int64
	runState atomic.Int32 // poolState, mirrors pool.state but owned here so Schedule can check it without the pool.

	metrics *Metrics
	log     vlog.Logger
}

// NewScheduledCore returns a core with coreSize worker goroutines, using
// policy (DefaultPolicy() if nil), metrics (nil disables metrics) and
// log (nil uses vlog.Log).
func NewScheduledCore(coreSize int, policy *Policy, metrics *Metrics, log vlog.Logger) *ScheduledCore {
	if policy == nil {
		p := DefaultPolicy()
		policy = &p
	}
	if log == nil {
		log = vlog.Log
	}
	c := &ScheduledCore{
		heap:     NewDelayHeap(),
		rejected: DiscardPolicy,
		metrics:  metrics,
		log:      log,
	}
	c.policy.Store(policy)
	c.pool = NewWorkerPool(c.heap, coreSize, c.runTask, log)
	return c
}

// SetRejectionHandler installs the handler called for a task that
// Schedule* could not accept.
func (c *ScheduledCore) SetRejectionHandler(h RejectionHandler) {
	if h == nil {
		h = DiscardPolicy
	}
	c.rejected = h
}

// SetPolicy atomically replaces the active Policy.
func (c *ScheduledCore) SetPolicy(p Policy) { c.policy.Store(&p) }

// GetPolicy returns the currently active Policy.
func (c *ScheduledCore) GetPolicy() Policy { return *c.policy.Load() }

func (c *ScheduledCore) state() poolState { return poolState(c.runState.Load()) }

// triggerTime computes now+delay, guarding against the overflow the
// spec calls out: if the heap's current head already has a negative
// delay and delay-headDelay would itself be negative, the result is
// pinned so no pairwise compareTask subtraction can overflow.
func (c *ScheduledCore) triggerTime(delay time.Duration) time.Time {
	if delay < 0 {
		delay = 0
	}
	now := time.Now()
	if head := c.heapHead(); head != nil {
		headDelay := head.GetDelay()
		if headDelay < 0 && delay-headDelay < 0 {
			return now.Add(time.Duration(math.MaxInt64) + headDelay)
		}
	}
	return now.Add(delay)
}

func (c *ScheduledCore) heapHead() *ScheduledTask {
	snap := c.heap.Snapshot()
	if len(snap) == 0 {
		return nil
	}
	best := snap[0]
	for _, t := range snap[1:] {
		if compareTask(t, best) {
			best = t
		}
	}
	return best
}

// Schedule submits a one-shot task to run after delay. fn receives a
// context cancelled if Cancel(true) is called while it is running.
func (c *ScheduledCore) Schedule(delay time.Duration, fn func(ctx context.Context) error) (ScheduledFuture, error) {
	return c.submit(delay, 0, fn)
}

// ScheduleAtFixedRate submits fn to first run after initialDelay and
// then every period thereafter, regardless of each run's duration
// (subsequent runs queue back-to-back if a run overruns its period).
// period must be positive.
func (c *ScheduledCore) ScheduleAtFixedRate(initialDelay, period time.Duration, fn func(ctx context.Context) error) (ScheduledFuture, error) {
	if period <= 0 {
		return nil, ErrInvalidArgument
	}
	return c.submit(initialDelay, period, fn)
}

// ScheduleWithFixedDelay submits fn to first run after initialDelay and
// then delay after each run completes. delay must be positive.
func (c *ScheduledCore) ScheduleWithFixedDelay(initialDelay, delay time.Duration, fn func(ctx context.Context) error) (ScheduledFuture, error) {
	if delay <= 0 {
		return nil, ErrInvalidArgument
	}
	return c.submit(initialDelay, -delay, fn)
}

func (c *ScheduledCore) submit(initialDelay, period time.Duration, fn func(ctx context.Context) error) (ScheduledFuture, error) {
	if fn == nil {
		return nil, ErrInvalidArgument
	}
	trigger := c.triggerTime(initialDelay)
	t := newScheduledTask(c.seq.Add(1), trigger, period, fn)
	c.delayedExecute(t)
	return t, nil
}

func (c *ScheduledCore) ensurePrestart() {
	c.pool.EnsurePrestart()
	if c.metrics != nil {
		c.metrics.ActiveWorkers.Set(float64(c.pool.ActiveWorkers()))
	}
}

func (c *ScheduledCore) delayedExecute(t *ScheduledTask) {
	if c.state() != poolRunning {
		c.rejected(t, c)
		return
	}
	c.heap.Offer(t)
	if c.metrics != nil {
		c.metrics.QueueDepth.Set(float64(c.heap.Len()))
	}
	if !c.canRunInCurrentRunState(t.IsPeriodic()) {
		if c.heap.Remove(t) {
			t.Cancel(false)
		}
	} else {
		c.ensurePrestart()
	}
}

// canRunInCurrentRunState implements spec §4.7's policy table.
func (c *ScheduledCore) canRunInCurrentRunState(isPeriodic bool) bool {
	switch c.state() {
	case poolRunning:
		return true
	case poolShutdown:
		p := c.GetPolicy()
		if isPeriodic {
			return p.ContinuePeriodicAfterShutdown
		}
		return p.ExecuteDelayedAfterShutdown
	default:
		return false
	}
}

func (c *ScheduledCore) runTask(t *ScheduledTask) {
	if !c.canRunInCurrentRunState(t.IsPeriodic()) {
		t.Cancel(false)
		return
	}

	if !t.state.CompareAndSwap(int32(taskPending), int32(taskRunning)) {
		return // already cancelled.
	}

	ctx, cancel := context.WithCancel(c.pool.stopCtx)
	t.cancelFunc = cancel

	var timer *PhaseTimer
	if c.metrics != nil {
		timer = newPhaseTimer()
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Infof("task %d panicked: %v", t.seq, r)
			}
			cancel()
		}()
		return t.fn(ctx)
	}()

	if timer != nil {
		c.metrics.observeRun(timer.Stop())
	}

	if !t.IsPeriodic() {
		t.state.CompareAndSwap(int32(taskRunning), int32(taskDone))
		t.finish(err)
		return
	}

	if err != nil {
		t.state.CompareAndSwap(int32(taskRunning), int32(taskDone))
		t.finish(err)
		return
	}
	if !t.state.CompareAndSwap(int32(taskRunning), int32(taskPending)) {
		// Cancel() raced us and already moved the state past running.
		t.finish(nil)
		return
	}
	c.reExecutePeriodic(t)
}

// reExecutePeriodic reschedules a periodic task for its next run, per
// spec §4.7: fixed-rate advances from the previous trigger, fixed-delay
// anchors on now.
func (c *ScheduledCore) reExecutePeriodic(t *ScheduledTask) {
	if t.period > 0 {
		t.trigger += int64(t.period)
	} else {
		t.trigger = time.Now().Add(-t.period).UnixNano()
	}
	if !c.canRunInCurrentRunState(true) {
		t.Cancel(false)
		return
	}
	c.heap.Offer(t)
	if !c.canRunInCurrentRunState(true) {
		if c.heap.Remove(t) {
			t.Cancel(false)
		}
		return
	}
	c.pool.EnsurePrestart()
}

// Cancel cancels t; if the core's RemoveOnCancel policy is set and t
// still has a valid heap position, it is removed from the heap
// immediately rather than left to be skipped over at its trigger time.
func (c *ScheduledCore) Cancel(t *ScheduledTask, mayInterrupt bool) bool {
	ok := t.Cancel(mayInterrupt)
	if ok {
		if c.metrics != nil {
			c.metrics.CancelledTotal.Inc()
		}
		if c.GetPolicy().RemoveOnCancel {
			c.heap.Remove(t)
		}
	}
	return ok
}

// Shutdown stops accepting new tasks (every later submission goes to the
// rejection handler), cancels and removes the queued tasks the current
// policy disallows, and lets workers keep draining what remains; it does
// not block.
func (c *ScheduledCore) Shutdown() {
	c.runState.CompareAndSwap(int32(poolRunning), int32(poolShutdown))
	c.pool.Shutdown()
	c.onShutdown()
}

// ShutdownNow additionally cancels every worker's in-flight task context
// and prevents any further task from running.
func (c *ScheduledCore) ShutdownNow() []*ScheduledTask {
	for {
		s := c.state()
		if s >= poolStop {
			break
		}
		if c.runState.CompareAndSwap(int32(s), int32(poolStop)) {
			break
		}
	}
	c.pool.Stop()
	remaining := c.heap.Snapshot()
	for _, t := range remaining {
		c.heap.Remove(t)
		t.Cancel(true)
	}
	return remaining
}

// AwaitTermination blocks until every worker goroutine has exited.
func (c *ScheduledCore) AwaitTermination() {
	c.pool.AwaitTermination()
	c.runState.Store(int32(poolTerminated))
}

// onShutdown walks a snapshot of the heap and cancels any task whose
// class (periodic vs one-shot) the current policy no longer permits,
// plus any task that was already cancelled, per spec §4.7.
func (c *ScheduledCore) onShutdown() {
	for _, t := range c.heap.Snapshot() {
		if t.IsCancelled() || !c.canRunInCurrentRunState(t.IsPeriodic()) {
			if c.heap.Remove(t) {
				t.Cancel(false)
			}
		}
	}
}

// QueueLen returns the number of tasks currently held by the heap.
func (c *ScheduledCore) QueueLen() int { return c.heap.Len() }
