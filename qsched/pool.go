// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-sync-lib/qconc/vlog"
)

// poolState mirrors ScheduledThreadPoolExecutor's run-state lattice:
// RUNNING -> SHUTDOWN -> STOP -> TIDYING -> TERMINATED, kept in a single
// atomic.Int32 the way qsync.Synchronizer keeps its state word.
type poolState int32

const (
	poolRunning poolState = iota
	poolShutdown
	poolStop
	poolTidying
	poolTerminated
)

// WorkerPool is a fixed-size set of goroutines, each looping
// task := heap.Take(); task.run(), grounded on simplemr's
// runMappers/runMapper pair: a known-size goroutine fleet pulling work
// off a shared channel-like source and reporting completion through a
// WaitGroup instead of hand-rolled bookkeeping.
type WorkerPool struct {
	heap *DelayHeap
	core int

	state   atomic.Int32
	wg      sync.WaitGroup
	started atomic.Int32

	stopCtx    context.Context
	stopCancel context.CancelFunc

	run func(t *ScheduledTask)

	log vlog.Logger
}

// NewWorkerPool returns a pool that will launch up to coreSize
// goroutines, each invoking run for every task it takes from heap.
func NewWorkerPool(heap *DelayHeap, coreSize int, run func(t *ScheduledTask), log vlog.Logger) *WorkerPool {
	if log == nil {
		log = vlog.Log
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		heap:       heap,
		core:       coreSize,
		stopCtx:    ctx,
		stopCancel: cancel,
		run:        run,
		log:        log,
	}
	return p
}

// EnsurePrestart launches one more worker goroutine, up to the
// configured core size, mirroring ScheduledThreadPoolExecutor's
// ensurePrestart() called after every successful submission.
func (p *WorkerPool) EnsurePrestart() {
	for {
		n := p.started.Load()
		if int(n) >= p.core {
			return
		}
		if p.started.CompareAndSwap(n, n+1) {
			p.wg.Add(1)
			go p.worker(int(n))
			return
		}
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	p.log.Infof("worker %d starting", id)
	for {
		t := p.heap.Take(p.stopCtx)
		if t == nil {
			p.log.Infof("worker %d exiting", id)
			return
		}
		p.run(t)
	}
}

// Shutdown transitions the pool from RUNNING to SHUTDOWN: no new tasks
// should be accepted (enforced by the caller, ScheduledCore), but
// workers keep draining the heap until it is empty or Stop is called.
func (p *WorkerPool) Shutdown() {
	p.state.CompareAndSwap(int32(poolRunning), int32(poolShutdown))
}

// Stop transitions to STOP and cancels every worker's context, which
// unblocks any Take call in progress; workers then exit once Take
// returns nil.
func (p *WorkerPool) Stop() {
	for {
		s := poolState(p.state.Load())
		if s >= poolStop {
			break
		}
		if p.state.CompareAndSwap(int32(s), int32(poolStop)) {
			break
		}
	}
	p.stopCancel()
}

// AwaitTermination blocks until every worker goroutine has exited.
func (p *WorkerPool) AwaitTermination() {
	p.wg.Wait()
	p.state.Store(int32(poolTerminated))
}

// State reports the pool's current lifecycle state.
func (p *WorkerPool) State() poolState { return poolState(p.state.Load()) }

// ActiveWorkers returns the number of worker goroutines launched so far
// (not all of which are necessarily still running).
func (p *WorkerPool) ActiveWorkers() int { return int(p.started.Load()) }
