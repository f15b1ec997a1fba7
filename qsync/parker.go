// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import "time"

// A parker is a binary semaphore used to park and unpark the goroutine
// associated with a wait node. It is the Go stand-in for the thread
// handle a JVM-based queued synchronizer parks and unparks directly;
// see waiter.binarySemaphore in v.io/x/lib/nsync for the pattern this is
// grounded on.
type parker struct {
	ch chan struct{}
}

func newParker() *parker {
	return &parker{ch: make(chan struct{}, 1)}
}

// park blocks until unpark is called at least once since the last park.
func (p *parker) park() {
	<-p.ch
}

// parkCtx blocks until unpark, ctx is done, or deadline expires (zero
// deadline means no deadline). It reports which happened.
func (p *parker) parkCtx(done <-chan struct{}, deadline time.Time) (woken, expired, cancelled bool) {
	if done == nil && deadline.IsZero() {
		p.park()
		return true, false, false
	}
	var timerC <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			// Already expired; still drain a pending unpark non-blockingly
			// so a racing release isn't lost.
			select {
			case <-p.ch:
				return true, false, false
			default:
				return false, true, false
			}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timerC = timer.C
	}
	select {
	case <-p.ch:
		return true, false, false
	case <-timerC:
		return false, true, false
	case <-done:
		return false, false, true
	}
}

// unpark ensures the parker's count is 1; it never blocks.
func (p *parker) unpark() {
	select {
	case p.ch <- struct{}{}:
	default:
	}
}
