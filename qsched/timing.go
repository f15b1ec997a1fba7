// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import "time"

// PhaseTimer records how long a single task execution spent running,
// for per-run diagnostics. It is a deliberately small interpretation of
// the teacher's timing.Timer interval-recording idea, trimmed to the
// single phase ScheduledCore needs rather than an arbitrary named
// sequence of intervals.
type PhaseTimer struct {
	start time.Time
}

func newPhaseTimer() *PhaseTimer {
	return &PhaseTimer{start: time.Now()}
}

// Stop returns the elapsed time since the timer was created.
func (p *PhaseTimer) Stop() time.Duration {
	return time.Since(p.start)
}
