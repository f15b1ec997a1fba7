// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qsched provides a scheduled executor core: a delay-ordered
// heap of tasks (DelayHeap), a fixed-size WorkerPool that drains it, and
// a ScheduledCore that ties the two together with one-shot, fixed-rate
// and fixed-delay scheduling semantics.
//
// The design follows java.util.concurrent.ScheduledThreadPoolExecutor:
// a single DelayedWorkQueue backed by a binary min-heap with an index
// kept on each element for O(log n) arbitrary removal, and a
// leader-follower protocol so only one worker ever pays for a timed
// wait on the current head.
package qsched
