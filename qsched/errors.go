// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import "errors"

var (
	// ErrInvalidArgument is returned for a non-positive period or delay
	// where one is required.
	ErrInvalidArgument = errors.New("qsched: invalid argument")

	// ErrRejected is the value AbortPolicy panics with when a submission
	// arrives after the core's run state stopped accepting tasks.
	// Schedule/ScheduleAtFixedRate/ScheduleWithFixedDelay do not return
	// it; a rejected submission is handed to the RejectionHandler.
	ErrRejected = errors.New("qsched: task rejected")

	// ErrAlreadyCancelled is the error recorded on a task that is
	// cancelled before it ever starts running; Wait on such a task
	// returns it.
	ErrAlreadyCancelled = errors.New("qsched: task already finished or cancelled")
)
