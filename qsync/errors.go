// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync

import "errors"

var (
	// ErrInterrupted is returned by an interrupted wait only when no
	// context error is available; a cancelled context's own ctx.Err() is
	// returned in preference.
	ErrInterrupted = errors.New("qsync: acquire interrupted")

	// ErrNotHeld is returned when release/await is attempted by a
	// goroutine that does not hold the synchronizer exclusively.
	ErrNotHeld = errors.New("qsync: synchronizer not held exclusively")

	// ErrInvalidArgument is returned for non-positive counts/permits
	// where the spec requires strictly positive values.
	ErrInvalidArgument = errors.New("qsync: invalid argument")

	// ErrUnsupported is the default result of a hook a concrete
	// synchronizer did not override.
	ErrUnsupported = errors.New("qsync: operation not supported by this synchronizer")
)
