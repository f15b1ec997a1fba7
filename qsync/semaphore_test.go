// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsync_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-sync-lib/qconc/qsync"
)

func TestSemaphoreTryAcquire(t *testing.T) {
	sem := qsync.NewSemaphore(1)
	if !sem.TryAcquire() {
		t.Fatal("TryAcquire on fresh semaphore should succeed")
	}
	if sem.TryAcquire() {
		t.Fatal("TryAcquire on exhausted semaphore should fail")
	}
	sem.Release()
	if sem.AvailablePermits() != 1 {
		t.Fatalf("got %d available permits, want 1", sem.AvailablePermits())
	}
}

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	const limit = 3
	const workers = 20
	sem := qsync.NewSemaphore(limit)

	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i != workers; i++ {
		go func() {
			defer wg.Done()
			sem.Acquire()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			sem.Release()
		}()
	}
	wg.Wait()
	if maxActive > limit {
		t.Fatalf("observed %d concurrently active, limit was %d", maxActive, limit)
	}
}

func TestSemaphoreTryAcquireTimeout(t *testing.T) {
	sem := qsync.NewSemaphore(0)
	ok, err := sem.TryAcquireTimeout(nil, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("TryAcquireTimeout on an empty semaphore should time out")
	}
}
