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

func TestRWMutexMultipleReaders(t *testing.T) {
	rw := qsync.NewRWMutex()
	const readers = 8
	var mu sync.Mutex
	active, maxActive := 0, 0
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := 0; i != readers; i++ {
		go func() {
			defer wg.Done()
			rw.RLock()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			rw.RUnlock()
		}()
	}
	wg.Wait()
	if maxActive < 2 {
		t.Fatalf("expected concurrent readers, observed max %d", maxActive)
	}
}

func TestRWMutexWriterExcludesReaders(t *testing.T) {
	rw := qsync.NewRWMutex()
	rw.Lock()

	readerDone := make(chan struct{})
	go func() {
		rw.RLock()
		close(readerDone)
		rw.RUnlock()
	}()

	select {
	case <-readerDone:
		t.Fatal("reader acquired RLock while writer held the lock")
	case <-time.After(20 * time.Millisecond):
	}

	rw.Unlock()
	select {
	case <-readerDone:
	case <-time.After(time.Second):
		t.Fatal("reader never acquired RLock after writer released")
	}
}

func TestRWMutexUnlockOfUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Unlock of unlocked RWMutex should panic")
		}
	}()
	qsync.NewRWMutex().Unlock()
}
