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

// testData is the state shared between the goroutines of
// TestMutexNGoroutine: i and id are guarded by m, and completion is
// tracked with wg.
type testData struct {
	nGoroutines int
	loopCount   int

	mu sync.Mutex // not used by the tests in this file
	m  *qsync.Mutex

	i  int
	id int

	finishedGoroutines int
	wg                  sync.WaitGroup
}

func (td *testData) finished() {
	td.wg.Done()
}

func countingLoop(td *testData, id int) {
	for i := 0; i != td.loopCount; i++ {
		td.m.Lock()
		td.id = id
		td.i++
		if td.id != id {
			td.m.Unlock()
			panic("td.id != id")
		}
		td.m.Unlock()
	}
	td.finished()
}

// TestMutexNGoroutine starts several goroutines, each incrementing a
// shared counter a fixed number of times under a qsync.Mutex, and checks
// the final count.
func TestMutexNGoroutine(t *testing.T) {
	td := &testData{nGoroutines: 5, loopCount: 10000, m: qsync.NewMutex()}
	td.wg.Add(td.nGoroutines)
	for i := 0; i != td.nGoroutines; i++ {
		go countingLoop(td, i)
	}
	td.wg.Wait()
	if td.i != td.nGoroutines*td.loopCount {
		t.Errorf("got %d increments, want %d", td.i, td.nGoroutines*td.loopCount)
	}
}

func TestMutexTryLock(t *testing.T) {
	m := qsync.NewMutex()
	if !m.TryLock() {
		t.Fatal("TryLock on free mutex should succeed")
	}
	if m.TryLock() {
		t.Fatal("TryLock on held mutex should fail")
	}
	m.Unlock()
	if !m.TryLock() {
		t.Fatal("TryLock after unlock should succeed")
	}
	m.Unlock()
}

func TestMutexUnlockOfUnlockedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Unlock of unlocked mutex should panic")
		}
	}()
	qsync.NewMutex().Unlock()
}

// TestMutexFIFOOrder checks that goroutines blocked on Lock acquire it in
// the order they queued: each goroutine is started only after the
// previous one has had time to park behind the held lock, each records
// its id upon acquiring, and the recorded ids must be in start order.
func TestMutexFIFOOrder(t *testing.T) {
	m := qsync.NewMutex()
	const n = 8
	order := make([]int, 0, n)
	var mu sync.Mutex
	var wg sync.WaitGroup

	m.Lock() // hold the lock so every goroutine below queues up.
	started := make(chan struct{}, n)
	for i := 0; i != n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			started <- struct{}{}
			m.Lock()
			mu.Lock()
			order = append(order, id)
			mu.Unlock()
			m.Unlock()
		}(i)
		<-started
		time.Sleep(5 * time.Millisecond) // let goroutine i park before the next one queues.
	}
	m.Unlock()
	wg.Wait()

	if len(order) != n {
		t.Fatalf("got %d acquisitions, want %d", len(order), n)
	}
	for i, id := range order {
		if id != i {
			t.Fatalf("acquisition %d went to goroutine %d, want %d (order %v)", i, id, i, order)
		}
	}
}
