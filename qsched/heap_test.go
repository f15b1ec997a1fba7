// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import (
	"context"
	"testing"
	"time"
)

func TestDelayHeapOfferTakeOrder(t *testing.T) {
	h := NewDelayHeap()
	now := time.Now()
	a := newScheduledTask(1, now.Add(30*time.Millisecond), 0, nil)
	b := newScheduledTask(2, now.Add(10*time.Millisecond), 0, nil)
	c := newScheduledTask(3, now.Add(20*time.Millisecond), 0, nil)
	h.Offer(a)
	h.Offer(b)
	h.Offer(c)

	ctx := context.Background()
	first := h.Take(ctx)
	second := h.Take(ctx)
	third := h.Take(ctx)
	if first != b || second != c || third != a {
		t.Fatalf("got take order %v %v %v, want b c a", first.seq, second.seq, third.seq)
	}
}

func TestDelayHeapFIFOForEqualTriggers(t *testing.T) {
	h := NewDelayHeap()
	trigger := time.Now().Add(10 * time.Millisecond)
	first := newScheduledTask(1, trigger, 0, nil)
	second := newScheduledTask(2, trigger, 0, nil)
	h.Offer(second)
	h.Offer(first)

	got1 := h.Take(context.Background())
	got2 := h.Take(context.Background())
	if got1.seq != 1 || got2.seq != 2 {
		t.Fatalf("equal-trigger tasks did not run in submission order: got seq %d then %d", got1.seq, got2.seq)
	}
}

func TestDelayHeapRemove(t *testing.T) {
	h := NewDelayHeap()
	a := newScheduledTask(1, time.Now().Add(time.Hour), 0, nil)
	b := newScheduledTask(2, time.Now().Add(2*time.Hour), 0, nil)
	h.Offer(a)
	h.Offer(b)
	if got := h.Len(); got != 2 {
		t.Fatalf("got len %d, want 2", got)
	}
	if !h.Remove(a) {
		t.Fatal("Remove(a) should report true")
	}
	if got := h.Len(); got != 1 {
		t.Fatalf("got len %d after remove, want 1", got)
	}
	if h.Remove(a) {
		t.Fatal("Remove of an already-removed task should report false")
	}
}

func TestDelayHeapTakeRespectsContext(t *testing.T) {
	h := NewDelayHeap()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if task := h.Take(ctx); task != nil {
		t.Fatalf("Take on an empty heap with a cancelled context should return nil, got %v", task)
	}
}

func TestDelayHeapHeapIndexAccuracy(t *testing.T) {
	h := NewDelayHeap()
	tasks := make([]*ScheduledTask, 0, 20)
	for i := 0; i != 20; i++ {
		task := newScheduledTask(int64(i), time.Now().Add(time.Duration(20-i)*time.Minute), 0, nil)
		tasks = append(tasks, task)
		h.Offer(task)
	}
	h.mu.Lock()
	for idx, task := range h.h {
		if task.heapIndex != idx {
			t.Errorf("task seq %d has heapIndex %d, but sits at array index %d", task.seq, task.heapIndex, idx)
		}
	}
	h.mu.Unlock()
}
