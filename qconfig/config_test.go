// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qconfig

import (
	"os"
	"path/filepath"
	"testing"
)

// TestSaveLoadRoundTrip checks that a Policy saved to YAML and reloaded
// comes back unchanged.
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")

	want := Policy{
		ContinuePeriodicAfterShutdown: true,
		ExecuteDelayedAfterShutdown:   false,
		RemoveOnCancel:                true,
		CoreWorkers:                   4,
		QueueHint:                     64,
	}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}
}

func TestLoadDefaultsCoreWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("removeOnCancel: true\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CoreWorkers != 1 {
		t.Fatalf("got CoreWorkers %d, want default 1", got.CoreWorkers)
	}
	if !got.RemoveOnCancel {
		t.Fatal("RemoveOnCancel should be true as set in the file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of a missing file should return an error")
	}
}

func TestLoadRejectsNonPositiveCoreWorkers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte("coreWorkers: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Load should reject a non-positive coreWorkers")
	}
}
