// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package qconfig loads the YAML-encoded policy configuration that
// drives a qsched.ScheduledCore. It plays the same role the teacher's
// config package played for generic key/value configuration, narrowed
// to the specific policy fields ScheduledCore needs and backed by
// ghodss/yaml instead of a hand-rolled serialization format.
package qconfig

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"

	"github.com/go-sync-lib/qconc/qsched"
)

// Policy is the YAML-serializable form of qsched.Policy plus the pool
// sizing hints a deployment typically wants to set alongside it.
type Policy struct {
	ContinuePeriodicAfterShutdown bool `json:"continuePeriodicAfterShutdown"`
	ExecuteDelayedAfterShutdown   bool `json:"executeDelayedAfterShutdown"`
	RemoveOnCancel                bool `json:"removeOnCancel"`

	CoreWorkers int `json:"coreWorkers"`
	QueueHint   int `json:"queueCapacityHint"`
}

// Default returns the Policy matching qsched.DefaultPolicy with a
// single core worker.
func Default() Policy {
	d := qsched.DefaultPolicy()
	return Policy{
		ContinuePeriodicAfterShutdown: d.ContinuePeriodicAfterShutdown,
		ExecuteDelayedAfterShutdown:   d.ExecuteDelayedAfterShutdown,
		RemoveOnCancel:                d.RemoveOnCancel,
		CoreWorkers:                   1,
	}
}

// ToSchedPolicy projects the scheduling-relevant fields into a
// qsched.Policy.
func (p Policy) ToSchedPolicy() qsched.Policy {
	return qsched.Policy{
		ContinuePeriodicAfterShutdown: p.ContinuePeriodicAfterShutdown,
		ExecuteDelayedAfterShutdown:   p.ExecuteDelayedAfterShutdown,
		RemoveOnCancel:                p.RemoveOnCancel,
	}
}

// Load reads and parses a Policy from the YAML file at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qconfig: reading %s: %w", path, err)
	}
	p := Default()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("qconfig: parsing %s: %w", path, err)
	}
	if p.CoreWorkers <= 0 {
		return nil, fmt.Errorf("qconfig: %s: coreWorkers must be positive, got %d", path, p.CoreWorkers)
	}
	return &p, nil
}

// Save serializes p as YAML and writes it to path.
func Save(path string, p Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("qconfig: serializing policy: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
