// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package qsched

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors ScheduledCore and WorkerPool
// report against. It is never registered against the global default
// registry; callers pass a prometheus.Registerer explicitly (typically
// prometheus.NewRegistry()) so a qsched.ScheduledCore stays embeddable
// in a process that already runs its own collectors.
type Metrics struct {
	QueueDepth     prometheus.Gauge
	ActiveWorkers  prometheus.Gauge
	CancelledTotal prometheus.Counter
	RunDuration    prometheus.Histogram
}

// NewMetrics constructs and registers a Metrics set against reg, using
// namespace as the metric name prefix.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Number of tasks held by the delay heap, as of the latest submission.",
		}),
		ActiveWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "Number of worker goroutines launched so far.",
		}),
		CancelledTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancelled_total",
			Help:      "Total number of tasks cancelled.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Observed duration of task executions.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.QueueDepth, m.ActiveWorkers, m.CancelledTotal, m.RunDuration)
	return m
}

func (m *Metrics) observeRun(d time.Duration) {
	m.RunDuration.Observe(d.Seconds())
}
