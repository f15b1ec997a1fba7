// Copyright 2024 The qconc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command qschedctl is a small demonstration CLI for qsched.ScheduledCore:
// it loads a policy file, starts a core, schedules a periodic demo task,
// and runs until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/pflag"

	"github.com/go-sync-lib/qconc/buildinfo"
	"github.com/go-sync-lib/qconc/qconfig"
	"github.com/go-sync-lib/qconc/qsched"
	"github.com/go-sync-lib/qconc/vlog"
)

var (
	policyPath = pflag.StringP("policy", "p", "", "path to a qconfig policy YAML file; empty uses defaults")
	period     = pflag.Duration("period", 2*time.Second, "period for the demo fixed-rate task")
	version    = pflag.Bool("version", false, "print build info and exit")
)

func main() {
	pflag.Parse()

	if *version {
		fmt.Println(buildinfo.Info().String())
		return
	}

	policy := qconfig.Default()
	if *policyPath != "" {
		loaded, err := qconfig.Load(*policyPath)
		if err != nil {
			vlog.Log.Infof("qschedctl: %v", err)
			os.Exit(1)
		}
		policy = *loaded
	}

	schedPolicy := policy.ToSchedPolicy()
	core := qsched.NewScheduledCore(policy.CoreWorkers, &schedPolicy, nil, vlog.Log)

	var n int
	if _, err := core.ScheduleAtFixedRate(0, *period, func(ctx context.Context) error {
		n++
		vlog.Log.Infof("qschedctl: tick %d", n)
		return nil
	}); err != nil {
		vlog.Log.Infof("qschedctl: failed to schedule demo task: %v", err)
		os.Exit(1)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	<-sig

	core.Shutdown()
	core.AwaitTermination()
}
