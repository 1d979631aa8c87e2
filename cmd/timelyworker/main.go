// Copyright 2015 The LUCI Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command timelyworker bootstraps one process of a timely worker
// group: -w worker threads, sharing a transport with -n processes
// total, this one being -p, addressed by the -h hostfile. It is the
// process-level driver spec.md §6 describes; the dataflow it runs is a
// small built-in demonstration (see demo.go) standing in for a real
// caller's own dataflow construction.
package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/subcommands"

	"github.com/timely-go/timely/common/errors"
	"github.com/timely-go/timely/common/logging"
	"github.com/timely-go/timely/common/logging/gologger"
	"github.com/timely-go/timely/progress"
	"github.com/timely-go/timely/worker"
)

const (
	exitOK              = 0
	exitConfiguration   = 2
	exitWorkerPanic     = 1
	demoDataflowID      = 0
	pollInterval        = 5 * time.Millisecond
)

var cmdRun = &subcommands.Command{
	UsageLine: "run",
	ShortDesc: "runs this process' share of a timely worker group",
	LongDesc:  "Bootstraps -w worker threads, wires them to -n processes worth of peers via -h, runs the built-in demo dataflow to completion, and exits.",
	CommandRun: func() subcommands.CommandRun {
		cmd := &runCommandRun{}
		cmd.cfg.registerFlags(&cmd.Flags)
		return cmd
	},
}

type runCommandRun struct {
	subcommands.CommandRunBase
	cfg config
}

func (cmd *runCommandRun) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := gologger.Use(context.Background())
	ctx = logging.SetField(ctx, "instance", uuid.New().String())

	if err := cmd.cfg.validate(); err != nil {
		logging.Errorf(ctx, "%s", err)
		return exitConfiguration
	}

	if err := runGroup(ctx, &cmd.cfg); err != nil {
		logging.Errorf(ctx, "%s", err)
		if _, isConfig := errors.TagValueIn(ConfigurationErrorTag, err); isConfig {
			return exitConfiguration
		}
		return exitWorkerPanic
	}
	return exitOK
}

// runGroup builds this process' transport, starts cfg.workers Worker
// threads each hosting its own copy of the demo dataflow, runs them
// until the dataflow drains, and reports whether any of them panicked.
func runGroup(ctx context.Context, cfg *config) error {
	tr, closeTransport, err := buildTransport(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeTransport()

	totalPeers := cfg.processes * cfg.workers
	workers := make([]*worker.Worker, cfg.workers)
	demos := make([]*localWorker, cfg.workers)
	for i := 0; i < cfg.workers; i++ {
		global := cfg.processIndex*cfg.workers + i
		w := worker.New(tr, global, totalPeers)

		lw, err := buildDemoDataflow(demoDataflowID)
		if err != nil {
			return err
		}
		if err := w.AddDataflow(ctx, lw.df, progress.Demand, nil); err != nil {
			return err
		}
		if err := lw.finish(); err != nil {
			return err
		}

		workers[i] = w
		demos[i] = lw
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, w := range workers {
		w := w
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(runCtx, cfg.parkTimeout); err != nil && runCtx.Err() == nil {
				logging.Warningf(ctx, "worker %d: %v", w.Index(), err)
			}
		}()
	}

	go watchForCompletion(runCtx, cancel, demos)
	wg.Wait()

	panics := 0
	for _, w := range workers {
		panics += w.PanicCount()
	}
	if panics > 0 {
		return errors.Reason("timelyworker: %d operator panic(s) across this process' workers", panics).Err()
	}
	return nil
}

// watchForCompletion cancels ctx once every local worker's demo probe
// reports Done, or the surrounding context is canceled first.
func watchForCompletion(ctx context.Context, cancel context.CancelFunc, demos []*localWorker) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			allDone := true
			for _, lw := range demos {
				if !lw.done() {
					allDone = false
					break
				}
			}
			if allDone {
				cancel()
				return
			}
		}
	}
}

var application = &subcommands.DefaultApplication{
	Name:  "timelyworker",
	Title: "timely dataflow progress-tracking worker process",
	Commands: []*subcommands.Command{
		cmdRun,
		subcommands.CmdHelp,
	},
}

func main() {
	os.Exit(subcommands.Run(application, nil))
}
