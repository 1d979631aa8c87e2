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

package main

import (
	"bufio"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/timely-go/timely/common/errors"
)

// ConfigurationErrorTag marks a malformed hostfile, an inconsistent
// worker/process count, or an invalid option combination. Surfaced to
// the driver; no dataflow is built.
var ConfigurationErrorTag = errors.NewTagKey("timelyworker: configuration error")

func configErr(reason string, args ...any) error {
	return errors.Reason(reason, args...).Tag(errors.TagValue{Key: ConfigurationErrorTag, Value: true}).Err()
}

// config holds the process-group topology spec.md §6 names: -w worker
// threads per process, -n total process count, -p this process' index,
// -h a hostfile of host:port lines, one per process.
type config struct {
	workers      int
	processes    int
	processIndex int
	hostFile     string
	parkTimeout  time.Duration

	hosts []string
}

func (c *config) registerFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.workers, "w", 1, "worker threads in this process")
	fs.IntVar(&c.processes, "n", 1, "total number of processes in the group")
	fs.IntVar(&c.processIndex, "p", 0, "this process' index within the group")
	fs.StringVar(&c.hostFile, "h", "", "hostfile of host:port lines, one per process (required when -n > 1)")
	fs.DurationVar(&c.parkTimeout, "park", 50*time.Millisecond, "how long a worker may park between idle steps")
}

// validate checks the flags for internal consistency and, if a
// hostfile is given, loads and checks it — all before any dataflow or
// transport is built, per spec.md §7's ConfigurationError policy.
func (c *config) validate() error {
	if c.workers < 1 {
		return configErr("-w must be at least 1, got %d", c.workers)
	}
	if c.processes < 1 {
		return configErr("-n must be at least 1, got %d", c.processes)
	}
	if c.processIndex < 0 || c.processIndex >= c.processes {
		return configErr("-p %d out of range for -n %d", c.processIndex, c.processes)
	}
	if c.processes == 1 {
		if c.hostFile != "" {
			return configErr("-h is meaningless with -n 1")
		}
		return nil
	}
	if c.hostFile == "" {
		return configErr("-h is required when -n > 1")
	}
	hosts, err := loadHostFile(c.hostFile)
	if err != nil {
		return err
	}
	if len(hosts) != c.processes {
		return configErr("hostfile %q names %d hosts, want %d (-n)", c.hostFile, len(hosts), c.processes)
	}
	c.hosts = hosts
	return nil
}

// loadHostFile reads one host:port per non-blank, non-comment line.
func loadHostFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, configErr("reading hostfile %q: %v", path, err)
	}
	defer f.Close()

	var hosts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, _, ok := strings.Cut(line, ":"); !ok {
			return nil, configErr("hostfile %q: malformed line %q, want host:port", path, line)
		}
		hosts = append(hosts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, configErr("reading hostfile %q: %v", path, err)
	}
	return hosts, nil
}
