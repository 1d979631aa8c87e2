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
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/timely-go/timely/common/errors"
)

func TestConfigValidate(t *testing.T) {
	Convey(`A single-process config needs no hostfile`, t, func() {
		c := &config{workers: 2, processes: 1, processIndex: 0}
		So(c.validate(), ShouldBeNil)
	})

	Convey(`-w, -n, -p are range-checked`, t, func() {
		bad := []*config{
			{workers: 0, processes: 1},
			{workers: 1, processes: 0},
			{workers: 1, processes: 2, processIndex: 2},
			{workers: 1, processes: 2, processIndex: -1},
		}
		for _, c := range bad {
			err := c.validate()
			So(err, ShouldNotBeNil)
			_, ok := errors.TagValueIn(ConfigurationErrorTag, err)
			So(ok, ShouldBeTrue)
		}
	})

	Convey(`a multi-process config requires a hostfile`, t, func() {
		c := &config{workers: 1, processes: 2, processIndex: 0}
		So(c.validate(), ShouldNotBeNil)
	})

	Convey(`a hostfile naming the wrong number of hosts is rejected`, t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "hosts.txt")
		So(os.WriteFile(path, []byte("localhost:9001\nlocalhost:9002\n"), 0o644), ShouldBeNil)

		c := &config{workers: 1, processes: 3, processIndex: 0, hostFile: path}
		So(c.validate(), ShouldNotBeNil)
	})

	Convey(`a well-formed hostfile loads and populates hosts`, t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "hosts.txt")
		So(os.WriteFile(path, []byte("# comment\nlocalhost:9001\n\nlocalhost:9002\n"), 0o644), ShouldBeNil)

		c := &config{workers: 1, processes: 2, processIndex: 1, hostFile: path}
		So(c.validate(), ShouldBeNil)
		So(c.hosts, ShouldResemble, []string{"localhost:9001", "localhost:9002"})
	})

	Convey(`a malformed hostfile line is rejected`, t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "hosts.txt")
		So(os.WriteFile(path, []byte("not-a-hostport\n"), 0o644), ShouldBeNil)

		_, err := loadHostFile(path)
		So(err, ShouldNotBeNil)
		_, ok := errors.TagValueIn(ConfigurationErrorTag, err)
		So(ok, ShouldBeTrue)
	})
}
