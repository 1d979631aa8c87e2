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

package errors

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFilter(t *testing.T) {
	aerr := New("test error A")
	berr := New("test error B")

	Convey(`Filter`, t, func() {
		So(Filter(nil, nil), ShouldBeNil)
		So(Filter(aerr, nil), ShouldEqual, aerr)
		So(Filter(aerr, nil, aerr, berr), ShouldBeNil)
		So(Filter(aerr, berr), ShouldEqual, aerr)

		Convey(`recurses into MultiError`, func() {
			filtered := Filter(MultiError{aerr, berr}, berr)
			me, ok := filtered.(MultiError)
			So(ok, ShouldBeTrue)
			So(me, ShouldHaveLength, 1)
			So(me[0], ShouldEqual, aerr)
		})

		Convey(`drops the whole MultiError when all members match`, func() {
			So(Filter(MultiError{aerr, aerr}, aerr), ShouldBeNil)
		})
	})

	Convey(`FilterFunc`, t, func() {
		So(FilterFunc(nil, func(error) bool { return false }), ShouldBeNil)
		So(FilterFunc(aerr, func(error) bool { return true }), ShouldBeNil)
		So(FilterFunc(aerr, func(error) bool { return false }), ShouldEqual, aerr)
	})
}
