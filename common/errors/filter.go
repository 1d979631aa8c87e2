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

// FilterFunc removes every error from err (recursing into MultiError) for
// which keep returns true, returning nil if all errors were removed.
func FilterFunc(err error, keep func(error) bool) error {
	if err == nil {
		return nil
	}
	if me, ok := err.(MultiError); ok {
		if keep(me) {
			return nil
		}
		var out MultiError
		for _, sub := range me {
			if filtered := FilterFunc(sub, keep); filtered != nil {
				out = append(out, filtered)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	if keep(err) {
		return nil
	}
	return err
}

// Filter removes every occurrence of each of badErrors from err, recursing
// into MultiError, returning nil if nothing remains.
func Filter(err error, badErrors ...error) error {
	return FilterFunc(err, func(e error) bool {
		for _, bad := range badErrors {
			if e == bad {
				return true
			}
		}
		return false
	})
}
