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
	"errors"
	"fmt"
)

// MultiError is a list of errors, satisfying the error interface, commonly
// returned by fan-out operations that run several sub-operations and
// collect all of their failures.
type MultiError []error

func (me MultiError) Error() string {
	switch len(me) {
	case 0:
		return "(0 errors)"
	case 1:
		return me[0].Error()
	case 2:
		return fmt.Sprintf("%s (and 1 other error)", me[0])
	default:
		return fmt.Sprintf("%s (and %d other errors)", me[0], len(me)-1)
	}
}

// As implements the errors.As protocol: it scans the contained errors in
// order (unwrapping each via the standard errors package) and reports the
// first one that matches target.
func (me MultiError) As(target any) bool {
	for _, err := range me {
		if err != nil && errors.As(err, target) {
			return true
		}
	}
	return false
}

// Is implements the errors.Is protocol: it scans the contained errors in
// order and reports whether any of them is (or wraps) target.
func (me MultiError) Is(target error) bool {
	for _, err := range me {
		if err != nil && errors.Is(err, target) {
			return true
		}
	}
	return false
}

// AsError returns me as a plain error interface: a nil MultiError becomes a
// true nil error, rather than a non-nil interface wrapping a nil slice.
func (me MultiError) AsError() error {
	if me == nil {
		return nil
	}
	return me
}

// MaybeAdd appends err to *me if it is non-nil.
func (me *MultiError) MaybeAdd(err error) {
	if err != nil {
		*me = append(*me, err)
	}
}

// SingleError extracts the sole error from err if it is either a plain
// error, or a MultiError containing exactly one non-nil error. For any
// other MultiError, it returns the first error.
func SingleError(err error) error {
	if me, ok := err.(MultiError); ok {
		if len(me) == 0 {
			return nil
		}
		return me[0]
	}
	return err
}

// Flatten recursively unfolds nested MultiErrors into a single-level
// MultiError, dropping nil entries. A non-MultiError wrapper (e.g. an
// Annotated error around a MultiError) is left untouched, even if it
// contains a MultiError internally. If the result is empty, Flatten
// returns nil.
func Flatten(err error) error {
	var out MultiError
	var walk func(error)
	walk = func(e error) {
		if e == nil {
			return
		}
		if me, ok := e.(MultiError); ok {
			for _, sub := range me {
				walk(sub)
			}
			return
		}
		out = append(out, e)
	}
	walk(err)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Append combines the non-nil errors in errs into a single error. If none
// are non-nil, Append returns nil. If exactly one is non-nil, that error is
// returned unchanged (preserving physical identity). Otherwise, a
// MultiError of all non-nil errors is returned.
func Append(errs ...error) error {
	var out MultiError
	for _, e := range errs {
		if e == nil {
			continue
		}
		if me, ok := e.(MultiError); ok {
			out = append(out, me...)
			continue
		}
		out = append(out, e)
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}
