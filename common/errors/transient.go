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

// transientTag marks an error as transient: a retry of the operation that
// produced it may succeed without any other corrective action. Examples are
// a dropped transport connection or a momentarily unreachable peer.
var transientTag = NewTagKey("this error is transient, a retry may succeed")

// IsTransient tests whether any error in err's Tag/Wrapped/MultiError chain
// was marked transient via WrapTransient.
func IsTransient(err error) bool {
	transient := false
	Walk(err, func(err error) bool {
		if sc, ok := err.(stackContexter); ok {
			if v, ok := sc.stackContext().tags[transientTag]; ok {
				if b, _ := v.(bool); b {
					transient = true
					return false
				}
			}
		}
		return true
	})
	return transient
}

// WrapTransient tags err as transient. A nil err returns nil.
func WrapTransient(err error) error {
	return TagValue{Key: transientTag, Value: true}.Apply(err)
}
