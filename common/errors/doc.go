// Copyright 2015 The LUCI Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package errors is an augmented replacement package for the stdlib "errors"
// package. It contains the same New method, but also has some handy methods
// and types for dealing with errors.
package errors
