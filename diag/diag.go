// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package diag implements the fatal-error and assertion primitives used
// throughout the loader core. There is no recovery path: every error the
// core detects is, by the time it reaches this package, unrecoverable.
package diag

import (
	"fmt"
	"log"
	"os"
)

func init() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)
}

// Halt is invoked after a fatal message has been logged. It defaults to
// os.Exit(1), matching the source's oops() -> for(;;); idiom: a hosted Go
// process has no legal "spin the CPU forever" substitute, so halting the
// process is the closest equivalent. Tests swap this out to observe that
// a halt was requested without killing the test binary.
var Halt = func() { os.Exit(1) }

// Oops logs a formatted fatal diagnostic and halts. It never returns to
// its caller under the default Halt; code after a call to Oops in
// production is unreachable.
func Oops(format string, args ...any) {
	log.Printf("oops: "+format, args...)
	Halt()
}

// BugOn halts with a formatted message when cond is true, mirroring
// BUG_ON(cond).
func BugOn(cond bool, format string, args ...any) {
	if cond {
		Oops(format, args...)
	}
}

// Errorf is a convenience for packages that want to build an error value
// instead of calling Oops directly, e.g. when a caller further up the
// tree is in a better position to decide between Oops and a returned
// error. The shell and cmd/bootconsole packages return plain errors
// built with fmt/errors rather than calling Oops, so a bad command
// doesn't halt the whole console.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
