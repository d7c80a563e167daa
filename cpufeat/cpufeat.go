// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package cpufeat probes the one CPU capability the loader core cares
// about: long-mode (64-bit) support, gating whether a 64-bit kernel may
// be loaded at all.
package cpufeat

import "runtime"

// LongModeSupported reports whether the running CPU supports x86-64
// long mode. A raw CPUID leaf check is out of scope for this module
// (the loader core specifies, rather than hand-rolls, low-level
// hardware primitives); the build target itself is an equally reliable
// signal, since Go's amd64 port only ever runs on a CPU that has
// already negotiated long mode.
func LongModeSupported() bool {
	return runtime.GOARCH == "amd64"
}
