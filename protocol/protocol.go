// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package protocol holds the handful of wire-level constants shared
// between the page-table builder (C7), the attribute-array builder
// (C8), and the handover driver (C9): they describe the boot protocol
// itself rather than any one component's behavior.
package protocol

const (
	// HigherHalfBase is the fixed virtual base a non-relocatable kernel
	// links against.
	HigherHalfBase = 0xFFFFFFFF80000000

	// DirectMapBase is where physical memory [0, 4 GiB) is mapped in
	// the higher half, overlaying low physical memory for any pointer a
	// higher-half kernel receives from the loader.
	DirectMapBase = 0xFFFF800000000000

	// HugePageSize is the 2 MiB mapping granule C7 prefers over 4 KiB
	// pages wherever alignment allows it.
	HugePageSize = 2 * 1024 * 1024

	// Magic is passed to the kernel entrypoint in a CPU register,
	// letting it verify it was handed off by this protocol.
	Magic = 0x554c5442 // "ULTB"

	// LoaderName is recorded verbatim in the PLATFORM_INFO attribute.
	LoaderName = "HyperLoader v0.1"

	LoaderMajor = 0
	LoaderMinor = 1
)
