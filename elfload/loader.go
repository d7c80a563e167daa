// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package elfload

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/cpufeat"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
)

// Load implements C3: parses data with parser, validates it against
// opts and the running CPU, allocates its backing physical memory via
// ms, and returns the resulting BinaryInfo.
func Load(parser Parser, ms firmware.MemoryServices, data []byte, opts BinaryOptions) (BinaryInfo, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("elfload: malformed ELF: %w", err)
	}

	if res.Bitness != 32 && res.Bitness != 64 {
		return BinaryInfo{}, fmt.Errorf("elfload: invalid ELF bitness %d", res.Bitness)
	}

	if opts.AllocateAnywhere && res.Bitness != 64 {
		return BinaryInfo{}, fmt.Errorf("elfload: allocate-anywhere is only allowed for 64-bit kernels")
	}

	if res.Bitness == 64 && !cpufeat.LongModeSupported() {
		return BinaryInfo{}, fmt.Errorf("elfload: attempted to load a 64-bit kernel on a CPU without long mode support")
	}

	if len(res.Segments) == 0 {
		return BinaryInfo{}, fmt.Errorf("elfload: ELF has no loadable segments")
	}

	physBase, physCeil, virtBase := segmentExtents(res.Segments)

	pages := int((physCeil - physBase + firmware.PageSize - 1) / firmware.PageSize)

	var newBase uint64
	if opts.AllocateAnywhere {
		newBase, err = ms.AllocatePages(firmware.AllocateAnyAddress, firmware.MemoryTypeKernelBinary, pages, 0)
	} else {
		newBase, err = ms.AllocatePages(firmware.AllocateAtAddress, firmware.MemoryTypeKernelBinary, pages, physBase)
	}
	if err != nil {
		return BinaryInfo{}, fmt.Errorf("elfload: failed to allocate kernel binary: %w", err)
	}

	delta := newBase - physBase

	for _, seg := range res.Segments {
		if len(seg.Data) == 0 {
			continue
		}
		if err := ms.WriteAt(seg.Paddr+delta, seg.Data); err != nil {
			return BinaryInfo{}, fmt.Errorf("elfload: failed to write segment at %#x: %w", seg.Paddr, err)
		}
	}

	return BinaryInfo{
		Bitness:                res.Bitness,
		PhysicalBase:           newBase,
		PhysicalCeiling:        physCeil + delta,
		VirtualBase:            virtBase,
		EntrypointAddress:      res.Entry + delta,
		KernelRangeIsDirectMap: !opts.AllocateAnywhere,
	}, nil
}

// segmentExtents computes the lowest physical address, the highest
// physical ceiling, and the virtual address paired with the lowest
// physical address, across every PT_LOAD segment.
func segmentExtents(segs []Segment) (physBase, physCeil, virtBase uint64) {
	physBase = segs[0].Paddr
	virtBase = segs[0].Vaddr

	for _, s := range segs {
		if s.Paddr < physBase {
			physBase = s.Paddr
			virtBase = s.Vaddr
		}
		if end := s.Paddr + s.MemSize; end > physCeil {
			physCeil = end
		}
	}

	return
}
