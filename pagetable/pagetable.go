// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pagetable implements the page-table builder (C7): deciding
// which virtual ranges a 64-bit kernel's address space needs and
// issuing them to a low-level mapping primitive. The primitive itself
// (page-table node allocation and PTE bit-twiddling) is out of scope
// here; Mapper stands in for it.
package pagetable

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/elfload"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/protocol"
)

const (
	gib = 1024 * 1024 * 1024
)

// Mapper is the low-level primitive this package drives: mapping count
// consecutive pages (huge or regular) from phys to virt. Both methods
// are expected to allocate any page-table nodes they need themselves,
// tagged critical, and to halt the load on failure rather than return
// an error the caller could sensibly recover from — matching
// map_critical_huge_pages/map_critical_pages in the source.
type Mapper interface {
	MapHugePages(virt, phys uint64, count int) error
	MapPages(virt, phys uint64, count int) error
}

// Build implements C7. It only ever produces a table for a 64-bit
// kernel; for a 32-bit kernel it returns a zero root, matching the
// source's "firmware already left us identity-mapped" shortcut for
// legacy mode.
func Build(ms firmware.MemoryServices, mapper Mapper, bi elfload.BinaryInfo) (uint64, error) {
	if bi.Bitness != 64 {
		return 0, nil
	}

	root := firmware.AllocateCriticalPages(ms, firmware.MemoryTypeLoaderReclaimable, 1)
	if root == 0 {
		// A root at physical address 0 would read as the 32-bit "no table"
		// result, so page 0 stays allocated and the next page is used.
		root = firmware.AllocateCriticalPages(ms, firmware.MemoryTypeLoaderReclaimable, 1)
	}

	if err := mapper.MapHugePages(0, 0, 4*gib/protocol.HugePageSize); err != nil {
		return 0, fmt.Errorf("pagetable: failed to identity-map the bottom 4GiB: %w", err)
	}

	if err := mapper.MapHugePages(protocol.DirectMapBase, 0, 4*gib/protocol.HugePageSize); err != nil {
		return 0, fmt.Errorf("pagetable: failed to build the direct map: %w", err)
	}

	if bi.KernelRangeIsDirectMap {
		if err := mapper.MapHugePages(protocol.HigherHalfBase, 0, 2*gib/protocol.HugePageSize); err != nil {
			return 0, fmt.Errorf("pagetable: failed to map the higher-half window: %w", err)
		}
	} else {
		pages := int((bi.PhysicalCeiling - bi.PhysicalBase + firmware.PageSize - 1) / firmware.PageSize)
		if err := mapper.MapPages(bi.VirtualBase, bi.PhysicalBase, pages); err != nil {
			return 0, fmt.Errorf("pagetable: failed to map the kernel's own range: %w", err)
		}
	}

	return root, nil
}
