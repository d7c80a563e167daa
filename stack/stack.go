// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package stack implements the kernel stack selector (C6): deciding how
// much memory to set aside for the kernel's initial stack and whether it
// must sit at a fixed physical address, then performing the allocation.
package stack

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
)

const defaultSize = 16 * 1024

// Pick implements C6: it decodes the "stack" key within scope and
// allocates the requested pages tagged MemoryTypeKernelStack, returning
// the top of the stack (base + allocated size), which is what every
// calling convention this loader supports expects in the stack pointer
// register. A fixed-address request that firmware cannot satisfy halts
// the load, matching allocate_critical_pages_with_type_at.
func Pick(cfg *config.Config, scope int, ms firmware.MemoryServices) (uint64, error) {
	size := uint64(defaultSize)
	var at uint64
	fixed := false

	val, ok, err := cfg.GetOneOf(scope, "stack", config.TypeString|config.TypeObject)
	if err != nil {
		return 0, err
	}

	if ok && val.IsObject() {
		if v, has, _ := cfg.Get(val.Scope, "allocate-at", config.TypeString|config.TypeUnsigned, true); has {
			if v.IsString() {
				if v.String != "anywhere" {
					return 0, fmt.Errorf("stack: invalid value for \"allocate-at\": %q", v.String)
				}
			} else {
				at = v.Unsigned
				fixed = true
			}
		}

		if v, has, _ := cfg.Get(val.Scope, "size", config.TypeString|config.TypeUnsigned, true); has {
			if v.IsString() {
				if v.String != "auto" {
					return 0, fmt.Errorf("stack: invalid value for \"size\": %q", v.String)
				}
			} else {
				size = v.Unsigned
			}
		}
	} else if ok && val.IsString() && val.String != "auto" {
		return 0, fmt.Errorf("stack: invalid value for \"stack\": %q", val.String)
	}

	pages := int((size + firmware.PageSize - 1) / firmware.PageSize)

	var base uint64
	if fixed {
		base = firmware.AllocateCriticalPagesAt(ms, firmware.MemoryTypeKernelStack, pages, at)
	} else {
		base = firmware.AllocateCriticalPages(ms, firmware.MemoryTypeKernelStack, pages)
	}

	return base + uint64(pages)*firmware.PageSize, nil
}
