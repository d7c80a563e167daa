// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package module implements the module loader (C4): reading every
// "module" entry out of a loadable entry's configuration scope into
// typed physical memory, ready for a MODULE_INFO attribute each.
package module

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/filesystem"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
)

// Module is one loaded module, ready for its MODULE_INFO attribute.
type Module struct {
	Name            string
	PhysicalAddress uint64
	Length          uint64
}

// LoadAll loads every "module" entry in scope, in file order. An entry
// may spell its path directly as a string, or as an object carrying an
// optional "name" and a mandatory "path". A module with no declared
// name is assigned "unnamed_module<n>", 1-indexed over every module
// loaded across the whole boot attempt (not just this entry), matching
// the source's single shared module_idx counter.
func LoadAll(cfg *config.Config, scope int, reg *filesystem.Registry, ms firmware.MemoryServices, startIndex int) ([]Module, error) {
	var mods []Module
	idx := startIndex

	next := cfg.Iter(scope, "module", config.TypeString|config.TypeObject)
	for {
		v, ok := next()
		if !ok {
			break
		}

		idx++

		m, err := loadOne(cfg, v, reg, ms, idx)
		if err != nil {
			return nil, err
		}

		mods = append(mods, m)
	}

	return mods, nil
}

func loadOne(cfg *config.Config, v config.Value, reg *filesystem.Registry, ms firmware.MemoryServices, idx int) (Module, error) {
	var name, rawPath string

	if v.IsObject() {
		if nv, ok, err := cfg.Get(v.Scope, "name", config.TypeString, true); err != nil {
			return Module{}, fmt.Errorf("module: %w", err)
		} else if ok {
			name = nv.String
		}

		rawPath = cfg.MandatoryString(v.Scope, "path")
	} else {
		rawPath = v.String
	}

	if name == "" {
		name = fmt.Sprintf("unnamed_module%d", idx)
	}

	fp, err := fullpath.ParsePath(rawPath)
	if err != nil {
		return Module{}, fmt.Errorf("module: invalid path %q: %w", rawPath, err)
	}

	data, err := filesystem.ReadFile(reg, fp)
	if err != nil {
		return Module{}, fmt.Errorf("module: %w", err)
	}

	pages := (len(data) + firmware.PageSize - 1) / firmware.PageSize
	addr := firmware.AllocateCriticalPages(ms, firmware.MemoryTypeModule, pages)

	// The allocation is rounded up to a whole number of pages; only the
	// file's own byte count is meaningful to the kernel, so Length stays
	// exact while the backing allocation is page-granular.
	if err := ms.WriteAt(addr, data); err != nil {
		return Module{}, fmt.Errorf("module: %w", err)
	}

	return Module{Name: name, PhysicalAddress: addr, Length: uint64(len(data))}, nil
}
