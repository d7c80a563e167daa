// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

import "github.com/Th3T3chn0G1t/Keirmael-Hyper/diag"

// PageSize is the firmware allocation granule, matching both BIOS and
// UEFI page-oriented allocators.
const PageSize = 4096

// MemoryServices is the subset of firmware memory management the loader
// core depends on: page allocation/free, and the memory-map snapshot
// protocol C8's fixed-point loop relies on.
type MemoryServices interface {
	// AllocatePages reserves pages pages of typ memory. When kind is
	// AllocateAtAddress, at is the required physical start address;
	// otherwise it is ignored and the firmware picks the address.
	AllocatePages(kind AllocateKind, typ MemoryType, pages int, at uint64) (uint64, error)

	// FreePages releases a prior allocation of pages pages starting at
	// addr.
	FreePages(addr uint64, pages int) error

	// GetMemoryMap returns a full snapshot of the current memory map.
	GetMemoryMap() (MemoryMap, error)

	// CopyMap writes every entry into dst and returns how many were
	// written along with the map's current key; it fails without
	// writing anything if dst is too small for the whole map. Passing a
	// nil/zero-length dst is a valid way to just learn the entry count
	// and key, mirroring copy_map(NULL, 0, &key).
	CopyMap(dst []MemoryMapEntry) (n int, key uintptr, err error)

	// Handover seals the memory map: key must match the firmware's
	// current key, or Handover fails. After a successful call no
	// further allocation or free is permitted.
	Handover(key uintptr) error

	// WriteAt and ReadAt access the bytes backing a prior allocation, the
	// loader's equivalent of a direct memcpy into physical memory before
	// paging takes over. Real firmware never restricts which physical
	// addresses can be written, but implementations may reject addresses
	// outside any allocation made through this interface.
	WriteAt(addr uint64, data []byte) error
	ReadAt(addr uint64, length uint64) ([]byte, error)
}

// AllocateCriticalPages wraps AllocatePages with the source's "critical"
// allocator semantics: on failure it halts the load via diag.Oops
// instead of returning an error, matching allocate_critical_pages_*.
func AllocateCriticalPages(ms MemoryServices, typ MemoryType, pages int) uint64 {
	addr, err := ms.AllocatePages(AllocateAnyAddress, typ, pages, 0)
	if err != nil {
		diag.Oops("critical page allocation failed (type %d, %d pages): %v", typ, pages, err)
	}
	return addr
}

// AllocateCriticalBytes rounds count up to a whole number of pages and
// allocates them anywhere, matching allocate_critical_bytes.
func AllocateCriticalBytes(ms MemoryServices, typ MemoryType, count int) uint64 {
	pages := (count + PageSize - 1) / PageSize
	return AllocateCriticalPages(ms, typ, pages)
}

// FreeBytes is the byte-oriented counterpart to AllocateCriticalBytes.
func FreeBytes(ms MemoryServices, addr uint64, count int) error {
	pages := (count + PageSize - 1) / PageSize
	return ms.FreePages(addr, pages)
}

// AllocateCriticalPagesAt is AllocateCriticalPages at a fixed address.
func AllocateCriticalPagesAt(ms MemoryServices, typ MemoryType, pages int, at uint64) uint64 {
	addr, err := ms.AllocatePages(AllocateAtAddress, typ, pages, at)
	if err != nil {
		diag.Oops("critical page allocation at %#x failed (type %d, %d pages): %v", at, typ, pages, err)
	}
	return addr
}
