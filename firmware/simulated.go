// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

import (
	"fmt"
	"sort"
)

// Simulated is an in-process firmware backend implementing
// MemoryServices, VideoServices and PlatformServices. It keeps a sorted
// slice of MemoryMapEntry and splits/merges entries on every allocation
// or free exactly as real firmware would, so C8's fixed-point retry
// loop has a genuine fixed point to converge on. It is not safe for
// concurrent use, matching the single-caller firmware model.
type Simulated struct {
	entries []MemoryMapEntry
	key     uintptr

	// mem is the backing store for WriteAt/ReadAt, standing in for the
	// physical address space real firmware would let the loader memcpy
	// into directly.
	mem []byte

	platform PlatformType
	acpiRSDP uint64
	hasRSDP  bool

	nativeRes Resolution
	modes     []Mode

	sealed bool
}

// NewSimulated returns a Simulated backend describing a single
// contiguous region of conventional memory, size bytes starting at
// physical address 0.
func NewSimulated(size uint64, platform PlatformType) *Simulated {
	return &Simulated{
		entries: []MemoryMapEntry{
			{PhysicalAddress: 0, SizeInBytes: size, Type: uint32(MemoryTypeConventional)},
		},
		mem:       make([]byte, size),
		platform:  platform,
		nativeRes: Resolution{Width: 1024, Height: 768},
	}
}

// SetACPIRSDP configures the ACPI root pointer ACPIRSDP reports.
func (s *Simulated) SetACPIRSDP(addr uint64) {
	s.acpiRSDP = addr
	s.hasRSDP = true
}

// SetModes replaces the enumerated video mode list.
func (s *Simulated) SetModes(native Resolution, modes []Mode) {
	s.nativeRes = native
	s.modes = modes
}

func (s *Simulated) Type() PlatformType { return s.platform }

func (s *Simulated) ACPIRSDP() (uint64, bool) { return s.acpiRSDP, s.hasRSDP }

func (s *Simulated) NativeResolution() (Resolution, error) { return s.nativeRes, nil }

func (s *Simulated) ListModes() ([]Mode, error) { return s.modes, nil }

func (s *Simulated) SetMode(id int) (Framebuffer, error) {
	for _, m := range s.modes {
		if m.ID == id {
			return Framebuffer{Width: m.Width, Height: m.Height, BPP: m.BPP, Pitch: m.Width * (m.BPP / 8)}, nil
		}
	}
	return Framebuffer{}, fmt.Errorf("firmware: unknown video mode %d", id)
}

// AllocatePages implements MemoryServices.
func (s *Simulated) AllocatePages(kind AllocateKind, typ MemoryType, pages int, at uint64) (uint64, error) {
	if s.sealed {
		return 0, fmt.Errorf("firmware: allocation requested after handover")
	}

	size := uint64(pages) * PageSize

	idx, addr, err := s.findFree(kind, size, at)
	if err != nil {
		return 0, err
	}

	s.splitAt(idx, addr, size, typ)
	s.key++

	return addr, nil
}

func (s *Simulated) findFree(kind AllocateKind, size, at uint64) (int, uint64, error) {
	for i, e := range s.entries {
		if e.Type != uint32(MemoryTypeConventional) {
			continue
		}

		switch kind {
		case AllocateAtAddress:
			if at >= e.PhysicalAddress && at+size <= e.PhysicalAddress+e.SizeInBytes {
				return i, at, nil
			}
		default:
			if e.SizeInBytes >= size {
				return i, e.PhysicalAddress, nil
			}
		}
	}

	if kind == AllocateAtAddress {
		return 0, 0, fmt.Errorf("firmware: address %#x is not free for %d bytes", at, size)
	}
	return 0, 0, fmt.Errorf("firmware: no free region of %d bytes", size)
}

// splitAt carves [addr, addr+size) out of the conventional entry at
// index idx, replacing it with up to three entries: the untouched
// leading remainder, the new typed allocation, and the untouched
// trailing remainder. This is the split that C8's "+1 slack" retry loop
// exists to absorb.
func (s *Simulated) splitAt(idx int, addr, size uint64, typ MemoryType) {
	e := s.entries[idx]

	var replacement []MemoryMapEntry
	if addr > e.PhysicalAddress {
		replacement = append(replacement, MemoryMapEntry{
			PhysicalAddress: e.PhysicalAddress,
			SizeInBytes:     addr - e.PhysicalAddress,
			Type:            e.Type,
		})
	}

	replacement = append(replacement, MemoryMapEntry{
		PhysicalAddress: addr,
		SizeInBytes:     size,
		Type:            uint32(typ),
	})

	tailStart := addr + size
	tailEnd := e.PhysicalAddress + e.SizeInBytes
	if tailEnd > tailStart {
		replacement = append(replacement, MemoryMapEntry{
			PhysicalAddress: tailStart,
			SizeInBytes:     tailEnd - tailStart,
			Type:            e.Type,
		})
	}

	s.entries = append(s.entries[:idx], append(replacement, s.entries[idx+1:]...)...)
}

// FreePages implements MemoryServices.
func (s *Simulated) FreePages(addr uint64, pages int) error {
	if s.sealed {
		return fmt.Errorf("firmware: free requested after handover")
	}

	size := uint64(pages) * PageSize

	for i, e := range s.entries {
		if e.PhysicalAddress == addr && e.SizeInBytes == size {
			s.entries[i].Type = uint32(MemoryTypeConventional)
			s.mergeAdjacent()
			s.key++
			return nil
		}
	}

	return fmt.Errorf("firmware: no allocation at %#x of %d bytes", addr, size)
}

// mergeAdjacent coalesces neighboring same-type entries, matching what
// real firmware does after a free to keep the map compact.
func (s *Simulated) mergeAdjacent() {
	sort.Slice(s.entries, func(i, j int) bool {
		return s.entries[i].PhysicalAddress < s.entries[j].PhysicalAddress
	})

	merged := s.entries[:0]
	for _, e := range s.entries {
		if n := len(merged); n > 0 {
			last := &merged[n-1]
			if last.Type == e.Type && last.PhysicalAddress+last.SizeInBytes == e.PhysicalAddress {
				last.SizeInBytes += e.SizeInBytes
				continue
			}
		}
		merged = append(merged, e)
	}
	s.entries = merged
}

// GetMemoryMap implements MemoryServices.
func (s *Simulated) GetMemoryMap() (MemoryMap, error) {
	out := make([]MemoryMapEntry, len(s.entries))
	copy(out, s.entries)
	return MemoryMap{Entries: out, Key: s.key}, nil
}

// CopyMap implements MemoryServices. A nil or zero-length dst is used,
// per the fixed-point loop, purely to learn the current entry count and
// key without writing anything.
func (s *Simulated) CopyMap(dst []MemoryMapEntry) (int, uintptr, error) {
	if len(dst) == 0 {
		return len(s.entries), s.key, nil
	}

	if len(dst) < len(s.entries) {
		return 0, s.key, fmt.Errorf("firmware: memory map grew to %d entries, capacity is %d", len(s.entries), len(dst))
	}

	n := copy(dst, s.entries)
	for i := range dst[:n] {
		dst[i].Type = uint32(MemoryType(dst[i].Type).Protocol())
	}

	return n, s.key, nil
}

// Handover implements MemoryServices.
func (s *Simulated) Handover(key uintptr) error {
	if key != s.key {
		return fmt.Errorf("firmware: stale memory map key %d, current is %d", key, s.key)
	}
	s.sealed = true
	return nil
}

// WriteAt implements MemoryServices.
func (s *Simulated) WriteAt(addr uint64, data []byte) error {
	if addr+uint64(len(data)) > uint64(len(s.mem)) {
		return fmt.Errorf("firmware: write at %#x, %d bytes is out of bounds", addr, len(data))
	}
	copy(s.mem[addr:], data)
	return nil
}

// ReadAt implements MemoryServices.
func (s *Simulated) ReadAt(addr uint64, length uint64) ([]byte, error) {
	if addr+length > uint64(len(s.mem)) {
		return nil, fmt.Errorf("firmware: read at %#x, %d bytes is out of bounds", addr, length)
	}
	out := make([]byte, length)
	copy(out, s.mem[addr:addr+length])
	return out, nil
}
