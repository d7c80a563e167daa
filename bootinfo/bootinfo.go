// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package bootinfo

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/module"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/protocol"
)

// memoryMapEntrySize is the wire size of one firmware.MemoryMapEntry:
// two u64 fields plus a u32 type, padded to 8-byte alignment.
const memoryMapEntrySize = 24

// putFixed copies s into a fixed-size byte array, leaving room for a
// NUL terminator. Overflow is fatal, matching the source's refusal to
// silently truncate a path or name into its on-disk record.
func putFixed(dst []byte, s string) error {
	if len(s) >= len(dst) {
		return fmt.Errorf("bootinfo: %q does not fit in a %d-byte field", s, len(dst))
	}
	copy(dst, s)
	return nil
}

func align8(n int) int { return (n + 7) &^ 7 }

func writeHeader(buf *bytes.Buffer, typ uint32, size uint32) {
	binary.Write(buf, binary.LittleEndian, Header{Type: typ, SizeInBytes: size})
}

func platformInfoAttr(spec *Spec) ([]byte, error) {
	var name [nameFieldLen]byte
	if err := putFixed(name[:], protocol.LoaderName); err != nil {
		return nil, err
	}

	size := align8(8 + 4 + 4 + 4 + 8 + nameFieldLen)

	var buf bytes.Buffer
	writeHeader(&buf, AttributePlatformInfo, uint32(size))
	binary.Write(&buf, binary.LittleEndian, uint32(spec.Platform))
	binary.Write(&buf, binary.LittleEndian, uint32(protocol.LoaderMajor))
	binary.Write(&buf, binary.LittleEndian, uint32(protocol.LoaderMinor))
	binary.Write(&buf, binary.LittleEndian, spec.ACPIRSDPAddress)
	buf.Write(name[:])
	for buf.Len() < size {
		buf.WriteByte(0)
	}

	return buf.Bytes(), nil
}

func kernelInfoAttr(spec *Spec) ([]byte, error) {
	var path [pathFieldLen]byte
	if err := putFixed(path[:], spec.KernelPath.PathWithinPartition); err != nil {
		return nil, fmt.Errorf("bootinfo: kernel path: %w", err)
	}

	diskGUID := fullpath.EFIBytes(spec.KernelPath.DiskGUID)
	partGUID := fullpath.EFIBytes(spec.KernelPath.PartitionGUID)

	size := 8 + 8 + 8 + 8 + 4 + 4 + 16 + 16 + pathFieldLen

	var buf bytes.Buffer
	writeHeader(&buf, AttributeKernelInfo, uint32(size))
	binary.Write(&buf, binary.LittleEndian, spec.BinInfo.PhysicalBase)
	binary.Write(&buf, binary.LittleEndian, spec.BinInfo.VirtualBase)
	binary.Write(&buf, binary.LittleEndian, spec.BinInfo.PhysicalCeiling-spec.BinInfo.PhysicalBase)
	binary.Write(&buf, binary.LittleEndian, spec.KernelPartitionType)
	binary.Write(&buf, binary.LittleEndian, spec.KernelPath.PartitionIndex)
	buf.Write(diskGUID[:])
	buf.Write(partGUID[:])
	buf.Write(path[:])

	return buf.Bytes(), nil
}

func moduleInfoAttr(m module.Module) ([]byte, error) {
	var name [nameFieldLen]byte
	if err := putFixed(name[:], m.Name); err != nil {
		return nil, fmt.Errorf("bootinfo: module name: %w", err)
	}

	size := 8 + nameFieldLen + 8 + 8

	var buf bytes.Buffer
	writeHeader(&buf, AttributeModuleInfo, uint32(size))
	buf.Write(name[:])
	binary.Write(&buf, binary.LittleEndian, m.PhysicalAddress)
	binary.Write(&buf, binary.LittleEndian, m.Length)

	return buf.Bytes(), nil
}

func commandLineAttr(cmdline string) []byte {
	textLen := align8(8 + len(cmdline) + 1)

	var buf bytes.Buffer
	writeHeader(&buf, AttributeCommandLine, uint32(textLen))
	buf.WriteString(cmdline)
	buf.WriteByte(0)
	for buf.Len() < textLen {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

func framebufferInfoAttr(fb firmware.Framebuffer) []byte {
	size := align8(8 + 8 + 4*5)

	var buf bytes.Buffer
	writeHeader(&buf, AttributeFramebufferInfo, uint32(size))
	binary.Write(&buf, binary.LittleEndian, fb.PhysicalAddress)
	binary.Write(&buf, binary.LittleEndian, fb.Width)
	binary.Write(&buf, binary.LittleEndian, fb.Height)
	binary.Write(&buf, binary.LittleEndian, fb.Pitch)
	binary.Write(&buf, binary.LittleEndian, fb.BPP)
	binary.Write(&buf, binary.LittleEndian, fb.Format)
	for buf.Len() < size {
		buf.WriteByte(0)
	}

	return buf.Bytes()
}

// fixedAttributes assembles every attribute whose size is known before
// the memory map is even queried: everything except MEMORY_MAP itself.
func fixedAttributes(spec *Spec) ([]byte, error) {
	var out bytes.Buffer

	pi, err := platformInfoAttr(spec)
	if err != nil {
		return nil, err
	}
	out.Write(pi)

	ki, err := kernelInfoAttr(spec)
	if err != nil {
		return nil, err
	}
	out.Write(ki)

	for _, m := range spec.Modules {
		mi, err := moduleInfoAttr(m)
		if err != nil {
			return nil, err
		}
		out.Write(mi)
	}

	if spec.CmdlinePresent {
		out.Write(commandLineAttr(spec.Cmdline))
	}

	if spec.FBPresent {
		out.Write(framebufferInfoAttr(spec.FB))
	}

	return out.Bytes(), nil
}

// Build implements C8: the fixed-point allocation loop followed by
// serialization of the whole attribute array, including the terminal
// MEMORY_MAP attribute describing the array's own backing allocation.
//
// No allocation or free may occur between Build's final CopyMap (made
// after the retry loop) and the Handover call C9 makes immediately
// afterward; Build itself performs none once the retry loop exits.
func Build(ms firmware.MemoryServices, spec *Spec) (Result, error) {
	fixed, err := fixedAttributes(spec)
	if err != nil {
		return Result{}, err
	}

	bytesNeeded := len(fixed) + 8 /* attribute_count preamble */ + 8 /* MEMORY_MAP header */

	var (
		addr         uint64
		reservedSize int
	)

	for {
		n, _, err := ms.CopyMap(nil)
		if err != nil {
			return Result{}, fmt.Errorf("bootinfo: failed to query the memory map: %w", err)
		}

		reservedSize = (n + 1) * memoryMapEntrySize
		total := bytesNeeded + reservedSize

		addr = firmware.AllocateCriticalBytes(ms, firmware.MemoryTypeLoaderReclaimable, total)

		nAfter, _, err := ms.CopyMap(nil)
		if err != nil {
			return Result{}, fmt.Errorf("bootinfo: failed to re-query the memory map: %w", err)
		}

		if nAfter <= n+1 {
			break
		}

		if err := firmware.FreeBytes(ms, addr, total); err != nil {
			return Result{}, fmt.Errorf("bootinfo: failed to free a retried allocation: %w", err)
		}
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(0)) // reserved
	binary.Write(&out, binary.LittleEndian, uint32(attributeCount(spec)))
	out.Write(fixed)

	mmHeaderOffset := out.Len()
	writeHeader(&out, AttributeMemoryMap, 0)

	dst := make([]firmware.MemoryMapEntry, reservedSize/memoryMapEntrySize)
	n, key, err := ms.CopyMap(dst)
	if err != nil {
		return Result{}, fmt.Errorf("bootinfo: failed to copy the final memory map: %w", err)
	}
	dst = dst[:n]

	for _, e := range dst {
		binary.Write(&out, binary.LittleEndian, e.PhysicalAddress)
		binary.Write(&out, binary.LittleEndian, e.SizeInBytes)
		binary.Write(&out, binary.LittleEndian, e.Type)
		binary.Write(&out, binary.LittleEndian, uint32(0)) // pad to memoryMapEntrySize
	}

	mmSize := 8 + n*memoryMapEntrySize
	mmSizeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(mmSizeBytes, uint32(mmSize))
	copy(out.Bytes()[mmHeaderOffset+4:mmHeaderOffset+8], mmSizeBytes)

	if err := ms.WriteAt(addr, out.Bytes()); err != nil {
		return Result{}, fmt.Errorf("bootinfo: failed to write the attribute array: %w", err)
	}

	return Result{AttributeArrayAddress: addr, MemoryMapHandoverKey: key}, nil
}

// attributeCount is PLATFORM_INFO + KERNEL_INFO + one per module +
// COMMAND_LINE? + FRAMEBUFFER_INFO? + MEMORY_MAP.
func attributeCount(spec *Spec) int {
	n := 2 + len(spec.Modules) + 1 // +1 for MEMORY_MAP
	if spec.CmdlinePresent {
		n++
	}
	if spec.FBPresent {
		n++
	}
	return n
}
