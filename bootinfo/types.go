// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package bootinfo implements the attribute-array builder (C8): the
// self-describing TLV stream the kernel reads at handover, ending in a
// MEMORY_MAP attribute that must describe the very buffer holding it.
package bootinfo

import (
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/elfload"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/module"
)

// Attribute type tags, matching the original's ATTRIBUTE_* enumeration.
const (
	AttributePlatformInfo    uint32 = 1
	AttributeKernelInfo      uint32 = 2
	AttributeModuleInfo      uint32 = 3
	AttributeCommandLine     uint32 = 4
	AttributeFramebufferInfo uint32 = 5
	AttributeMemoryMap       uint32 = 6
)

// nameFieldLen and pathFieldLen size the fixed name/path byte arrays
// embedded in attributes; pathFieldLen holds a path of up to 255 bytes
// plus the terminating NUL.
const (
	nameFieldLen = 64
	pathFieldLen = 256
)

// Header is the common 8-byte prefix of every attribute.
type Header struct {
	Type        uint32
	SizeInBytes uint32
}

// Spec is the construction plan C9 hands to Build: everything C1–C7
// gathered about this boot attempt.
type Spec struct {
	FBPresent bool
	FB        firmware.Framebuffer

	CmdlinePresent bool
	Cmdline        string

	BinInfo             elfload.BinaryInfo
	KernelPath          fullpath.FullPath
	KernelPartitionType uint32

	Modules []module.Module

	StackAddress    uint64
	ACPIRSDPAddress uint64
	HasACPIRSDP     bool

	Platform firmware.PlatformType
}

// Result is what Build hands back to C9 for the final dispatch.
type Result struct {
	AttributeArrayAddress uint64
	MemoryMapHandoverKey  uintptr
}
