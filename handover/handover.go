// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package handover implements the handover driver (C9): the fixed
// sequence that turns a parsed configuration's loadable entry into a
// sealed firmware memory map and a jump into the kernel. Every other
// package in this module (config, filesystem, elfload, module, video,
// stack, pagetable, bootinfo) is a step this package drives in order.
package handover

import (
	"crypto/sha256"
	"fmt"

	"github.com/usbarmory/boot-transparency/artifact"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/bootinfo"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/diag"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/elfload"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/filesystem"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/module"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/pagetable"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/protocol"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/stack"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/transparency"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/video"
)

// Trampoline is the dispatch primitive this package drives at the very
// end of a boot attempt: the CPU-mode-specific jump into the kernel
// entrypoint, with the handover values loaded into the registers the
// protocol specifies. Like pagetable.Mapper, the trampoline's own
// machinery (mode switch, register load, far jump) is out of scope
// here; an implementation supplies it.
type Trampoline interface {
	Handover32(entry, stack, attrAddr uint64, magic uint32) error
	Handover64(entry, stack, ptRoot, attrAddr uint64, magic uint32) error
}

// DeduceProtocol maps a loadable entry's "protocol" key to the boot
// protocol it names. This loader core only ever implements one
// protocol, so the check exists solely to reject a misconfigured entry
// early with a clear diagnostic rather than loading half a kernel under
// the wrong handover contract.
func DeduceProtocol(cfg *config.Config, scope int) {
	v, ok, err := cfg.Get(scope, "protocol", config.TypeString, false)
	if err != nil {
		diag.Oops("%v", err)
	}
	if ok && !equalFold(v.String, "ultra") {
		diag.Oops("unsupported boot protocol %q", v.String)
	}
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// Deps bundles every service C9 calls out to, so Run's own signature
// stays short.
type Deps struct {
	Parser     elfload.Parser
	Registry   *filesystem.Registry
	Memory     firmware.MemoryServices
	Video      firmware.VideoServices
	Platform   firmware.PlatformServices
	Mapper     pagetable.Mapper
	Trampoline Trampoline

	// Transparency, if non-nil, is checked against the loaded kernel
	// once its bytes are in hand and before any attribute is built; a
	// nil Transparency is the same as Config.Status == transparency.None.
	Transparency *transparency.Config
}

// Run orchestrates C1–C8 against the loadable entry at scope and
// dispatches into the kernel via Trampoline. moduleIndexBase is the
// shared unnamed-module counter's starting value, letting a caller chain
// several loadable entries (e.g. a fallback list) within one running
// module_idx sequence; pass 0 for a single boot attempt.
func Run(cfg *config.Config, scope int, deps Deps, moduleIndexBase int) error {
	DeduceProtocol(cfg, scope)

	// Step 1: load the kernel and classify it.
	var rawPath string
	opts := elfload.BinaryOptions{}

	binVal := cfg.Mandatory(scope, "binary", config.TypeString|config.TypeObject)
	if binVal.IsObject() {
		rawPath = cfg.MandatoryString(binVal.Scope, "path")
		if v, has, _ := cfg.Get(binVal.Scope, "allocate-anywhere", config.TypeBool, true); has {
			opts.AllocateAnywhere = v.Bool
		} else if v, has, _ := cfg.Get(binVal.Scope, "load-anywhere", config.TypeBool, true); has {
			// Undocumented legacy spelling, kept for old config files.
			opts.AllocateAnywhere = v.Bool
		}
	} else {
		rawPath = binVal.String
	}

	binPath, err := fullpath.ParsePath(rawPath)
	if err != nil {
		return fmt.Errorf("handover: invalid kernel path %q: %w", rawPath, err)
	}

	kernelData, err := filesystem.ReadFile(deps.Registry, binPath)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}

	bi, err := elfload.Load(deps.Parser, deps.Memory, kernelData, opts)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}

	higherHalf := bi.EntrypointAddress >= protocol.HigherHalfBase

	// Step 2: cmdline is optional.
	spec := &bootinfo.Spec{
		BinInfo:             bi,
		KernelPath:          binPath,
		KernelPartitionType: uint32(binPath.PartitionIDType),
		Platform:            deps.Platform.Type(),
	}

	if v, has, err := cfg.Get(scope, "cmdline", config.TypeString, true); err != nil {
		return err
	} else if has {
		spec.CmdlinePresent = true
		spec.Cmdline = v.String
	}

	// Step 3: load every module declared on this entry.
	mods, err := module.LoadAll(cfg, scope, deps.Registry, deps.Memory, moduleIndexBase)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}
	spec.Modules = mods

	// Transparency check runs here: kernel and module bytes are already
	// read, and the page-table, stack, video and attribute steps below
	// have not allocated anything yet, so a rejected boot stops before
	// them. The kernel and module pages allocated above stay allocated.
	// Named modules are boot-loader-specific blobs with no reliable
	// mapping onto a boot-transparency artifact category, so only the
	// kernel binary is checked.
	if deps.Transparency != nil {
		kernelHash := sha256.Sum256(kernelData)
		entry := transparency.BootEntry{
			{Category: artifact.LinuxKernel, Hash: kernelHash[:]},
		}
		if _, err := transparency.Verify(deps.Transparency, entry); err != nil {
			return fmt.Errorf("handover: transparency check failed: %w", err)
		}
	}

	// Step 4: build the page table.
	ptRoot, err := pagetable.Build(deps.Memory, deps.Mapper, bi)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}

	// Step 5: pick the kernel stack.
	stackAddr, err := stack.Pick(cfg, scope, deps.Memory)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}
	spec.StackAddress = stackAddr

	// Step 6: ACPI RSDP, if firmware has one.
	if rsdp, has := deps.Platform.ACPIRSDP(); has {
		spec.ACPIRSDPAddress = rsdp
		spec.HasACPIRSDP = has
	}

	// Step 7: video mode is picked and applied last among allocations,
	// since switching modes may make legacy console output unavailable.
	fb, hasFB, err := video.Select(cfg, scope, deps.Video)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}
	if hasFB {
		// Step 8: a higher-half kernel reads the framebuffer through
		// its direct map, not the raw physical address.
		if higherHalf {
			fb.PhysicalAddress += protocol.DirectMapBase
		}
		spec.FBPresent = true
		spec.FB = fb
	}

	// Step 9: build the attribute array and seal the memory map.
	res, err := bootinfo.Build(deps.Memory, spec)
	if err != nil {
		return fmt.Errorf("handover: %w", err)
	}
	if err := deps.Memory.Handover(res.MemoryMapHandoverKey); err != nil {
		return fmt.Errorf("handover: firmware rejected the handover: %w", err)
	}

	// Step 10: offset the two remaining addresses the kernel reads
	// through its direct map.
	attrAddr := res.AttributeArrayAddress
	handoverStack := stackAddr
	if higherHalf {
		attrAddr += protocol.DirectMapBase
		handoverStack += protocol.DirectMapBase
	}

	// Step 11: dispatch.
	if bi.Bitness == 32 {
		return deps.Trampoline.Handover32(bi.EntrypointAddress, handoverStack, attrAddr, protocol.Magic)
	}
	return deps.Trampoline.Handover64(bi.EntrypointAddress, handoverStack, ptRoot, attrAddr, protocol.Magic)
}
