// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/hako/durafmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/elfload"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/filesystem"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/handover"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/shell"
)

func init() {
	shell.Add(shell.Cmd{
		Name:    "load",
		Args:    1,
		Pattern: regexp.MustCompile(`^load (.+)`),
		Syntax:  "(path)",
		Help:    "run the loader core against a configuration file",
		Fn:      loadCmd,
	})

	shell.Add(shell.Cmd{
		Name: "memmap",
		Help: "dump the simulated firmware memory map",
		Fn:   memmapCmd,
	})

	shell.Add(shell.Cmd{
		Name: "uptime",
		Help: "time since the console started",
		Fn:   uptimeCmd,
	})
}

// consoleTrampoline replaces the real mode-switch/jump dispatch with a
// printout of the dispatch arguments (entry, stack, page-table root,
// attribute array address, magic) instead of jumping anywhere.
type consoleTrampoline struct{}

func (consoleTrampoline) Handover32(entry, stack, attrAddr uint64, magic uint32) error {
	fmt.Printf("would dispatch 32-bit: entry=%#x stack=%#x attr=%#x magic=%#x\n", entry, stack, attrAddr, magic)
	return nil
}

func (consoleTrampoline) Handover64(entry, stack, ptRoot, attrAddr uint64, magic uint32) error {
	fmt.Printf("would dispatch 64-bit: entry=%#x stack=%#x ptRoot=%#x attr=%#x magic=%#x\n", entry, stack, ptRoot, attrAddr, magic)
	return nil
}

// consoleMapper stands in for the real page-table writer; page tables
// are not meaningful on the host running the console.
type consoleMapper struct{}

func (consoleMapper) MapHugePages(virt, phys uint64, count int) error { return nil }
func (consoleMapper) MapPages(virt, phys uint64, count int) error     { return nil }

func loadCmd(arg []string) (string, error) {
	cfgPath := arg[0]

	doc, err := os.ReadFile(cfgPath)
	if err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	cfg, err := config.ParseJSON(doc)
	if err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	le := cfg.PickLoadableEntry("")

	reg := filesystem.NewRegistry()
	reg.Register("raw:0", os.DirFS(active.root))

	deps := handover.Deps{
		Parser:     elfload.DefaultParser{},
		Registry:   reg,
		Memory:     active.mem,
		Video:      active.mem,
		Platform:   active.mem,
		Mapper:     consoleMapper{},
		Trampoline: consoleTrampoline{},
	}

	if err := handover.Run(cfg, le.Scope, deps, 0); err != nil {
		return "", fmt.Errorf("load: %w", err)
	}

	return fmt.Sprintf("boot entry %q ran to handover", le.Name), nil
}

func memmapCmd(_ []string) (string, error) {
	mm, err := active.mem.GetMemoryMap()
	if err != nil {
		return "", err
	}

	res := fmt.Sprintf("%d entries, key %#x\n", len(mm.Entries), mm.Key)
	for _, e := range mm.Entries {
		res += fmt.Sprintf("  %#016x +%#x type=%d\n", e.PhysicalAddress, e.SizeInBytes, e.Type)
	}

	return res, nil
}

func uptimeCmd(_ []string) (string, error) {
	return durafmt.Parse(time.Since(startTime)).String(), nil
}
