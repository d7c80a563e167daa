// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command bootconsole is a host-side developer console: it drives the
// loader core's packages (config, filesystem, elfload, module, video,
// stack, pagetable, bootinfo, handover) against firmware.Simulated
// instead of real firmware, so a boot attempt can be inspected and
// rerun without hardware. It is never imported by the core packages.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"time"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/shell"
)

var startTime = time.Now()

// memorySize fixes the Simulated backend's size for the whole console
// session. Every command shares that one backend, so allocations made
// by one "load" run remain in place for the next.
var (
	memorySize = flag.Int("memory", 256, "simulated firmware memory size, in MiB")
	root       = flag.String("root", ".", "directory served as disk \"hd0\" (registry key raw:0)")
	sshAddr    = flag.String("ssh", "", "address to serve the console over SSH too, e.g. :2222 (empty disables)")
	statsAddr  = flag.String("stats", "", "address to serve a statsviz dashboard on (empty disables)")
)

// console bundles the state every registered command closes over.
type console struct {
	mem  *firmware.Simulated
	root string
}

var active *console

func main() {
	flag.Parse()

	active = &console{
		mem:  firmware.NewSimulated(uint64(*memorySize)<<20, firmware.PlatformUEFI),
		root: *root,
	}
	active.mem.SetModes(firmware.Resolution{Width: 1024, Height: 768}, []firmware.Mode{
		{ID: 1, Width: 1024, Height: 768, BPP: 32},
	})

	if *statsAddr != "" {
		go serveStats(*statsAddr)
	}
	if *sshAddr != "" {
		go serveSSH(*sshAddr)
	}

	iface := &shell.Interface{
		Banner:     "bootconsole - simulated loader-core console",
		ReadWriter: stdio{os.Stdin, os.Stdout},
	}
	iface.Start()
}

// stdio joins the process's own stdin/stdout into the io.ReadWriter
// shell.Interface expects.
type stdio struct {
	io.Reader
	io.Writer
}

func init() {
	log.SetFlags(0)
}
