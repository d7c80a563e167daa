// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"

	"github.com/gliderlabs/ssh"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/shell"
)

// serveSSH runs the same command dispatch table over SSH, matching the
// teacher's remote-shell ambition without needing a board UART.
// Host keys are generated on first listen since the console has no
// provisioned identity of its own.
func serveSSH(addr string) {
	handler := func(s ssh.Session) {
		iface := &shell.Interface{
			Banner:     "bootconsole - simulated loader-core console",
			ReadWriter: s,
			VT100:      true,
		}
		iface.Start()
	}

	log.Printf("ssh: serving on %s", addr)
	if err := ssh.ListenAndServe(addr, handler); err != nil {
		log.Printf("ssh: %v", err)
	}
}
