// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"log"
	"net/http"

	"github.com/arl/statsviz"
)

// serveStats exposes a live statsviz dashboard over HTTP, for
// inspecting the console process's own allocator and goroutine
// behavior while it drives a simulated boot.
func serveStats(addr string) {
	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Printf("stats: registration failed, %v", err)
		return
	}

	log.Printf("stats: serving on http://%s/debug/statsviz/", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("stats: %v", err)
	}
}
