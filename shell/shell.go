// Copyright (c) WithSecure Corporation
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package shell

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Cmd represents a console command, registered once at init time by
// every package that implements one and matched against each line the
// console reads.
//
// A command with no Pattern matches only an exact, argument-less Name;
// one with a Pattern is matched against the whole input line, and its
// submatch count must equal Args for the command to fire.
type Cmd struct {
	// Name is the command as it appears in `help` output and, for an
	// argument-less command, the literal line it matches.
	Name string

	// Args is the number of regexp submatches Pattern must capture.
	Args int

	// Pattern, when set, matches the whole input line; its submatches
	// are passed to Fn.
	Pattern *regexp.Regexp

	// Syntax documents the argument list, e.g. "(path)?".
	Syntax string

	// Help is a one-line description shown by the `help` command.
	Help string

	// Fn executes the command against its matched arguments.
	Fn func(arg []string) (res string, err error)
}

var cmds []*Cmd

// Add registers a command with the console. It is meant to be called
// from an init function in the package that implements the command.
func Add(cmd Cmd) {
	cmds = append(cmds, &cmd)
}

// Help lists every registered command and its syntax, one per line,
// sorted by name.
func (iface *Interface) Help(_ []string) (res string, err error) {
	list := make([]*Cmd, len(cmds))
	copy(list, cmds)

	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})

	var b strings.Builder
	for _, cmd := range list {
		fmt.Fprintf(&b, "%-12s %-16s # %s\n", cmd.Name, cmd.Syntax, cmd.Help)
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
