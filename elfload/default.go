// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package elfload

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
)

// DefaultParser implements Parser using the standard library's
// debug/elf package, the idiomatic choice for pure ELF-bytes-to-layout
// parsing in Go: no third-party library in the retrieved pack does this
// any differently, and a bare-metal unikernel loader in the pack uses
// debug/elf directly for exactly this purpose.
type DefaultParser struct{}

func (DefaultParser) Parse(data []byte) (ParseResult, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return ParseResult{}, err
	}
	defer f.Close()

	var bitness int
	switch f.Class {
	case elf.ELFCLASS32:
		bitness = 32
	case elf.ELFCLASS64:
		bitness = 64
	default:
		return ParseResult{}, fmt.Errorf("elfload: unrecognized ELF class %v", f.Class)
	}

	res := ParseResult{Bitness: bitness, Entry: f.Entry}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}

		buf := make([]byte, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), buf); err != nil {
			return ParseResult{}, fmt.Errorf("elfload: failed to read PT_LOAD segment: %w", err)
		}

		res.Segments = append(res.Segments, Segment{
			Vaddr:   prog.Vaddr,
			Paddr:   prog.Paddr,
			MemSize: prog.Memsz,
			Data:    buf,
		})
	}

	if len(res.Segments) == 0 {
		return ParseResult{}, fmt.Errorf("elfload: ELF has no PT_LOAD segments")
	}

	return res, nil
}
