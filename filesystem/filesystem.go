// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package filesystem implements the path/FS adapter (C2): resolving a
// parsed FullPath to an open file handle via a registry of detected
// filesystems, keyed by disk/partition identifier exactly as firmware
// would enumerate them.
//
// Each registered filesystem is a plain stdlib io/fs.FS, letting any
// format driver (FAT, an in-memory fixture, a host directory) plug in
// without this package knowing the difference; it only adds the
// disk/partition keying layer on top.
package filesystem

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/fullpath"
)

// Registry maps disk/partition identifiers to their filesystem.
type Registry struct {
	order []string
	byKey map[string]fs.FS
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: map[string]fs.FS{}}
}

// Register adds fsys under key, in registration order. Re-registering an
// existing key replaces it without changing its position.
func (r *Registry) Register(key string, fsys fs.FS) {
	if _, exists := r.byKey[key]; !exists {
		r.order = append(r.order, key)
	}
	r.byKey[key] = fsys
}

// Key computes the registry key a FullPath's disk/partition identifier
// maps to.
func Key(fp fullpath.FullPath) string {
	switch fp.PartitionIDType {
	case fullpath.Raw:
		return fmt.Sprintf("raw:%d", fp.PartitionIndex)
	case fullpath.GPT:
		return fmt.Sprintf("gpt:%s:%s", fp.DiskGUID, fp.PartitionGUID)
	default: // MBR
		return fmt.Sprintf("mbr:%s:%d", fp.DiskGUID, fp.PartitionIndex)
	}
}

// Lookup resolves fp's disk/partition identifier to its registered
// filesystem.
func (r *Registry) Lookup(fp fullpath.FullPath) (fs.FS, error) {
	fsys, ok := r.byKey[Key(fp)]
	if !ok {
		return nil, fmt.Errorf("filesystem: unknown partition for %q", fp)
	}
	return fsys, nil
}

// toFSPath adapts a FullPath's within-partition path (absolute,
// backslash-or-forward-slash delimited) to the slash-separated, root-
// relative form io/fs requires.
func toFSPath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "."
	}
	return path.Clean(p)
}

// Open resolves fp through the registry and opens the file it names.
func Open(r *Registry, fp fullpath.FullPath) (fs.File, error) {
	fsys, err := r.Lookup(fp)
	if err != nil {
		return nil, err
	}

	f, err := fsys.Open(toFSPath(fp.PathWithinPartition))
	if err != nil {
		return nil, fmt.Errorf("filesystem: open %q: %w", fp, err)
	}

	return f, nil
}

// ReadFile is Open followed by a full read, the common case for small
// configuration and module files.
func ReadFile(r *Registry, fp fullpath.FullPath) ([]byte, error) {
	fsys, err := r.Lookup(fp)
	if err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(fsys, toFSPath(fp.PathWithinPartition))
	if err != nil {
		return nil, fmt.Errorf("filesystem: read %q: %w", fp, err)
	}

	return data, nil
}

// FindConfig probes searchPaths against every registered filesystem, in
// registration order, returning the first hit. This mirrors the
// original loader's fixed search across every detected partition before
// any loadable entry can be read.
func FindConfig(r *Registry, searchPaths []string) (data []byte, key, foundPath string, err error) {
	for _, key := range r.order {
		fsys := r.byKey[key]

		for _, sp := range searchPaths {
			data, err := fs.ReadFile(fsys, toFSPath(sp))
			if err == nil {
				return data, key, sp, nil
			}
		}
	}

	return nil, "", "", fmt.Errorf("filesystem: no configuration file found in any search path")
}
