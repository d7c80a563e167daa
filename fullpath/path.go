// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package fullpath implements the textual path syntax used by
// configuration keys that name a file (C2's input): a disk/partition
// reference followed by a path within that partition's filesystem.
package fullpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PartitionIDType distinguishes how a FullPath's partition is located.
type PartitionIDType int

const (
	// Raw addresses the disk itself as a single unpartitioned volume.
	Raw PartitionIDType = iota
	MBR
	GPT
)

// FullPath is a resolved disk location, carrying whichever identifiers
// PartitionIDType calls for.
type FullPath struct {
	DiskGUID      uuid.UUID
	PartitionGUID uuid.UUID

	PartitionIDType PartitionIDType
	PartitionIndex  uint32

	PathWithinPartition string
}

// ParsePath parses the textual syntax accepted by "binary"/"module"/etc.
// path-valued configuration keys:
//
//	hd<N>:/path                      raw disk N, addressed by index
//	diskuuid-<GUID>:part<M>:/path    disk by GUID, MBR/ordinal partition M
//	diskuuid-<GUID>:partuuid-<GUID>:/path   disk and partition both by GUID
//
// The "hd<N>" form is whole-disk shorthand: it has no partition
// component of its own, so N is carried in PartitionIndex with
// PartitionIDType == Raw — the data model has no separate disk-index
// field, only DiskGUID, which a raw reference leaves zero.
//
// Any other shape, or a missing/empty path component, is a syntax error.
func ParsePath(s string) (FullPath, error) {
	prefix, path, ok := cutOnce(s, ":")
	if !ok {
		return FullPath{}, fmt.Errorf("fullpath: missing disk/partition prefix in %q", s)
	}

	if !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, `\`) {
		return FullPath{}, fmt.Errorf("fullpath: path component must be absolute in %q", s)
	}

	path = strings.ReplaceAll(path, `\`, "/")

	fp := FullPath{PathWithinPartition: path}

	switch {
	case strings.HasPrefix(prefix, "diskuuid-"):
		rest := strings.TrimPrefix(prefix, "diskuuid-")
		guidStr, partStr, ok := cutOnce(rest, ":")
		if !ok {
			return FullPath{}, fmt.Errorf("fullpath: missing partition selector in %q", s)
		}

		guid, err := uuid.Parse(guidStr)
		if err != nil {
			return FullPath{}, fmt.Errorf("fullpath: invalid disk GUID %q: %w", guidStr, err)
		}
		fp.DiskGUID = guid

		if err := parsePartitionSelector(partStr, &fp); err != nil {
			return FullPath{}, err
		}

	case strings.HasPrefix(prefix, "hd"):
		idx, err := strconv.ParseUint(strings.TrimPrefix(prefix, "hd"), 10, 32)
		if err != nil {
			return FullPath{}, fmt.Errorf("fullpath: invalid disk index in %q: %w", s, err)
		}

		fp.PartitionIDType = Raw
		fp.PartitionIndex = uint32(idx)

	default:
		return FullPath{}, fmt.Errorf("fullpath: unrecognized disk selector in %q", s)
	}

	return fp, nil
}

func parsePartitionSelector(s string, fp *FullPath) error {
	switch {
	case strings.HasPrefix(s, "partuuid-"):
		guid, err := uuid.Parse(strings.TrimPrefix(s, "partuuid-"))
		if err != nil {
			return fmt.Errorf("fullpath: invalid partition GUID %q: %w", s, err)
		}
		fp.PartitionIDType = GPT
		fp.PartitionGUID = guid
		return nil

	case strings.HasPrefix(s, "part"):
		idx, err := strconv.ParseUint(strings.TrimPrefix(s, "part"), 10, 32)
		if err != nil {
			return fmt.Errorf("fullpath: invalid partition index %q: %w", s, err)
		}
		fp.PartitionIDType = MBR
		fp.PartitionIndex = uint32(idx)
		return nil

	default:
		return fmt.Errorf("fullpath: unrecognized partition selector %q", s)
	}
}

func cutOnce(s, sep string) (before, after string, found bool) {
	i := strings.Index(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}

// String renders fp back into its textual syntax, used by diagnostics
// and by transparency path construction.
func (fp FullPath) String() string {
	var disk string
	if fp.DiskGUID != uuid.Nil {
		disk = "diskuuid-" + fp.DiskGUID.String()
	} else {
		disk = fmt.Sprintf("hd%d", fp.PartitionIndex)
		if fp.PartitionIDType == Raw {
			return disk + ":" + fp.PathWithinPartition
		}
	}

	switch fp.PartitionIDType {
	case GPT:
		return fmt.Sprintf("%s:partuuid-%s:%s", disk, fp.PartitionGUID, fp.PathWithinPartition)
	default:
		return fmt.Sprintf("%s:part%d:%s", disk, fp.PartitionIndex, fp.PathWithinPartition)
	}
}
