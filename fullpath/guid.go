// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package fullpath

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// EFIBytes renders id in the native EFI GUID in-memory layout: the first
// three fields little-endian, the rest a plain byte run. This is the
// byte order UEFI firmware expects when a FullPath addresses a GPT
// partition directly, distinct from uuid.UUID's big-endian RFC 4122
// wire form.
func EFIBytes(id uuid.UUID) [16]byte {
	b := [16]byte(id)

	var out [16]byte
	binary.LittleEndian.PutUint32(out[0:4], binary.BigEndian.Uint32(b[0:4]))
	binary.LittleEndian.PutUint16(out[4:6], binary.BigEndian.Uint16(b[4:6]))
	binary.LittleEndian.PutUint16(out[6:8], binary.BigEndian.Uint16(b[6:8]))
	copy(out[8:], b[8:])

	return out
}

// FromEFIBytes is the inverse of EFIBytes.
func FromEFIBytes(efi [16]byte) uuid.UUID {
	var b [16]byte
	binary.BigEndian.PutUint32(b[0:4], binary.LittleEndian.Uint32(efi[0:4]))
	binary.BigEndian.PutUint16(b[4:6], binary.LittleEndian.Uint16(efi[4:6]))
	binary.BigEndian.PutUint16(b[6:8], binary.LittleEndian.Uint16(efi[6:8]))
	copy(b[8:], efi[8:])

	return uuid.UUID(b)
}
