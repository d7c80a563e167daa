// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package firmware

// VideoServices is the firmware surface C5 needs: native resolution,
// the list of supported modes, and the ability to switch.
type VideoServices interface {
	NativeResolution() (Resolution, error)
	ListModes() ([]Mode, error)
	SetMode(id int) (Framebuffer, error)
}

// PlatformServices exposes platform identification and the ACPI root
// pointer, the two pieces of static platform info C9/C8 need beyond
// memory and video.
type PlatformServices interface {
	Type() PlatformType
	ACPIRSDP() (uint64, bool)
}
