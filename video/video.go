// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package video implements the video mode picker (C5): resolving a
// loadable entry's "video-mode" configuration key against the modes the
// firmware enumerates, and switching to the chosen mode.
package video

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/config"
	"github.com/Th3T3chn0G1t/Keirmael-Hyper/firmware"
)

// Constraint selects how a Requested mode's dimensions bound the
// firmware's available modes.
type Constraint int

const (
	// AtLeast accepts any mode whose width/height/bpp are all >= the
	// request, clamped to not exceed the firmware's native resolution;
	// the last matching mode in enumeration order wins.
	AtLeast Constraint = iota
	// Exactly requires every field to match; the first matching mode
	// wins.
	Exactly
)

const (
	defaultWidth  = 1024
	defaultHeight = 768
	defaultBPP    = 32
)

// Requested is the decoded "video-mode" configuration value.
type Requested struct {
	Width, Height, BPP uint32
	Constraint         Constraint
	// None means video-mode was "unset" or null: C5 must be skipped
	// entirely and no framebuffer attribute produced.
	None bool
}

// FromConfig decodes the "video-mode" key within scope, defaulting to
// an at-least 1024x768x32 request when the key is entirely absent,
// matching the source's rm initializer.
func FromConfig(cfg *config.Config, scope int) (Requested, error) {
	rm := Requested{Width: defaultWidth, Height: defaultHeight, BPP: defaultBPP, Constraint: AtLeast}

	val, ok, err := cfg.GetOneOf(scope, "video-mode", config.TypeObject|config.TypeString|config.TypeNone)
	if err != nil {
		return Requested{}, err
	}
	if !ok {
		return rm, nil
	}

	switch {
	case val.IsNull():
		return Requested{None: true}, nil

	case val.IsString():
		switch val.String {
		case "unset":
			return Requested{None: true}, nil
		case "auto":
			return rm, nil
		default:
			return Requested{}, fmt.Errorf("video: invalid value for \"video-mode\": %q", val.String)
		}

	default: // object
		if v, ok, _ := cfg.Get(val.Scope, "width", config.TypeUnsigned, true); ok {
			rm.Width = uint32(v.Unsigned)
		}
		if v, ok, _ := cfg.Get(val.Scope, "height", config.TypeUnsigned, true); ok {
			rm.Height = uint32(v.Unsigned)
		}
		if v, ok, _ := cfg.Get(val.Scope, "bpp", config.TypeUnsigned, true); ok {
			rm.BPP = uint32(v.Unsigned)
		}
		if v, ok, _ := cfg.Get(val.Scope, "constraint", config.TypeString, true); ok {
			switch v.String {
			case "at-least":
				rm.Constraint = AtLeast
			case "exactly":
				rm.Constraint = Exactly
			default:
				return Requested{}, fmt.Errorf("video: invalid value for \"constraint\": %q", v.String)
			}
		}
		return rm, nil
	}
}

// equals reports whether m matches rm's width/height/bpp exactly.
func equals(m firmware.Mode, rm Requested) bool {
	return m.Width == rm.Width && m.Height == rm.Height && m.BPP == rm.BPP
}

// atLeast reports whether m meets or exceeds rm in every dimension.
func atLeast(m firmware.Mode, rm Requested) bool {
	return m.Width >= rm.Width && m.Height >= rm.Height && m.BPP >= rm.BPP
}

// withinNative reports whether m's width/height do not exceed native.
func withinNative(m firmware.Mode, native firmware.Resolution) bool {
	return m.Width <= native.Width && m.Height <= native.Height
}

// Pick selects a mode from modes according to rm, clamped against the
// firmware's native resolution. Exactly returns on the first exact
// match; AtLeast keeps scanning and returns the last qualifying mode,
// matching the original's "last match wins, first only for exact
// equality" tie-break.
func Pick(modes []firmware.Mode, native firmware.Resolution, rm Requested) (firmware.Mode, bool) {
	var picked firmware.Mode
	found := false

	for _, m := range modes {
		if rm.Constraint == Exactly {
			if equals(m, rm) {
				return m, true
			}
			continue
		}

		if atLeast(m, rm) && withinNative(m, native) {
			picked = m
			found = true
		}
	}

	return picked, found
}

// Select implements the full C5 flow against a firmware backend: decode
// the request, pick a mode, and switch to it. A None request is a valid
// "do nothing" outcome, signalled by the zero Framebuffer and ok=false.
func Select(cfg *config.Config, scope int, vs firmware.VideoServices) (firmware.Framebuffer, bool, error) {
	rm, err := FromConfig(cfg, scope)
	if err != nil {
		return firmware.Framebuffer{}, false, err
	}
	if rm.None {
		return firmware.Framebuffer{}, false, nil
	}

	native, err := vs.NativeResolution()
	if err != nil {
		native = firmware.Resolution{Width: defaultWidth, Height: defaultHeight}
	}

	modes, err := vs.ListModes()
	if err != nil {
		return firmware.Framebuffer{}, false, fmt.Errorf("video: failed to enumerate modes: %w", err)
	}

	mode, ok := Pick(modes, native, rm)
	if !ok {
		return firmware.Framebuffer{}, false, fmt.Errorf("video: failed to pick a video mode for %dx%d %d bpp", rm.Width, rm.Height, rm.BPP)
	}

	fb, err := vs.SetMode(mode.ID)
	if err != nil {
		return firmware.Framebuffer{}, false, fmt.Errorf("video: failed to set picked mode: %w", err)
	}

	return fb, true, nil
}
