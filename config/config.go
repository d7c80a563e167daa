// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/Th3T3chn0G1t/Keirmael-Hyper/diag"
)

// ErrNotFound is returned by the non-mandatory lookups when a key is
// absent from the given scope.
var ErrNotFound = fmt.Errorf("key not found")

// Get looks up key within scope, accepting any value shape allowed by
// mask. When mustBeUnique is true, a second occurrence of key within the
// same scope is a configuration error rather than being silently
// ignored, matching the source's must_be_unique flag.
func (c *Config) Get(scope int, key string, mask Type, mustBeUnique bool) (Value, bool, error) {
	found := false
	var val Value

	for i := scope; i != noScope; i = c.Entries[i].Next {
		e := &c.Entries[i]

		if e.Kind != KindValue || e.Key != key {
			continue
		}

		if e.Value.Type&mask == 0 {
			return Value{}, false, fmt.Errorf("key %q has type %s, expected %s", key, e.Value.Type, mask)
		}

		if found && mustBeUnique {
			return Value{}, false, fmt.Errorf("key %q occurs more than once in its scope", key)
		}

		if !found {
			val = e.Value
			found = true

			if !mustBeUnique {
				break
			}
		}
	}

	return val, found, nil
}

// GetOneOf is Get with the common two-or-more-shapes mask spelled out
// for readability at call sites, matching cfg_get_one_of.
func (c *Config) GetOneOf(scope int, key string, mask Type) (Value, bool, error) {
	return c.Get(scope, key, mask, true)
}

// GetFirstOneOf is GetOneOf without the uniqueness check, used to find
// the first of a repeatable key (e.g. "module").
func (c *Config) GetFirstOneOf(scope int, key string, mask Type) (Value, bool, error) {
	return c.Get(scope, key, mask, false)
}

// Iter returns a function that yields successive values for key within
// scope that satisfy mask, in file order. This replaces the source's
// stateful cfg_get_next cursor with an explicit Go iterator, avoiding
// hidden global state while keeping the same "walk repeated keys" shape.
func (c *Config) Iter(scope int, key string, mask Type) func() (Value, bool) {
	next := scope

	return func() (Value, bool) {
		for next != noScope {
			e := &c.Entries[next]
			next = e.Next

			if e.Kind != KindValue || e.Key != key {
				continue
			}

			if e.Value.Type&mask == 0 {
				diag.Oops("key %q has type %s, expected %s", key, e.Value.Type, mask)
				return Value{}, false
			}

			return e.Value, true
		}

		return Value{}, false
	}
}

// Mandatory looks up key within scope and halts the load via diag.Oops
// if it is absent, mirroring CFG_MANDATORY_GET_ONE_OF.
func (c *Config) Mandatory(scope int, key string, mask Type) Value {
	val, ok, err := c.Get(scope, key, mask, true)
	if err != nil {
		diag.Oops("%v", err)
	}
	if !ok {
		diag.Oops("couldn't find mandatory key %q in the config file", key)
	}
	return val
}

// MandatoryString is Mandatory narrowed to TypeString, for the common
// case of a required path-like key.
func (c *Config) MandatoryString(scope int, key string) string {
	return c.Mandatory(scope, key, TypeString).String
}

// FirstLoadableEntry returns the first loadable entry in file order.
func (c *Config) FirstLoadableEntry() (LoadableEntry, bool) {
	for i := c.Global; i != noScope; i = c.Entries[i].Next {
		if c.Entries[i].Kind == KindLoadable {
			return LoadableEntry{Name: c.Entries[i].Key, Scope: c.Entries[i].Scope}, true
		}
	}
	return LoadableEntry{}, false
}

// LoadableEntryByName finds a named loadable entry.
func (c *Config) LoadableEntryByName(name string) (LoadableEntry, bool) {
	for i := c.Global; i != noScope; i = c.Entries[i].Next {
		if c.Entries[i].Kind == KindLoadable && c.Entries[i].Key == name {
			return LoadableEntry{Name: name, Scope: c.Entries[i].Scope}, true
		}
	}
	return LoadableEntry{}, false
}

// PickLoadableEntry selects the loadable entry that drives a boot
// attempt: the one named by the global "default-entry" key if set and
// present, otherwise the first loadable entry in file order. It halts
// via diag.Oops when the configuration contains no loadable entry at
// all, matching the original's refusal to boot an empty config.
func (c *Config) PickLoadableEntry(name string) LoadableEntry {
	if name == "" {
		if v, ok, _ := c.Get(c.Global, "default-entry", TypeString, false); ok {
			name = v.String
		}
	}

	if name != "" {
		if le, ok := c.LoadableEntryByName(name); ok {
			return le
		}
	}

	if le, ok := c.FirstLoadableEntry(); ok {
		return le
	}

	diag.Oops("configuration file must contain at least one loadable entry")
	return LoadableEntry{}
}

// DefaultSearchPaths lists the paths probed, in order, on every
// discovered filesystem/partition when no explicit configuration path
// was given.
var DefaultSearchPaths = []string{
	`\hyper.cfg`,
	`\boot\hyper.cfg`,
	`\boot\hyper\hyper.cfg`,
}
