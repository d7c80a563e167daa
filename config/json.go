// Copyright (c) The go-boot authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ParseError carries the byte offset of a malformed document, the one
// piece of positional information encoding/json exposes, matching the
// line/offset pair the source's own parser attaches to config_error.
type ParseError struct {
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("config: parse error at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func wrapParseErr(err error) error {
	if se, ok := err.(*json.SyntaxError); ok {
		return &ParseError{Offset: se.Offset, Err: err}
	}
	return &ParseError{Err: err}
}

// ParseJSON decodes a JSON configuration document into the flat-buffer
// model consumed by Config. It is the one concrete parser this module
// ships; the query layer in config.go never touches encoding/json and
// would happily consume a tree built by a different parser.
//
// Top-level keys become global-scope entries, except "entries", a map
// of named loadable entries whose own fields become that entry's scope.
// A JSON array under a key is modelled as repeated entries for that
// key, in array order, matching a repeatable key like "module" in the
// original grammar.
func ParseJSON(data []byte) (*Config, error) {
	var doc map[string]any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, wrapParseErr(err)
	}

	entries, _ := doc["entries"].(map[string]any)
	delete(doc, "entries")

	c := New()
	b := &builder{c: c}

	top := newChain()
	for _, k := range sortedKeys(doc) {
		top.add(c, b.buildValueEntries(k, doc[k])...)
	}

	for _, name := range sortedKeys(entries) {
		fields, _ := entries[name].(map[string]any)
		scope := b.buildScope(fields)

		idx := len(c.Entries)
		c.Entries = append(c.Entries, Entry{Key: name, Kind: KindLoadable, Scope: scope, Next: noScope})
		top.add(c, idx)
	}

	c.Global = top.head

	return c, nil
}

// builder turns decoded JSON values into flat Entry records.
type builder struct {
	c *Config
}

// chain tracks the head and tail of a same-scope linked list while it is
// being assembled, so entries can be appended one key at a time without
// a second pass to fix up Next pointers.
type chain struct {
	head, tail int
}

func newChain() chain { return chain{noScope, noScope} }

func (ch *chain) add(c *Config, idxs ...int) {
	for _, idx := range idxs {
		if ch.head == noScope {
			ch.head = idx
		}
		if ch.tail != noScope {
			c.Entries[ch.tail].Next = idx
		}
		ch.tail = idx
	}
}

func (b *builder) buildScope(m map[string]any) int {
	ch := newChain()
	for _, k := range sortedKeys(m) {
		ch.add(b.c, b.buildValueEntries(k, m[k])...)
	}
	return ch.head
}

func (b *builder) buildValueEntries(key string, v any) []int {
	if arr, ok := v.([]any); ok {
		idxs := make([]int, 0, len(arr))
		for _, item := range arr {
			idxs = append(idxs, b.appendValue(key, item))
		}
		return idxs
	}
	return []int{b.appendValue(key, v)}
}

func (b *builder) appendValue(key string, v any) int {
	val := b.valueFromAny(v)
	idx := len(b.c.Entries)
	b.c.Entries = append(b.c.Entries, Entry{Key: key, Kind: KindValue, Value: val, Scope: val.Scope, Next: noScope})
	return idx
}

func (b *builder) valueFromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Type: TypeNone, Scope: noScope}
	case bool:
		return Value{Type: TypeBool, Bool: t, Scope: noScope}
	case string:
		return Value{Type: TypeString, String: t, Scope: noScope}
	case json.Number:
		if n, err := t.Int64(); err == nil {
			if n >= 0 {
				return Value{Type: TypeUnsigned, Unsigned: uint64(n), Scope: noScope}
			}
			return Value{Type: TypeSigned, Signed: n, Scope: noScope}
		}
		return Value{Type: TypeNone, Scope: noScope}
	case map[string]any:
		return Value{Type: TypeObject, Scope: b.buildScope(t)}
	default:
		return Value{Type: TypeNone, Scope: noScope}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
