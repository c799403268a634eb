// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package dict holds the exact-match databases: AS number to name,
// country code to name, and TCP/UDP port to service.
package dict

import (
	"cmp"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"

	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

// Option configures how a table is built.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrict makes a repeated key an error instead of letting the later
// entry win.
func WithStrict() Option {
	return func(opts *options) {
		opts.strict = true
	}
}

// codec describes one kind of dictionary.
type codec[K cmp.Ordered, E any] struct {
	kind     string
	header   []string
	required []string

	key      func(e E) K
	parseKey func(s string) (K, error)
	fromRow  func(row tabular.Row) (E, error)
	record   func(e E) []string
	encode   func(key, value []byte, e E) ([]byte, []byte)
	decode   func(key, value []byte) (E, error)

	// check, if set, rejects entries that cannot be encoded losslessly.
	check func(e E) error
}

// Table is an immutable exact-match dictionary.  It is safe for
// concurrent use.
type Table[K cmp.Ordered, E any] struct {
	c *codec[K, E]
	m map[K]E
}

type tableBuilder[K cmp.Ordered, E any] struct {
	c      *codec[K, E]
	strict bool
	m      map[K]E
}

func (c *codec[K, E]) builder(opts []Option) *tableBuilder[K, E] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &tableBuilder[K, E]{c: c, strict: o.strict, m: make(map[K]E)}
}

func (tb *tableBuilder[K, E]) insert(e E) error {
	if tb.c.check != nil {
		if err := tb.c.check(e); err != nil {
			return err
		}
	}
	k := tb.c.key(e)
	if _, dup := tb.m[k]; dup && tb.strict {
		return &tabular.DuplicateKeyError{Key: fmt.Sprint(k)}
	}
	tb.m[k] = e
	return nil
}

func (tb *tableBuilder[K, E]) finalize() Table[K, E] {
	return Table[K, E]{c: tb.c, m: tb.m}
}

func (c *codec[K, E]) fromEntries(entries []E, opts []Option) (Table[K, E], error) {
	tb := c.builder(opts)
	for _, e := range entries {
		if err := tb.insert(e); err != nil {
			return Table[K, E]{}, err
		}
	}
	return tb.finalize(), nil
}

func (c *codec[K, E]) readCSV(r io.Reader, opts []Option) (Table[K, E], error) {
	rd, err := tabular.NewReader(r, c.required...)
	if err != nil {
		return Table[K, E]{}, err
	}
	tb := c.builder(opts)
	for row, err := range rd.Rows() {
		if err != nil {
			return Table[K, E]{}, err
		}
		e, err := c.fromRow(row)
		if err != nil {
			return Table[K, E]{}, row.Wrap(c.required[0], err)
		}
		if err := tb.insert(e); err != nil {
			return Table[K, E]{}, fmt.Errorf("line %d: %w", row.Line(), err)
		}
	}
	return tb.finalize(), nil
}

func (c *codec[K, E]) load(data []byte, opts []Option) (Table[K, E], error) {
	tb := c.builder(opts)
	err := datafile.Decode(data, c.kind, func(key, value []byte) error {
		e, err := c.decode(key, value)
		if err != nil {
			return err
		}
		return tb.insert(e)
	})
	if err != nil {
		return Table[K, E]{}, err
	}
	return tb.finalize(), nil
}

// Kind returns the canonical kind name.
func (t *Table[K, E]) Kind() string {
	return t.c.kind
}

// Len returns the number of entries.
func (t *Table[K, E]) Len() int {
	return len(t.m)
}

// Get returns the entry stored under key.
func (t *Table[K, E]) Get(key K) (E, bool) {
	e, ok := t.m[key]
	return e, ok
}

// All yields the entries in ascending key order.
func (t *Table[K, E]) All() iter.Seq[E] {
	return t.Filter(nil)
}

// Filter yields, in ascending key order, the entries keep returns true
// for.  A nil keep yields everything.
func (t *Table[K, E]) Filter(keep func(E) bool) iter.Seq[E] {
	return func(yield func(E) bool) {
		for _, k := range slices.Sorted(maps.Keys(t.m)) {
			e := t.m[k]
			if keep != nil && !keep(e) {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}

// Entries returns the entries in ascending key order.
func (t *Table[K, E]) Entries() []E {
	out := make([]E, 0, len(t.m))
	for e := range t.All() {
		out = append(out, e)
	}
	return out
}

// EncodeTo writes the entries to w in ascending key order.
func (t *Table[K, E]) EncodeTo(w *datafile.Writer) error {
	var key, value []byte
	for e := range t.All() {
		key, value = t.c.encode(key[:0], value[:0], e)
		if err := w.Write(key, value); err != nil {
			return fmt.Errorf("datafile.Write: %w", err)
		}
	}
	return nil
}

// Header returns the CSV header Records are rendered with.
func (t *Table[K, E]) Header() []string {
	return slices.Clone(t.c.header)
}

// Records renders the entries in the CSV input format.
func (t *Table[K, E]) Records() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for e := range t.All() {
			if !yield(t.c.record(e)) {
				return
			}
		}
	}
}

// Query looks up a key given as text.
func (t *Table[K, E]) Query(key string) ([]string, bool, error) {
	k, err := t.c.parseKey(key)
	if err != nil {
		return nil, false, fmt.Errorf("%s: invalid key %q: %w", t.c.kind, key, err)
	}
	e, ok := t.m[k]
	if !ok {
		return nil, false, nil
	}
	return t.c.record(e), true, nil
}

// register adds the kind to the registry.  wrap converts a built table
// into the exported database type.
func register[K cmp.Ordered, E any, DB registry.Database](c *codec[K, E], wrap func(Table[K, E]) DB) {
	registry.Register(&registry.Kind{
		Name:    c.kind,
		CSVName: c.kind + ".csv",
		BinName: c.kind + ".bin",
		Columns: slices.Clone(c.header),
		FromCSV: func(r io.Reader, opts registry.BuildOptions) (registry.Database, error) {
			var tableOpts []Option
			if opts.Strict {
				tableOpts = append(tableOpts, WithStrict())
			}
			t, err := c.readCSV(r, tableOpts)
			if err != nil {
				return nil, err
			}
			return wrap(t), nil
		},
		Load: func(data []byte) (registry.Database, error) {
			t, err := c.load(data, nil)
			if err != nil {
				return nil, err
			}
			return wrap(t), nil
		},
	})
}
