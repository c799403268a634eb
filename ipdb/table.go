// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ipdb maps IPv4 and IPv6 address ranges to autonomous system
// numbers or country codes.
//
// Tables are built once, from CSV rows, explicit entries or a datafile,
// and are read-only afterwards.  Ranges may overlap in the input; ranges
// added later win on the overlapped addresses.
package ipdb

import (
	"fmt"
	"io"
	"iter"
	"net/netip"

	"go4.org/netipx"

	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/interval"
	"github.com/bpowers/ndb/tabular"
)

// Entry maps the addresses in [From, To] to Value.
type Entry[K, V any] struct {
	From  K
	To    K
	Value V
}

// Option configures how a Table is built.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrict makes overlapping ranges an error instead of letting the later
// range win.
func WithStrict() Option {
	return func(opts *options) {
		opts.strict = true
	}
}

// schema ties a kind name to its key family and value codec.
type schema[K, V any] struct {
	kind   string
	family Family[K]
	value  Value[V]
}

// Table is an immutable range database.  It is safe for concurrent use.
type Table[K, V any] struct {
	s   schema[K, V]
	idx *interval.Index[K, V]
}

type tableBuilder[K, V any] struct {
	s schema[K, V]
	b *interval.Builder[K, V]
}

func (s schema[K, V]) builder(opts []Option) *tableBuilder[K, V] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var bopts []interval.BuilderOption
	if o.strict {
		bopts = append(bopts, interval.WithRejectOverlaps())
	}
	return &tableBuilder[K, V]{
		s: s,
		b: interval.NewBuilder[K, V](s.family.Domain(), bopts...),
	}
}

func (tb *tableBuilder[K, V]) insert(e Entry[K, V]) error {
	return tb.b.Insert(e.From, e.To, e.Value)
}

func (tb *tableBuilder[K, V]) finalize() *Table[K, V] {
	return &Table[K, V]{s: tb.s, idx: tb.b.Finalize()}
}

// fromEntries builds a table from entries, inserted in order.
func (s schema[K, V]) fromEntries(entries []Entry[K, V], opts ...Option) (*Table[K, V], error) {
	tb := s.builder(opts)
	for _, e := range entries {
		if err := tb.insert(e); err != nil {
			return nil, err
		}
	}
	return tb.finalize(), nil
}

// readCSV builds a table from CSV rows with ip_from, ip_to and value
// columns.  Ingestion stops at the first bad row.
func (s schema[K, V]) readCSV(r io.Reader, opts ...Option) (*Table[K, V], error) {
	column := s.value.Column()
	rd, err := tabular.NewReader(r, "ip_from", "ip_to", column)
	if err != nil {
		return nil, err
	}

	tb := s.builder(opts)
	for row, err := range rd.Rows() {
		if err != nil {
			return nil, err
		}
		var e Entry[K, V]
		if e.From, err = s.family.ParseKey(row.Get("ip_from")); err != nil {
			return nil, row.Wrap("ip_from", err)
		}
		if e.To, err = s.family.ParseKey(row.Get("ip_to")); err != nil {
			return nil, row.Wrap("ip_to", err)
		}
		if e.Value, err = s.value.Parse(row.Get(column)); err != nil {
			return nil, row.Wrap(column, err)
		}
		if err := tb.insert(e); err != nil {
			return nil, fmt.Errorf("line %d: %w", row.Line(), err)
		}
	}
	return tb.finalize(), nil
}

// load rebuilds a table from a datafile written by EncodeTo.
func (s schema[K, V]) load(data []byte, opts ...Option) (*Table[K, V], error) {
	keyLen := s.family.KeyLen()
	tb := s.builder(opts)
	err := datafile.Decode(data, s.kind, func(key, value []byte) error {
		if len(key) != 2*keyLen {
			return fmt.Errorf("range key is %d bytes, want %d", len(key), 2*keyLen)
		}
		v, err := s.value.DecodeValue(value)
		if err != nil {
			return err
		}
		return tb.insert(Entry[K, V]{
			From:  s.family.DecodeKey(key[:keyLen]),
			To:    s.family.DecodeKey(key[keyLen:]),
			Value: v,
		})
	})
	if err != nil {
		return nil, err
	}
	return tb.finalize(), nil
}

// Kind returns the canonical kind name, e.g. "ipv4-asn".
func (t *Table[K, V]) Kind() string {
	return t.s.kind
}

// Len returns the number of disjoint ranges.
func (t *Table[K, V]) Len() int {
	return t.idx.Len()
}

// Get returns the value of the range containing the integer key.
func (t *Table[K, V]) Get(key K) (V, bool) {
	return t.idx.Get(key)
}

// Lookup returns the value of the range containing addr.  Addresses of the
// other IP version never match.
func (t *Table[K, V]) Lookup(addr netip.Addr) (V, bool) {
	key, ok := t.s.family.FromAddr(addr)
	if !ok {
		var zero V
		return zero, false
	}
	return t.idx.Get(key)
}

// Find returns the entry containing addr.
func (t *Table[K, V]) Find(addr netip.Addr) (Entry[K, V], bool) {
	key, ok := t.s.family.FromAddr(addr)
	if !ok {
		return Entry[K, V]{}, false
	}
	iv, v, ok := t.idx.Find(key)
	if !ok {
		return Entry[K, V]{}, false
	}
	return Entry[K, V]{From: iv.Start, To: iv.End, Value: v}, true
}

// All yields the stored ranges in ascending order.  Ranges that were split
// by overlapping inserts appear as their surviving pieces.
func (t *Table[K, V]) All() iter.Seq[Entry[K, V]] {
	return func(yield func(Entry[K, V]) bool) {
		for iv, v := range t.idx.All() {
			if !yield(Entry[K, V]{From: iv.Start, To: iv.End, Value: v}) {
				return
			}
		}
	}
}

// Entries returns the stored ranges in ascending order.
func (t *Table[K, V]) Entries() []Entry[K, V] {
	out := make([]Entry[K, V], 0, t.Len())
	for e := range t.All() {
		out = append(out, e)
	}
	return out
}

// Range returns the addresses e covers.
func (t *Table[K, V]) Range(e Entry[K, V]) netipx.IPRange {
	f := t.s.family
	return netipx.IPRangeFrom(f.ToAddr(e.From), f.ToAddr(e.To))
}

// Prefixes returns the minimal list of CIDR prefixes covering e.
func (t *Table[K, V]) Prefixes(e Entry[K, V]) []netip.Prefix {
	return t.Range(e).Prefixes()
}

// PrefixRecords yields every stored range as CIDR prefixes, in ascending
// order, each paired with its formatted value.
func (t *Table[K, V]) PrefixRecords() iter.Seq2[netip.Prefix, string] {
	return func(yield func(netip.Prefix, string) bool) {
		for e := range t.All() {
			value := t.s.value.Format(e.Value)
			for _, p := range t.Prefixes(e) {
				if !yield(p, value) {
					return
				}
			}
		}
	}
}

// EncodeTo writes the stored ranges to w in ascending order.
func (t *Table[K, V]) EncodeTo(w *datafile.Writer) error {
	var key, value []byte
	for e := range t.All() {
		key = t.s.family.AppendKey(key[:0], e.From)
		key = t.s.family.AppendKey(key, e.To)
		value = t.s.value.AppendValue(value[:0], e.Value)
		if err := w.Write(key, value); err != nil {
			return fmt.Errorf("datafile.Write: %w", err)
		}
	}
	return nil
}

// Header returns the CSV header Records are rendered with.
func (t *Table[K, V]) Header() []string {
	return []string{"ip_from", "ip_to", t.s.value.Column()}
}

// Records renders the stored ranges in the CSV input format.
func (t *Table[K, V]) Records() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for e := range t.All() {
			if !yield([]string{t.s.family.FormatKey(e.From), t.s.family.FormatKey(e.To), t.s.value.Format(e.Value)}) {
				return
			}
		}
	}
}

// Query looks up an address or integer key given as text.  The matching
// range is rendered with textual addresses.
func (t *Table[K, V]) Query(key string) ([]string, bool, error) {
	k, err := t.s.family.ParseKey(key)
	if err != nil {
		return nil, false, fmt.Errorf("%s: invalid key %q: %w", t.s.kind, key, err)
	}
	iv, v, ok := t.idx.Find(k)
	if !ok {
		return nil, false, nil
	}
	f := t.s.family
	return []string{f.ToAddr(iv.Start).String(), f.ToAddr(iv.End).String(), t.s.value.Format(v)}, true, nil
}
