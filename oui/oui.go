// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package oui maps MAC addresses to the vendor they were assigned to.
//
// Vendors are registered under two kinds of prefixes.  Most are exact
// 24-bit organizationally unique identifiers ("AC:4A:56"); smaller blocks
// are CIDR-style prefixes of the 48-bit address space
// ("FC:D2:B6:00:00:00/28").  A lookup consults the CIDR prefixes first, so
// a smaller block carved out of an OUI wins over the OUI itself.
package oui

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"
	"net"
	"slices"
	"strings"

	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/interval"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

// Kind is the canonical name of the database.
const Kind = "oui"

// Entry is one vendor assignment.
type Entry struct {
	// MACPrefix is either "AC:4A:56" or "FC:D2:B6:00:00:00/28".
	MACPrefix    string
	Vendor       string
	VendorDetail string
}

// Option configures how a DB is built.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrict rejects duplicate exact prefixes and overlapping CIDR
// prefixes instead of letting the later entry win.
func WithStrict() Option {
	return func(opts *options) {
		opts.strict = true
	}
}

// DB is an immutable vendor database.  It is safe for concurrent use.
type DB struct {
	exact  map[string]Entry
	ranges *interval.Index[uint64, Entry]
	// cidrs holds every CIDR entry in the order it was added.
	cidrs []Entry
}

type builder struct {
	strict bool
	exact  map[string]Entry
	ranges *interval.Builder[uint64, Entry]
	cidrs  []Entry
}

func newBuilder(opts []Option) *builder {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	var bopts []interval.BuilderOption
	if o.strict {
		bopts = append(bopts, interval.WithRejectOverlaps())
	}
	return &builder{
		strict: o.strict,
		exact:  make(map[string]Entry),
		ranges: interval.NewBuilder[uint64, Entry](interval.Uint64, bopts...),
	}
}

func (b *builder) insert(e Entry) error {
	if strings.IndexByte(e.Vendor, 0) >= 0 {
		return &tabular.ParseError{Column: "vendor", Value: e.Vendor, Err: errors.New("NUL byte in vendor")}
	}

	if strings.Contains(e.MACPrefix, "/") {
		start, end, err := parseCIDR(e.MACPrefix)
		if err != nil {
			return &tabular.ParseError{Column: "mac_prefix", Value: e.MACPrefix, Err: err}
		}
		if err := b.ranges.Insert(start, end, e); err != nil {
			return fmt.Errorf("prefix %s: %w", e.MACPrefix, err)
		}
		b.cidrs = append(b.cidrs, e)
		return nil
	}

	key, err := parseExact(e.MACPrefix)
	if err != nil {
		return &tabular.ParseError{Column: "mac_prefix", Value: e.MACPrefix, Err: err}
	}
	if _, dup := b.exact[key]; dup && b.strict {
		return &tabular.DuplicateKeyError{Key: key}
	}
	b.exact[key] = e
	return nil
}

func (b *builder) finalize() *DB {
	return &DB{
		exact:  b.exact,
		ranges: b.ranges.Finalize(),
		cidrs:  b.cidrs,
	}
}

// New builds a DB from entries, added in order.
func New(entries []Entry, opts ...Option) (*DB, error) {
	b := newBuilder(opts)
	for _, e := range entries {
		if err := b.insert(e); err != nil {
			return nil, err
		}
	}
	return b.finalize(), nil
}

// ReadCSV builds a DB from CSV rows with mac_prefix, vendor and an
// optional vendor_detail column.
func ReadCSV(r io.Reader, opts ...Option) (*DB, error) {
	rd, err := tabular.NewReader(r, "mac_prefix", "vendor")
	if err != nil {
		return nil, err
	}

	b := newBuilder(opts)
	for row, err := range rd.Rows() {
		if err != nil {
			return nil, err
		}
		e := Entry{
			MACPrefix:    row.Get("mac_prefix"),
			Vendor:       row.Get("vendor"),
			VendorDetail: row.Get("vendor_detail"),
		}
		if err := b.insert(e); err != nil {
			var parseErr *tabular.ParseError
			if errors.As(err, &parseErr) {
				return nil, row.Wrap("mac_prefix", err)
			}
			return nil, fmt.Errorf("line %d: %w", row.Line(), err)
		}
	}
	return b.finalize(), nil
}

// Load rebuilds a DB from a datafile written by EncodeTo.
func Load(data []byte, opts ...Option) (*DB, error) {
	b := newBuilder(opts)
	err := datafile.Decode(data, Kind, func(key, value []byte) error {
		vendor, detail, _ := bytes.Cut(value, []byte{0})
		return b.insert(Entry{
			MACPrefix:    string(key),
			Vendor:       string(vendor),
			VendorDetail: string(detail),
		})
	})
	if err != nil {
		return nil, err
	}
	return b.finalize(), nil
}

// Kind returns "oui".
func (db *DB) Kind() string {
	return Kind
}

// Len returns the number of stored entries.
func (db *DB) Len() int {
	return len(db.exact) + len(db.cidrs)
}

// Get returns the entry registered for an exact 3-octet prefix.  CIDR
// prefixes are not consulted.
func (db *DB) Get(prefix string) (Entry, bool) {
	key, err := parseExact(prefix)
	if err != nil {
		return Entry{}, false
	}
	e, ok := db.exact[key]
	return e, ok
}

// Lookup parses mac and returns the vendor it belongs to.  The error is
// only non-nil when mac can't be parsed.
func (db *DB) Lookup(mac string) (Entry, bool, error) {
	hw, err := ParseMAC(mac)
	if err != nil {
		return Entry{}, false, err
	}
	e, ok := db.LookupMAC(hw)
	return e, ok, nil
}

// LookupMAC returns the vendor of a 6-octet MAC address.
func (db *DB) LookupMAC(mac net.HardwareAddr) (Entry, bool) {
	key, ok := Key(mac)
	if !ok {
		return Entry{}, false
	}
	return db.LookupKey(key)
}

// LookupKey returns the vendor of a MAC address in 48-bit integer form.
func (db *DB) LookupKey(key uint64) (Entry, bool) {
	if key > maxKey {
		return Entry{}, false
	}
	if e, ok := db.ranges.Get(key); ok {
		return e, true
	}
	e, ok := db.exact[exactKey(key)]
	return e, ok
}

// All yields the exact entries sorted by prefix, followed by the CIDR
// entries in the order they were added.  Building a DB from this sequence
// gives the same answers as db.
func (db *DB) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, key := range slices.Sorted(maps.Keys(db.exact)) {
			if !yield(db.exact[key]) {
				return
			}
		}
		for _, e := range db.cidrs {
			if !yield(e) {
				return
			}
		}
	}
}

// Entries returns the entries in the order All yields them.
func (db *DB) Entries() []Entry {
	out := make([]Entry, 0, db.Len())
	for e := range db.All() {
		out = append(out, e)
	}
	return out
}

// Ranges yields the disjoint CIDR ranges in ascending order, after
// overlapping prefixes have been resolved.
func (db *DB) Ranges() iter.Seq2[interval.Interval[uint64], Entry] {
	return db.ranges.All()
}

// EncodeTo writes the entries to w in the order All yields them.
func (db *DB) EncodeTo(w *datafile.Writer) error {
	var value []byte
	for e := range db.All() {
		value = append(value[:0], e.Vendor...)
		value = append(value, 0)
		value = append(value, e.VendorDetail...)
		if err := w.Write([]byte(e.MACPrefix), value); err != nil {
			return fmt.Errorf("datafile.Write: %w", err)
		}
	}
	return nil
}

var header = []string{"mac_prefix", "vendor", "vendor_detail"}

// Header returns the CSV header Records are rendered with.
func (db *DB) Header() []string {
	return slices.Clone(header)
}

func (e Entry) record() []string {
	return []string{e.MACPrefix, e.Vendor, e.VendorDetail}
}

// Records renders the entries in the CSV input format.
func (db *DB) Records() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for e := range db.All() {
			if !yield(e.record()) {
				return
			}
		}
	}
}

// Query looks up a MAC address, or failing that an exact 3-octet prefix.
func (db *DB) Query(key string) ([]string, bool, error) {
	e, ok, err := db.Lookup(key)
	if err != nil {
		if _, perr := parseExact(key); perr != nil {
			return nil, false, err
		}
		e, ok = db.Get(key)
	}
	if !ok {
		return nil, false, nil
	}
	return e.record(), true, nil
}

func init() {
	registry.Register(&registry.Kind{
		Name:    Kind,
		CSVName: Kind + ".csv",
		BinName: Kind + ".bin",
		Columns: slices.Clone(header),
		FromCSV: func(r io.Reader, opts registry.BuildOptions) (registry.Database, error) {
			var dbOpts []Option
			if opts.Strict {
				dbOpts = append(dbOpts, WithStrict())
			}
			db, err := ReadCSV(r, dbOpts...)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
		Load: func(data []byte) (registry.Database, error) {
			db, err := Load(data)
			if err != nil {
				return nil, err
			}
			return db, nil
		},
	})
}
