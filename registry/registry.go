// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package registry maps the canonical name of each database kind to the
// functions that build it from CSV and load it from a datafile.  Database
// packages register themselves from init, so importing a package for its
// side effect is enough to make its kinds available:
//
//	import _ "github.com/bpowers/ndb/ipdb"
package registry

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"sync"

	"github.com/bpowers/ndb/datafile"
)

// Database is the surface every built database exposes to generic tooling.
type Database interface {
	// Kind returns the canonical kind name, e.g. "ipv4-asn".
	Kind() string
	// Len returns the number of stored entries.
	Len() int
	// EncodeTo writes the entries in replayable order.
	EncodeTo(w *datafile.Writer) error
	// Header returns the CSV column names Records are rendered with.
	Header() []string
	// Records renders the entries as CSV rows.
	Records() iter.Seq[[]string]
	// Query looks up a key given as text and renders the result as a
	// row.  A miss is (nil, false, nil); err is only for malformed keys.
	Query(key string) (record []string, ok bool, err error)
}

// BuildOptions are the options shared by every kind's CSV builder.
type BuildOptions struct {
	// Strict rejects overlapping ranges and duplicate keys instead of
	// letting the later entry win.
	Strict bool
}

// Kind describes how to build and load one kind of database.
type Kind struct {
	Name    string
	CSVName string
	BinName string
	Columns []string

	FromCSV func(r io.Reader, opts BuildOptions) (Database, error)
	Load    func(data []byte) (Database, error)
}

// ErrUnknownKind is returned for a kind name nothing registered.
var ErrUnknownKind = errors.New("unknown database kind")

var (
	mu    sync.RWMutex
	kinds = make(map[string]*Kind)
)

// Register makes a kind available by name.  It panics if called twice for
// the same name or if a function is missing.
func Register(k *Kind) {
	mu.Lock()
	defer mu.Unlock()

	if k == nil || k.FromCSV == nil || k.Load == nil {
		panic("registry: Register kind is incomplete")
	}
	if _, dup := kinds[k.Name]; dup {
		panic("registry: Register called twice for kind " + k.Name)
	}
	kinds[k.Name] = k
}

// Lookup returns the kind registered under name.
func Lookup(name string) (*Kind, error) {
	mu.RLock()
	defer mu.RUnlock()

	k, ok := kinds[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, name)
	}
	return k, nil
}

// ByCSVName returns the kind whose source CSV file is called name.
func ByCSVName(name string) (*Kind, bool) {
	mu.RLock()
	defer mu.RUnlock()

	for _, k := range kinds {
		if k.CSVName == name {
			return k, true
		}
	}
	return nil, false
}

// Kinds returns every registered kind sorted by name.
func Kinds() []*Kind {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]*Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b *Kind) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Load decodes data with the kind named in its header.
func Load(data []byte) (Database, error) {
	r, err := datafile.NewReader(data)
	if err != nil {
		return nil, err
	}
	k, err := Lookup(r.Kind())
	if err != nil {
		return nil, err
	}
	return k.Load(data)
}

// Encode writes db to a datafile in memory.
func Encode(db Database) ([]byte, error) {
	return datafile.Encode(db.Kind(), db.EncodeTo)
}
