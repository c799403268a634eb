// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package ndb reads and writes the on-disk form of the network lookup
// databases.  The databases themselves live in the ipdb, oui and dict
// packages; importing one registers its kinds.
package ndb

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/internal/mmap"
	"github.com/bpowers/ndb/registry"
)

// Option configures file writing and loading.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets an optional logger for progress updates.  If not
// provided, no logging output will be produced.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func newOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// WriteFile encodes db to path.  The data is written to a temporary file
// in the same directory and renamed into place, so readers see either the
// old file or the complete new one.  The result is read-only.
func WriteFile(path string, db registry.Database, opts ...Option) error {
	o := newOptions(opts)

	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "ndb-builder.*.bin")
	if err != nil {
		return fmt.Errorf("CreateTemp failed (may need permissions for dir %q): %w", dir, err)
	}
	tmpPath := f.Name()
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	w, err := datafile.NewWriter(f, db.Kind())
	if err != nil {
		return fmt.Errorf("datafile.NewWriter: %w", err)
	}
	if err := db.EncodeTo(w); err != nil {
		return fmt.Errorf("%s.EncodeTo: %w", db.Kind(), err)
	}
	if err := w.Finish(); err != nil {
		return fmt.Errorf("datafile.Finish: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("f.Sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("f.Close: %w", err)
	}

	// make the file read-only
	if err := os.Chmod(tmpPath, 0444); err != nil {
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("os.Rename: %w", err)
	}
	ok = true

	o.logger.Info("wrote database", "kind", db.Kind(), "path", path, "records", w.Len())
	return nil
}

// Open maps path into memory and loads the database it holds, whatever
// its kind.  The mapping is released before Open returns.
func Open(path string, opts ...Option) (registry.Database, error) {
	o := newOptions(opts)

	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open(%s): %w", path, err)
	}
	defer func() { _ = r.Close() }()

	db, err := registry.Load(r.Data())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	o.logger.Debug("loaded database", "kind", db.Kind(), "path", path, "entries", db.Len())
	return db, nil
}

// OpenAs is Open for callers that know which database type path holds.
func OpenAs[T registry.Database](path string, opts ...Option) (T, error) {
	var zero T
	db, err := Open(path, opts...)
	if err != nil {
		return zero, err
	}
	t, ok := db.(T)
	if !ok {
		return zero, fmt.Errorf("%s: holds a %s database, not %T", path, db.Kind(), zero)
	}
	return t, nil
}

// Load decodes a database from an in-memory blob, such as one embedded
// with go:embed.
func Load(data []byte) (registry.Database, error) {
	return registry.Load(data)
}

// Encode returns the binary form of db.
func Encode(db registry.Database) ([]byte, error) {
	return registry.Encode(db)
}
