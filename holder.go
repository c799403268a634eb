// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ndb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/sagernet/fswatch"

	"github.com/bpowers/ndb/registry"
)

// ErrNotLoaded is returned by Holder.Get before the first successful load.
var ErrNotLoaded = errors.New("database not loaded")

// Holder publishes the current version of a database.  Readers call Get
// and use the result without locking; Reload builds a new version and
// swaps it in only if building succeeded.
type Holder[T any] struct {
	cur    atomic.Pointer[T]
	load   func(ctx context.Context) (T, error)
	logger *slog.Logger

	reloadMu sync.Mutex

	mu      sync.Mutex
	watcher *fswatch.Watcher
}

// NewHolder returns an empty Holder that builds new versions with load.
func NewHolder[T any](load func(ctx context.Context) (T, error), opts ...Option) *Holder[T] {
	o := newOptions(opts)
	return &Holder[T]{load: load, logger: o.logger}
}

// NewFileHolder returns a Holder whose versions are read from path.
func NewFileHolder[T registry.Database](path string, opts ...Option) *Holder[T] {
	return NewHolder(func(context.Context) (T, error) {
		return OpenAs[T](path, opts...)
	}, opts...)
}

// Get returns the current version.
func (h *Holder[T]) Get() (T, error) {
	p := h.cur.Load()
	if p == nil {
		var zero T
		return zero, ErrNotLoaded
	}
	return *p, nil
}

// Store publishes v as the current version.
func (h *Holder[T]) Store(v T) {
	h.cur.Store(&v)
}

// Reload builds a new version and publishes it.  On error the previous
// version stays current.
func (h *Holder[T]) Reload(ctx context.Context) error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	v, err := h.load(ctx)
	if err != nil {
		h.logger.Warn("reload failed, keeping previous version", "err", err)
		return fmt.Errorf("reload: %w", err)
	}
	h.Store(v)
	h.logger.Info("reloaded database")
	return nil
}

// Watch reloads the holder whenever path changes on disk.  Only one path
// is watched at a time; calling Watch again replaces the previous watch.
func (h *Holder[T]) Watch(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("filepath.Abs: %w", err)
	}
	watcher, err := fswatch.NewWatcher(fswatch.Options{
		Path: []string{path},
		Callback: func(string) {
			_ = h.Reload(context.Background())
		},
	})
	if err != nil {
		return fmt.Errorf("fswatch.NewWatcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("fswatch.Start: %w", err)
	}

	h.mu.Lock()
	old := h.watcher
	h.watcher = watcher
	h.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	h.logger.Debug("watching database", "path", path)
	return nil
}

// Close stops watching.  The current version stays available.
func (h *Holder[T]) Close() error {
	h.mu.Lock()
	watcher := h.watcher
	h.watcher = nil
	h.mu.Unlock()
	if watcher == nil {
		return nil
	}
	return watcher.Close()
}

// MustOnce returns a function that calls load the first time it is
// invoked and returns the same result afterwards.  It panics if load
// fails, which suits data bundled with the binary.
func MustOnce[T any](load func() (T, error)) func() T {
	return sync.OnceValue(func() T {
		v, err := load()
		if err != nil {
			panic(fmt.Sprintf("ndb: loading bundled database: %v", err))
		}
		return v
	})
}
