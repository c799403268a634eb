// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package interval

import (
	"github.com/google/btree"
)

const btreeDegree = 32

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	rejectOverlaps bool
}

// WithRejectOverlaps makes Insert fail with an *OverlapError instead of
// overwriting the intersected part of existing ranges.
func WithRejectOverlaps() BuilderOption {
	return func(opts *builderOptions) {
		opts.rejectOverlaps = true
	}
}

type node[K, V any] struct {
	start, end K
	value      V
}

// Builder accumulates ranges and resolves overlaps as they are inserted.
// Building should happen once, from a single goroutine; Finalize hands
// back the immutable Index.
type Builder[K, V any] struct {
	d              Domain[K]
	tree           *btree.BTreeG[node[K, V]]
	rejectOverlaps bool
}

// NewBuilder creates a Builder over the key space d.
func NewBuilder[K, V any](d Domain[K], opts ...BuilderOption) *Builder[K, V] {
	var options builderOptions
	for _, opt := range opts {
		opt(&options)
	}
	less := func(a, b node[K, V]) bool {
		return d.Compare(a.start, b.start) < 0
	}
	return &Builder[K, V]{
		d:              d,
		tree:           btree.NewG[node[K, V]](btreeDegree, less),
		rejectOverlaps: options.rejectOverlaps,
	}
}

// Insert maps every key in [start, end] to value.  Where the range
// intersects ranges inserted earlier the new value wins; the parts of the
// older ranges outside [start, end] keep their value.
func (b *Builder[K, V]) Insert(start, end K, value V) error {
	d := b.d
	if d.Compare(start, end) > 0 {
		return &InvalidRangeError{Start: start, End: end}
	}

	overlapped := b.overlapping(start, end)
	if len(overlapped) > 0 && b.rejectOverlaps {
		first := overlapped[0]
		return &OverlapError{Start: start, End: end, ExistingStart: first.start, ExistingEnd: first.end}
	}

	for _, n := range overlapped {
		b.tree.Delete(n)
	}
	for _, n := range overlapped {
		if d.Compare(n.start, start) < 0 {
			b.tree.ReplaceOrInsert(node[K, V]{start: n.start, end: d.Pred(start), value: n.value})
		}
		if d.Compare(n.end, end) > 0 {
			b.tree.ReplaceOrInsert(node[K, V]{start: d.Succ(end), end: n.end, value: n.value})
		}
	}
	b.tree.ReplaceOrInsert(node[K, V]{start: start, end: end, value: value})

	return nil
}

// overlapping returns the stored nodes intersecting [start, end] in
// ascending order.
func (b *Builder[K, V]) overlapping(start, end K) []node[K, V] {
	d := b.d
	pivot := node[K, V]{start: start}

	var out []node[K, V]
	// stored ranges are disjoint, so only the nearest range starting
	// before start can reach into [start, end]
	b.tree.DescendLessOrEqual(pivot, func(n node[K, V]) bool {
		if d.Compare(n.start, start) < 0 && d.Compare(n.end, start) >= 0 {
			out = append(out, n)
		}
		return false
	})
	b.tree.AscendGreaterOrEqual(pivot, func(n node[K, V]) bool {
		if d.Compare(n.start, end) > 0 {
			return false
		}
		out = append(out, n)
		return true
	})

	return out
}

// Len returns the number of disjoint ranges currently stored.
func (b *Builder[K, V]) Len() int {
	return b.tree.Len()
}

// Finalize freezes the stored ranges into an Index.  The Builder must not
// be used afterwards.
func (b *Builder[K, V]) Finalize() *Index[K, V] {
	n := b.tree.Len()
	idx := &Index[K, V]{
		d:      b.d,
		starts: make([]K, 0, n),
		ends:   make([]K, 0, n),
		values: make([]V, 0, n),
	}
	b.tree.Ascend(func(n node[K, V]) bool {
		idx.starts = append(idx.starts, n.start)
		idx.ends = append(idx.ends, n.end)
		idx.values = append(idx.values, n.value)
		return true
	})
	// we're done with this -- nil it so it can be GC'd earlier
	b.tree = nil

	return idx
}
