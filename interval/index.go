// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package interval maps closed ranges of an ordered key space to values
// and answers point queries in O(log n).
//
// A Builder accepts ranges in any order, possibly overlapping; later
// inserts win on the overlapped keys.  Finalize produces an Index, which is
// immutable and safe for concurrent use by multiple goroutines.
package interval

import (
	"iter"
	"sort"
)

// Interval is the closed range [Start, End].
type Interval[K any] struct {
	Start, End K
}

// Index is a sorted set of disjoint intervals, each carrying a value.
type Index[K, V any] struct {
	d      Domain[K]
	starts []K
	ends   []K
	values []V
}

// Empty returns an Index with no intervals.
func Empty[K, V any](d Domain[K]) *Index[K, V] {
	return &Index[K, V]{d: d}
}

// Get returns the value of the interval containing key.
func (idx *Index[K, V]) Get(key K) (value V, ok bool) {
	_, value, ok = idx.Find(key)
	return value, ok
}

// Find returns the interval containing key along with its value.
func (idx *Index[K, V]) Find(key K) (iv Interval[K], value V, ok bool) {
	if idx == nil || len(idx.starts) == 0 {
		return iv, value, false
	}
	// first interval starting after key; the candidate is the one before it
	i := sort.Search(len(idx.starts), func(i int) bool {
		return idx.d.Compare(idx.starts[i], key) > 0
	})
	if i == 0 {
		return iv, value, false
	}
	i--
	if idx.d.Compare(key, idx.ends[i]) > 0 {
		return iv, value, false
	}
	return Interval[K]{Start: idx.starts[i], End: idx.ends[i]}, idx.values[i], true
}

// All yields every interval and its value in ascending order.
func (idx *Index[K, V]) All() iter.Seq2[Interval[K], V] {
	return func(yield func(Interval[K], V) bool) {
		if idx == nil {
			return
		}
		for i := range idx.starts {
			if !yield(Interval[K]{Start: idx.starts[i], End: idx.ends[i]}, idx.values[i]) {
				return
			}
		}
	}
}

// Len returns the number of disjoint intervals.
func (idx *Index[K, V]) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.starts)
}
