// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package registry_test

import (
	"bufio"
	"io"
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/registry"
)

// words is a toy database: a set of lines.
type words []string

func (w words) Kind() string { return "test-words" }
func (w words) Len() int     { return len(w) }
func (w words) EncodeTo(dw *datafile.Writer) error {
	for _, s := range w {
		if err := dw.Write([]byte(s), nil); err != nil {
			return err
		}
	}
	return nil
}
func (w words) Header() []string { return []string{"word"} }
func (w words) Records() iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for _, s := range w {
			if !yield([]string{s}) {
				return
			}
		}
	}
}
func (w words) Query(key string) ([]string, bool, error) {
	if slices.Contains(w, key) {
		return []string{key}, true, nil
	}
	return nil, false, nil
}

func init() {
	registry.Register(&registry.Kind{
		Name:    "test-words",
		CSVName: "test-words.csv",
		BinName: "test-words.bin",
		Columns: []string{"word"},
		FromCSV: func(r io.Reader, _ registry.BuildOptions) (registry.Database, error) {
			var w words
			s := bufio.NewScanner(r)
			for s.Scan() {
				w = append(w, s.Text())
			}
			return w, s.Err()
		},
		Load: func(data []byte) (registry.Database, error) {
			var w words
			err := datafile.Decode(data, "test-words", func(key, _ []byte) error {
				w = append(w, string(key))
				return nil
			})
			return w, err
		},
	})
}

func TestRegistry(t *testing.T) {
	k, err := registry.Lookup("test-words")
	require.NoError(t, err)
	require.Equal(t, "test-words.bin", k.BinName)

	_, err = registry.Lookup("nope")
	require.ErrorIs(t, err, registry.ErrUnknownKind)

	byCSV, ok := registry.ByCSVName("test-words.csv")
	require.True(t, ok)
	require.Same(t, k, byCSV)
	_, ok = registry.ByCSVName("README.md")
	require.False(t, ok)

	require.Contains(t, registry.Kinds(), k)
}

func TestRegistry_EncodeLoad(t *testing.T) {
	k, err := registry.Lookup("test-words")
	require.NoError(t, err)

	db, err := k.FromCSV(strings.NewReader("a\nb\nc"), registry.BuildOptions{})
	require.NoError(t, err)

	data, err := registry.Encode(db)
	require.NoError(t, err)

	loaded, err := registry.Load(data)
	require.NoError(t, err)
	require.Equal(t, db, loaded)

	rec, ok, err := loaded.Query("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"b"}, rec)
}

func TestRegistry_RegisterTwicePanics(t *testing.T) {
	k, err := registry.Lookup("test-words")
	require.NoError(t, err)
	require.Panics(t, func() { registry.Register(k) })
	require.Panics(t, func() { registry.Register(&registry.Kind{Name: "incomplete"}) })
}
