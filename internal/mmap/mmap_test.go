// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package mmap

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	want := []byte("hello, mapped world")
	require.NoError(t, os.WriteFile(path, want, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, len(want), r.Len())
	require.Equal(t, want, r.Data())

	buf := make([]byte, 6)
	n, err := r.ReadAt(buf, 7)
	require.NoError(t, err)
	require.Equal(t, 6, n)
	require.Equal(t, "mapped", string(buf))

	n, err = r.ReadAt(buf, int64(len(want)-2))
	require.Equal(t, io.EOF, err)
	require.Equal(t, 2, n)

	require.NoError(t, r.Close())
	// closing twice is harmless
	require.NoError(t, r.Close())
	require.Equal(t, 0, r.Len())
}

func TestOpen_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path)
	require.NoError(t, err)
	require.Equal(t, 0, r.Len())
	require.NoError(t, r.Close())
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
