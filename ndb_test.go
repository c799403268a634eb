// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ndb_test

import (
	"context"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/ndb"
	"github.com/bpowers/ndb/datafile"
	"github.com/bpowers/ndb/dict"
	"github.com/bpowers/ndb/ipdb"
)

func newASNTable(t *testing.T, asn uint32) *ipdb.IPv4ASN {
	t.Helper()
	db, err := ipdb.NewIPv4ASN([]ipdb.IPv4ASNEntry{
		{From: 0x0a000000, To: 0x0a0000ff, Value: asn},
		{From: 0x0b000000, To: 0x0bffffff, Value: 64500},
	})
	require.NoError(t, err)
	return db
}

func TestWriteFile_Open(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ipdb.KindIPv4ASN+".bin")
	orig := newASNTable(t, 13335)

	require.NoError(t, ndb.WriteFile(path, orig))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1, "temporary file left behind")

	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0444), fi.Mode().Perm())
	}

	db, err := ndb.Open(path)
	require.NoError(t, err)
	require.Equal(t, ipdb.KindIPv4ASN, db.Kind())
	require.Equal(t, slices.Collect(orig.Records()), slices.Collect(db.Records()))

	table, err := ndb.OpenAs[*ipdb.IPv4ASN](path)
	require.NoError(t, err)
	asn, ok := table.Lookup(netip.MustParseAddr("10.0.0.255"))
	require.True(t, ok)
	require.Equal(t, uint32(13335), asn)

	_, err = ndb.OpenAs[*dict.AS](path)
	require.Error(t, err)

	// the file is read-only, but rename replaces it
	require.NoError(t, ndb.WriteFile(path, newASNTable(t, 15169)))
	table, err = ndb.OpenAs[*ipdb.IPv4ASN](path)
	require.NoError(t, err)
	asn, _ = table.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, uint32(15169), asn)
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ndb.Open(filepath.Join(dir, "missing.bin"))
	require.Error(t, err)

	data, err := ndb.Encode(newASNTable(t, 1))
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	path := filepath.Join(dir, "corrupt.bin")
	require.NoError(t, os.WriteFile(path, data, 0644))
	_, err = ndb.Open(path)
	require.ErrorIs(t, err, datafile.ErrDecode)

	empty := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = ndb.Open(empty)
	require.ErrorIs(t, err, datafile.ErrDecode)
}

func TestLoad(t *testing.T) {
	orig, err := dict.NewAS([]dict.ASEntry{{ASN: 13335, Name: "Cloudflare"}})
	require.NoError(t, err)
	data, err := ndb.Encode(orig)
	require.NoError(t, err)

	db, err := ndb.Load(data)
	require.NoError(t, err)
	as, ok := db.(*dict.AS)
	require.True(t, ok)
	name, _ := as.Name(13335)
	require.Equal(t, "Cloudflare", name)
}

func TestHolder(t *testing.T) {
	next := uint32(1)
	fail := false
	h := ndb.NewHolder(func(ctx context.Context) (*ipdb.IPv4ASN, error) {
		if fail {
			return nil, errors.New("boom")
		}
		db := newASNTable(t, next)
		next++
		return db, nil
	})

	_, err := h.Get()
	require.ErrorIs(t, err, ndb.ErrNotLoaded)

	require.NoError(t, h.Reload(context.Background()))
	db, err := h.Get()
	require.NoError(t, err)
	asn, _ := db.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, uint32(1), asn)

	fail = true
	require.Error(t, h.Reload(context.Background()))
	db, err = h.Get()
	require.NoError(t, err)
	asn, _ = db.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, uint32(1), asn, "failed reload replaced the current version")

	fail = false
	require.NoError(t, h.Reload(context.Background()))
	db, _ = h.Get()
	asn, _ = db.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, uint32(2), asn)

	h.Store(newASNTable(t, 99))
	db, _ = h.Get()
	asn, _ = db.Lookup(netip.MustParseAddr("10.0.0.1"))
	require.Equal(t, uint32(99), asn)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, h.Reload(ctx), context.Canceled)

	require.NoError(t, h.Close())
}

func TestFileHolder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "as.bin")
	h := ndb.NewFileHolder[*dict.AS](path)
	require.Error(t, h.Reload(context.Background()))

	write := func(name string) {
		db, err := dict.NewAS([]dict.ASEntry{{ASN: 1, Name: name}})
		require.NoError(t, err)
		require.NoError(t, ndb.WriteFile(path, db))
	}

	write("first")
	require.NoError(t, h.Reload(context.Background()))
	db, err := h.Get()
	require.NoError(t, err)
	name, _ := db.Name(1)
	require.Equal(t, "first", name)

	require.NoError(t, h.Watch(path))
	write("second")
	require.Eventually(t, func() bool {
		db, err := h.Get()
		if err != nil {
			return false
		}
		name, _ := db.Name(1)
		return name == "second"
	}, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
}

func TestMustOnce(t *testing.T) {
	calls := 0
	get := ndb.MustOnce(func() (*dict.AS, error) {
		calls++
		return dict.NewAS([]dict.ASEntry{{ASN: 1, Name: "one"}})
	})
	require.Same(t, get(), get())
	require.Equal(t, 1, calls)

	bad := ndb.MustOnce(func() (*dict.AS, error) {
		return nil, errors.New("no data")
	})
	require.Panics(t, func() { bad() })
}
