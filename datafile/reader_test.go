// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
)

func sampleFile(t *testing.T) []byte {
	t.Helper()
	data, err := Encode("ipv4-asn", func(w *Writer) error {
		for _, kv := range [][2]string{
			{"\x0a\x00\x00\x00\x0a\x00\x00\xff", "\x00\x00\xfb\xf4"},
			{"\x0b\x00\x00\x00\x0b\x00\x00\xff", "\x00\x00\xfb\xf5"},
		} {
			if err := w.Write([]byte(kv[0]), []byte(kv[1])); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return data
}

func decodeAll(data []byte, kind string) (int, error) {
	n := 0
	err := Decode(data, kind, func(key, value []byte) error {
		n++
		return nil
	})
	return n, err
}

// rehash recomputes the payload digest so that record-level checks are
// the ones exercised.
func rehash(data []byte) {
	binary.LittleEndian.PutUint64(data[headerDigestOff:], xxhash.Sum64(data[fileHeaderSize:]))
}

func TestDecode_Valid(t *testing.T) {
	n, err := decodeAll(sampleFile(t), "ipv4-asn")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestDecode_Corruption(t *testing.T) {
	for _, tc := range []struct {
		name    string
		kind    string
		corrupt func([]byte) []byte
	}{
		{"empty", "ipv4-asn", func(b []byte) []byte { return nil }},
		{"header only", "ipv4-asn", func(b []byte) []byte { return b[:fileHeaderSize-1] }},
		{"bad magic", "ipv4-asn", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"bad version", "ipv4-asn", func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:8], fileFormatVersion+1)
			return b
		}},
		{"wrong kind", "ipv6-asn", func(b []byte) []byte { return b }},
		{"truncated", "ipv4-asn", func(b []byte) []byte { return b[:len(b)-1] }},
		{"trailing bytes", "ipv4-asn", func(b []byte) []byte { return append(b, 0) }},
		{"flipped payload byte", "ipv4-asn", func(b []byte) []byte { b[len(b)-1] ^= 0x01; return b }},
		{"flipped value byte, digest fixed", "ipv4-asn", func(b []byte) []byte {
			b[len(b)-1] ^= 0x01
			rehash(b)
			return b
		}},
		{"record length overrun, digest fixed", "ipv4-asn", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[fileHeaderSize+headerValueLenOff:], 0xffff)
			rehash(b)
			return b
		}},
		{"zero key length, digest fixed", "ipv4-asn", func(b []byte) []byte {
			b[fileHeaderSize+headerKeyLenOff] = 0
			rehash(b)
			return b
		}},
		{"record count mismatch", "ipv4-asn", func(b []byte) []byte {
			binary.LittleEndian.PutUint64(b[headerCountOff:], 3)
			return b
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.corrupt(sampleFile(t))
			_, err := decodeAll(data, tc.kind)
			require.Error(t, err)
			require.ErrorIs(t, err, ErrDecode)
			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
		})
	}
}

func TestReader_ReadAtBounds(t *testing.T) {
	r, err := NewReader(sampleFile(t))
	require.NoError(t, err)

	_, _, err = r.ReadAt(0)
	require.ErrorIs(t, err, ErrDecode)
	_, _, err = r.ReadAt(1 << 20)
	require.ErrorIs(t, err, ErrDecode)

	key, value, err := r.ReadAt(fileHeaderSize)
	require.NoError(t, err)
	require.Equal(t, []byte("\x0a\x00\x00\x00\x0a\x00\x00\xff"), key)
	require.Equal(t, []byte("\x00\x00\xfb\xf4"), value)
}
