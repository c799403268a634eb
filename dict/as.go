// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dict

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bpowers/ndb/tabular"
)

// KindAS is the kind name of the AS table.
const KindAS = "as"

// ASEntry names an autonomous system.
type ASEntry struct {
	ASN  uint32
	Name string
}

// AS maps autonomous system numbers to names.
type AS struct {
	Table[uint32, ASEntry]
}

var asCodec = &codec[uint32, ASEntry]{
	kind:     KindAS,
	header:   []string{"asn", "name"},
	required: []string{"asn", "name"},
	key:      func(e ASEntry) uint32 { return e.ASN },
	parseKey: parseASN,
	fromRow: func(row tabular.Row) (ASEntry, error) {
		asn, err := row.Uint("asn", 32)
		if err != nil {
			return ASEntry{}, err
		}
		return ASEntry{ASN: uint32(asn), Name: row.Get("name")}, nil
	},
	record: func(e ASEntry) []string {
		return []string{strconv.FormatUint(uint64(e.ASN), 10), e.Name}
	},
	encode: func(key, value []byte, e ASEntry) ([]byte, []byte) {
		return binary.BigEndian.AppendUint32(key, e.ASN), append(value, e.Name...)
	},
	decode: func(key, value []byte) (ASEntry, error) {
		if len(key) != 4 {
			return ASEntry{}, fmt.Errorf("asn key is %d bytes, want 4", len(key))
		}
		return ASEntry{ASN: binary.BigEndian.Uint32(key), Name: string(value)}, nil
	},
}

// parseASN accepts "64500" as well as "AS64500".
func parseASN(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if len(s) > 2 && strings.EqualFold(s[:2], "as") {
		s = s[2:]
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}

func wrapAS(t Table[uint32, ASEntry]) *AS {
	return &AS{t}
}

// NewAS builds an AS table from entries.
func NewAS(entries []ASEntry, opts ...Option) (*AS, error) {
	t, err := asCodec.fromEntries(entries, opts)
	if err != nil {
		return nil, err
	}
	return wrapAS(t), nil
}

// ReadASCSV builds an AS table from CSV with the columns asn and name.
func ReadASCSV(r io.Reader, opts ...Option) (*AS, error) {
	t, err := asCodec.readCSV(r, opts)
	if err != nil {
		return nil, err
	}
	return wrapAS(t), nil
}

// LoadAS decodes an AS table written by EncodeTo.
func LoadAS(data []byte, opts ...Option) (*AS, error) {
	t, err := asCodec.load(data, opts)
	if err != nil {
		return nil, err
	}
	return wrapAS(t), nil
}

// Name returns the name of an autonomous system.
func (db *AS) Name(asn uint32) (string, bool) {
	e, ok := db.Get(asn)
	return e.Name, ok
}

func init() {
	register(asCodec, wrapAS)
}
