// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package dict

import (
	"errors"
	"io"
	"strings"

	"github.com/bpowers/ndb/tabular"
)

// KindCountry is the kind name of the country table.
const KindCountry = "country"

// CountryEntry names a country by its ISO 3166 code.
type CountryEntry struct {
	Code string
	Name string
}

// Country maps country codes to names.  Codes match case-insensitively.
type Country struct {
	Table[string, CountryEntry]
}

var countryCodec = &codec[string, CountryEntry]{
	kind:     KindCountry,
	header:   []string{"code", "name"},
	required: []string{"code", "name"},
	key:      func(e CountryEntry) string { return strings.ToUpper(e.Code) },
	parseKey: func(s string) (string, error) {
		if s = strings.TrimSpace(s); s == "" {
			return "", errors.New("empty country code")
		}
		return strings.ToUpper(s), nil
	},
	fromRow: func(row tabular.Row) (CountryEntry, error) {
		code, err := row.NotEmpty("code")
		if err != nil {
			return CountryEntry{}, err
		}
		return CountryEntry{Code: code, Name: row.Get("name")}, nil
	},
	record: func(e CountryEntry) []string {
		return []string{e.Code, e.Name}
	},
	encode: func(key, value []byte, e CountryEntry) ([]byte, []byte) {
		return append(key, e.Code...), append(value, e.Name...)
	},
	decode: func(key, value []byte) (CountryEntry, error) {
		return CountryEntry{Code: string(key), Name: string(value)}, nil
	},
	check: func(e CountryEntry) error {
		if strings.TrimSpace(e.Code) == "" {
			return errors.New("empty country code")
		}
		return nil
	},
}

func wrapCountry(t Table[string, CountryEntry]) *Country {
	return &Country{t}
}

// NewCountry builds a country table from entries.
func NewCountry(entries []CountryEntry, opts ...Option) (*Country, error) {
	t, err := countryCodec.fromEntries(entries, opts)
	if err != nil {
		return nil, err
	}
	return wrapCountry(t), nil
}

// ReadCountryCSV builds a country table from CSV with the columns code
// and name.
func ReadCountryCSV(r io.Reader, opts ...Option) (*Country, error) {
	t, err := countryCodec.readCSV(r, opts)
	if err != nil {
		return nil, err
	}
	return wrapCountry(t), nil
}

// LoadCountry decodes a country table written by EncodeTo.
func LoadCountry(data []byte, opts ...Option) (*Country, error) {
	t, err := countryCodec.load(data, opts)
	if err != nil {
		return nil, err
	}
	return wrapCountry(t), nil
}

// Name returns the name of the country with the given code.
func (db *Country) Name(code string) (string, bool) {
	e, ok := db.Get(strings.ToUpper(code))
	return e.Name, ok
}

func init() {
	register(countryCodec, wrapCountry)
}
