// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ipdb

import (
	"io"

	"lukechampine.com/uint128"

	"github.com/bpowers/ndb/registry"
)

// Kind names of the four ip range databases.
const (
	KindIPv4ASN     = "ipv4-asn"
	KindIPv4Country = "ipv4-country"
	KindIPv6ASN     = "ipv6-asn"
	KindIPv6Country = "ipv6-country"
)

// Concrete tables and their entry types.
type (
	IPv4ASN     = Table[uint32, uint32]
	IPv4Country = Table[uint32, string]
	IPv6ASN     = Table[uint128.Uint128, uint32]
	IPv6Country = Table[uint128.Uint128, string]

	IPv4ASNEntry     = Entry[uint32, uint32]
	IPv4CountryEntry = Entry[uint32, string]
	IPv6ASNEntry     = Entry[uint128.Uint128, uint32]
	IPv6CountryEntry = Entry[uint128.Uint128, string]
)

var (
	ipv4ASN     = schema[uint32, uint32]{kind: KindIPv4ASN, family: IPv4, value: ASN}
	ipv4Country = schema[uint32, string]{kind: KindIPv4Country, family: IPv4, value: Country}
	ipv6ASN     = schema[uint128.Uint128, uint32]{kind: KindIPv6ASN, family: IPv6, value: ASN}
	ipv6Country = schema[uint128.Uint128, string]{kind: KindIPv6Country, family: IPv6, value: Country}
)

// NewIPv4ASN builds an IPv4 ASN table from entries, added in order.
func NewIPv4ASN(entries []IPv4ASNEntry, opts ...Option) (*IPv4ASN, error) {
	return ipv4ASN.fromEntries(entries, opts...)
}

// ReadIPv4ASNCSV builds an IPv4 ASN table from CSV with the columns ip_from, ip_to
// and asn.
func ReadIPv4ASNCSV(r io.Reader, opts ...Option) (*IPv4ASN, error) {
	return ipv4ASN.readCSV(r, opts...)
}

// LoadIPv4ASN decodes an IPv4 ASN table written by EncodeTo.
func LoadIPv4ASN(data []byte, opts ...Option) (*IPv4ASN, error) {
	return ipv4ASN.load(data, opts...)
}

// NewIPv4Country builds an IPv4 country table from entries, added in order.
func NewIPv4Country(entries []IPv4CountryEntry, opts ...Option) (*IPv4Country, error) {
	return ipv4Country.fromEntries(entries, opts...)
}

// ReadIPv4CountryCSV builds an IPv4 country table from CSV with the columns ip_from, ip_to
// and country_code.
func ReadIPv4CountryCSV(r io.Reader, opts ...Option) (*IPv4Country, error) {
	return ipv4Country.readCSV(r, opts...)
}

// LoadIPv4Country decodes an IPv4 country table written by EncodeTo.
func LoadIPv4Country(data []byte, opts ...Option) (*IPv4Country, error) {
	return ipv4Country.load(data, opts...)
}

// NewIPv6ASN builds an IPv6 ASN table from entries, added in order.
func NewIPv6ASN(entries []IPv6ASNEntry, opts ...Option) (*IPv6ASN, error) {
	return ipv6ASN.fromEntries(entries, opts...)
}

// ReadIPv6ASNCSV builds an IPv6 ASN table from CSV with the columns ip_from, ip_to
// and asn.
func ReadIPv6ASNCSV(r io.Reader, opts ...Option) (*IPv6ASN, error) {
	return ipv6ASN.readCSV(r, opts...)
}

// LoadIPv6ASN decodes an IPv6 ASN table written by EncodeTo.
func LoadIPv6ASN(data []byte, opts ...Option) (*IPv6ASN, error) {
	return ipv6ASN.load(data, opts...)
}

// NewIPv6Country builds an IPv6 country table from entries, added in order.
func NewIPv6Country(entries []IPv6CountryEntry, opts ...Option) (*IPv6Country, error) {
	return ipv6Country.fromEntries(entries, opts...)
}

// ReadIPv6CountryCSV builds an IPv6 country table from CSV with the columns ip_from, ip_to
// and country_code.
func ReadIPv6CountryCSV(r io.Reader, opts ...Option) (*IPv6Country, error) {
	return ipv6Country.readCSV(r, opts...)
}

// LoadIPv6Country decodes an IPv6 country table written by EncodeTo.
func LoadIPv6Country(data []byte, opts ...Option) (*IPv6Country, error) {
	return ipv6Country.load(data, opts...)
}

func init() {
	register(ipv4ASN)
	register(ipv4Country)
	register(ipv6ASN)
	register(ipv6Country)
}

func register[K, V any](s schema[K, V]) {
	registry.Register(&registry.Kind{
		Name:    s.kind,
		CSVName: s.kind + ".csv",
		BinName: s.kind + ".bin",
		Columns: []string{"ip_from", "ip_to", s.value.Column()},
		FromCSV: func(r io.Reader, opts registry.BuildOptions) (registry.Database, error) {
			var tableOpts []Option
			if opts.Strict {
				tableOpts = append(tableOpts, WithStrict())
			}
			t, err := s.readCSV(r, tableOpts...)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
		Load: func(data []byte) (registry.Database, error) {
			t, err := s.load(data)
			if err != nil {
				return nil, err
			}
			return t, nil
		},
	})
}
