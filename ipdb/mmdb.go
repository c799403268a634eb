// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ipdb

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/oschwald/maxminddb-golang"
	"go4.org/netipx"
	"lukechampine.com/uint128"
)

type asnRecord struct {
	AutonomousSystemNumber uint32 `maxminddb:"autonomous_system_number"`
}

type countryRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
	RegisteredCountry struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"registered_country"`
}

// ReadASNFromMMDB builds IPv4 and IPv6 ASN tables from a MaxMind ASN
// database, e.g. GeoLite2-ASN.mmdb.  Networks without an AS number are
// skipped.
func ReadASNFromMMDB(path string) (*IPv4ASN, *IPv6ASN, error) {
	return readMMDB(path, ipv4ASN, ipv6ASN, func(rec *asnRecord) (uint32, bool) {
		return rec.AutonomousSystemNumber, rec.AutonomousSystemNumber != 0
	})
}

// ReadCountryFromMMDB builds IPv4 and IPv6 country tables from a MaxMind
// country or city database.  The registered country is used for networks
// without a location.
func ReadCountryFromMMDB(path string) (*IPv4Country, *IPv6Country, error) {
	return readMMDB(path, ipv4Country, ipv6Country, func(rec *countryRecord) (string, bool) {
		code := rec.Country.ISOCode
		if code == "" {
			code = rec.RegisteredCountry.ISOCode
		}
		return code, code != ""
	})
}

func readMMDB[R, V any](
	path string,
	v4s schema[uint32, V],
	v6s schema[uint128.Uint128, V],
	value func(rec *R) (V, bool),
) (*Table[uint32, V], *Table[uint128.Uint128, V], error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("maxminddb.Open(%s): %w", path, err)
	}
	defer func() { _ = db.Close() }()

	b4 := v4s.builder(nil)
	b6 := v6s.builder(nil)

	networks := db.Networks(maxminddb.SkipAliasedNetworks)
	for networks.Next() {
		var rec R
		ipNet, err := networks.Network(&rec)
		if err != nil {
			return nil, nil, fmt.Errorf("networks.Network: %w", err)
		}
		v, ok := value(&rec)
		if !ok {
			continue
		}
		prefix, ok := networkPrefix(ipNet)
		if !ok {
			return nil, nil, fmt.Errorf("%s: invalid network %v", path, ipNet)
		}

		r := netipx.RangeOfPrefix(prefix)
		if prefix.Addr().Is4() {
			from, _ := IPv4.FromAddr(r.From())
			to, _ := IPv4.FromAddr(r.To())
			err = b4.insert(Entry[uint32, V]{From: from, To: to, Value: v})
		} else {
			from, _ := IPv6.FromAddr(r.From())
			to, _ := IPv6.FromAddr(r.To())
			err = b6.insert(Entry[uint128.Uint128, V]{From: from, To: to, Value: v})
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: network %s: %w", path, prefix, err)
		}
	}
	if err := networks.Err(); err != nil {
		return nil, nil, fmt.Errorf("networks.Next: %w", err)
	}

	return b4.finalize(), b6.finalize(), nil
}

// networkPrefix converts a network from a MaxMind database.  Networks in
// the IPv4 subtree of an IPv6 database may still come back as 16-byte
// IPv4-mapped addresses; those are reported as IPv4 prefixes.
func networkPrefix(n *net.IPNet) (netip.Prefix, bool) {
	if n == nil {
		return netip.Prefix{}, false
	}
	addr, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return netip.Prefix{}, false
	}
	ones, bits := n.Mask.Size()
	if bits == 0 || bits != addr.BitLen() {
		return netip.Prefix{}, false
	}
	if addr.Is4In6() && ones >= 96 {
		addr = addr.Unmap()
		ones -= 96
	}
	return netip.PrefixFrom(addr, ones).Masked(), true
}
