// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ipdb

import (
	"encoding/binary"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNetworkPrefix(t *testing.T) {
	for _, tc := range []struct {
		in   *net.IPNet
		want string
	}{
		{&net.IPNet{IP: net.IP{10, 0, 0, 0}, Mask: net.CIDRMask(24, 32)}, "10.0.0.0/24"},
		{&net.IPNet{IP: net.ParseIP("10.1.0.0"), Mask: net.CIDRMask(112, 128)}, "10.1.0.0/16"},
		{&net.IPNet{IP: net.ParseIP("2001:db8::"), Mask: net.CIDRMask(32, 128)}, "2001:db8::/32"},
		{&net.IPNet{IP: net.ParseIP("::"), Mask: net.CIDRMask(80, 128)}, "::/80"},
		// host bits are masked off
		{&net.IPNet{IP: net.IP{192, 168, 1, 7}, Mask: net.CIDRMask(24, 32)}, "192.168.1.0/24"},
	} {
		got, ok := networkPrefix(tc.in)
		require.True(t, ok, tc.want)
		require.Equal(t, netip.MustParsePrefix(tc.want), got)
	}

	_, ok := networkPrefix(nil)
	require.False(t, ok)
	_, ok = networkPrefix(&net.IPNet{IP: net.IP{1, 2, 3}, Mask: net.CIDRMask(8, 32)})
	require.False(t, ok)
	// 4-byte address with a 16-byte mask
	_, ok = networkPrefix(&net.IPNet{IP: net.IP{10, 0, 0, 0}, Mask: net.CIDRMask(8, 128)})
	require.False(t, ok)
}

func TestReadASNFromMMDB_Missing(t *testing.T) {
	_, _, err := ReadASNFromMMDB(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
	_, _, err = ReadCountryFromMMDB(filepath.Join(t.TempDir(), "missing.mmdb"))
	require.Error(t, err)
}

// mmdbValue is one encoded MaxMind DB data field.
type mmdbValue []byte

func mmdbString(s string) mmdbValue {
	if len(s) < 29 {
		return append(mmdbValue{2<<5 | byte(len(s))}, s...)
	}
	return append(mmdbValue{2<<5 | 29, byte(len(s) - 29)}, s...)
}

func mmdbUint32(v uint32) mmdbValue {
	b := binary.BigEndian.AppendUint32(nil, v)
	for len(b) > 0 && b[0] == 0 {
		b = b[1:]
	}
	return append(mmdbValue{6<<5 | byte(len(b))}, b...)
}

// mmdbMap encodes alternating string keys and values.
func mmdbMap(kv ...any) mmdbValue {
	m := mmdbValue{7<<5 | byte(len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		m = append(m, mmdbString(kv[i].(string))...)
		m = append(m, kv[i+1].(mmdbValue)...)
	}
	return m
}

type mmdbNode struct {
	// child is nil and data -1 for an empty record.
	child [2]*mmdbNode
	data  [2]int
}

func newMMDBNode() *mmdbNode {
	return &mmdbNode{data: [2]int{-1, -1}}
}

// writeMMDB writes an IPv6 MaxMind DB with 24-bit records mapping each
// network to its value.  IPv4 networks live in the ::/96 subtree.
func writeMMDB(t *testing.T, dbType string, networks map[string]mmdbValue) string {
	t.Helper()

	root := newMMDBNode()
	var data []byte
	for cidr, value := range networks {
		p := netip.MustParsePrefix(cidr)
		var ip [16]byte
		bits := p.Bits()
		if p.Addr().Is4() {
			a4 := p.Addr().As4()
			copy(ip[12:], a4[:])
			bits += 96
		} else {
			ip = p.Addr().As16()
		}
		require.Positive(t, bits, cidr)

		n := root
		for i := range bits {
			b := ip[i/8] >> (7 - i%8) & 1
			if i == bits-1 {
				n.data[b] = len(data)
				break
			}
			if n.child[b] == nil {
				n.child[b] = newMMDBNode()
			}
			n = n.child[b]
		}
		data = append(data, value...)
	}

	var nodes []*mmdbNode
	ids := make(map[*mmdbNode]int)
	for queue := []*mmdbNode{root}; len(queue) > 0; queue = queue[1:] {
		n := queue[0]
		ids[n] = len(nodes)
		nodes = append(nodes, n)
		for _, c := range n.child {
			if c != nil {
				queue = append(queue, c)
			}
		}
	}

	nodeCount := len(nodes)
	var buf []byte
	for _, n := range nodes {
		for side := range 2 {
			rec := nodeCount
			switch {
			case n.child[side] != nil:
				rec = ids[n.child[side]]
			case n.data[side] >= 0:
				rec = nodeCount + 16 + n.data[side]
			}
			buf = append(buf, byte(rec>>16), byte(rec>>8), byte(rec))
		}
	}
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, data...)
	buf = append(buf, "\xAB\xCD\xEFMaxMind.com"...)
	buf = append(buf, mmdbMap(
		"node_count", mmdbUint32(uint32(nodeCount)),
		"record_size", mmdbUint32(24),
		"ip_version", mmdbUint32(6),
		"database_type", mmdbString(dbType),
		"binary_format_major_version", mmdbUint32(2),
		"binary_format_minor_version", mmdbUint32(0),
		"build_epoch", mmdbUint32(1700000000),
	)...)

	path := filepath.Join(t.TempDir(), dbType+".mmdb")
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func TestReadASNFromMMDB(t *testing.T) {
	path := writeMMDB(t, "GeoLite2-ASN", map[string]mmdbValue{
		"10.0.0.0/8":      mmdbMap("autonomous_system_number", mmdbUint32(64501), "autonomous_system_organization", mmdbString("Ten")),
		"192.0.2.0/24":    mmdbMap("autonomous_system_number", mmdbUint32(64502)),
		"198.51.100.0/24": mmdbMap("autonomous_system_organization", mmdbString("no number")),
		"2001:db8::/32":   mmdbMap("autonomous_system_number", mmdbUint32(64500)),
		"2001:db9::/48":   mmdbMap("autonomous_system_number", mmdbUint32(4200000000)),
	})

	v4, v6, err := ReadASNFromMMDB(path)
	require.NoError(t, err)
	require.Equal(t, KindIPv4ASN, v4.Kind())
	require.Equal(t, KindIPv6ASN, v6.Kind())
	require.Equal(t, 2, v4.Len())
	require.Equal(t, 2, v6.Len())

	for addr, want := range map[string]uint32{
		"10.0.0.0":        64501,
		"10.255.255.255":  64501,
		"192.0.2.77":      64502,
		"2001:db8::1":     64500,
		"2001:db8:ffff::": 64500,
		"2001:db9:0:1::":  4200000000,
	} {
		a := netip.MustParseAddr(addr)
		var got uint32
		var ok bool
		if a.Is4() {
			got, ok = v4.Lookup(a)
		} else {
			got, ok = v6.Lookup(a)
		}
		require.True(t, ok, addr)
		require.Equal(t, want, got, addr)
	}

	for _, addr := range []string{"11.0.0.0", "198.51.100.1", "192.0.3.0"} {
		_, ok := v4.Lookup(netip.MustParseAddr(addr))
		require.False(t, ok, addr)
	}
	for _, addr := range []string{"2001:db9:1::", "::a00:1", "2001:db7::"} {
		_, ok := v6.Lookup(netip.MustParseAddr(addr))
		require.False(t, ok, addr)
	}

	e, ok := v4.Find(netip.MustParseAddr("10.1.2.3"))
	require.True(t, ok)
	require.Equal(t, []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}, v4.Prefixes(e))
	e6, ok := v6.Find(netip.MustParseAddr("2001:db8::"))
	require.True(t, ok)
	require.Equal(t, []netip.Prefix{netip.MustParsePrefix("2001:db8::/32")}, v6.Prefixes(e6))
}

func TestReadCountryFromMMDB(t *testing.T) {
	country := func(code string) mmdbValue {
		return mmdbMap("iso_code", mmdbString(code), "geoname_id", mmdbUint32(1))
	}
	path := writeMMDB(t, "GeoLite2-Country", map[string]mmdbValue{
		"10.0.0.0/8":      mmdbMap("country", country("DE"), "registered_country", country("FR")),
		"192.0.2.0/24":    mmdbMap("registered_country", country("US")),
		"198.51.100.0/24": mmdbMap("continent", mmdbMap("code", mmdbString("EU"))),
		"2001:db8::/32":   mmdbMap("country", country("NL")),
		"2001:db9::/32":   mmdbMap("registered_country", country("JP")),
	})

	v4, v6, err := ReadCountryFromMMDB(path)
	require.NoError(t, err)
	require.Equal(t, KindIPv4Country, v4.Kind())
	require.Equal(t, KindIPv6Country, v6.Kind())
	require.Equal(t, 2, v4.Len())
	require.Equal(t, 2, v6.Len())

	for addr, want := range map[string]string{
		"10.20.30.40":   "DE",
		"192.0.2.1":     "US",
		"2001:db8::1":   "NL",
		"2001:db9:a::1": "JP",
	} {
		a := netip.MustParseAddr(addr)
		var got string
		var ok bool
		if a.Is4() {
			got, ok = v4.Lookup(a)
		} else {
			got, ok = v6.Lookup(a)
		}
		require.True(t, ok, addr)
		require.Equal(t, want, got, addr)
	}

	_, ok := v4.Lookup(netip.MustParseAddr("198.51.100.7"))
	require.False(t, ok)

	var prefixes []string
	for p, code := range v4.PrefixRecords() {
		prefixes = append(prefixes, p.String()+"="+code)
	}
	require.Equal(t, []string{"10.0.0.0/8=DE", "192.0.2.0/24=US"}, prefixes)
}

func TestReadMMDB_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mmdb")
	require.NoError(t, os.WriteFile(path, []byte("not a maxmind database"), 0644))
	_, _, err := ReadASNFromMMDB(path)
	require.Error(t, err)
}
