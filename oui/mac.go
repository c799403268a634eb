// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package oui

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	macBits = 48
	maxKey  = 1<<macBits - 1
)

// ErrInvalidMAC is returned for strings that aren't a 6-octet MAC address.
var ErrInvalidMAC = errors.New("invalid MAC address")

// ParseMAC parses a 6-octet MAC address in any of the forms net.ParseMAC
// accepts, or as 12 bare hex digits.
func ParseMAC(s string) (net.HardwareAddr, error) {
	s = strings.TrimSpace(s)
	if len(s) == 12 && isHex(s) {
		s = s[0:4] + "." + s[4:8] + "." + s[8:12]
	}
	mac, err := net.ParseMAC(s)
	if err != nil || len(mac) != 6 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMAC, s)
	}
	return mac, nil
}

// Key returns the 48-bit integer form of a 6-octet MAC address.
func Key(mac net.HardwareAddr) (uint64, bool) {
	if len(mac) != 6 {
		return 0, false
	}
	var k uint64
	for _, b := range mac {
		k = k<<8 | uint64(b)
	}
	return k, true
}

// exactKey formats the organizationally unique identifier of key as
// "AC:4A:56".
func exactKey(key uint64) string {
	return fmt.Sprintf("%02X:%02X:%02X", byte(key>>40), byte(key>>32), byte(key>>24))
}

// parseOctets parses whole hex octets written either bare ("FCD2B6") or
// joined by a single ':' or '-' separator used throughout ("fc-d2-b6").
func parseOctets(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty")
	}
	var parts []string
	if i := strings.IndexAny(s, ":-"); i >= 0 {
		parts = strings.Split(s, s[i:i+1])
	} else {
		if len(s)%2 != 0 {
			return nil, errors.New("odd number of hex digits")
		}
		for i := 0; i < len(s); i += 2 {
			parts = append(parts, s[i:i+2])
		}
	}
	octets := make([]byte, 0, len(parts))
	for _, part := range parts {
		if len(part) != 2 || !isHex(part) {
			return nil, fmt.Errorf("bad octet %q", part)
		}
		v, _ := strconv.ParseUint(part, 16, 8)
		octets = append(octets, byte(v))
	}
	return octets, nil
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}

// parseExact canonicalizes a 3-octet prefix such as "ac-4a-56".
func parseExact(prefix string) (string, error) {
	octets, err := parseOctets(prefix)
	if err != nil || len(octets) != 3 {
		return "", errors.New("exact prefix must be 3 hex octets")
	}
	return fmt.Sprintf("%02X:%02X:%02X", octets[0], octets[1], octets[2]), nil
}

// parseCIDR parses "FC:D2:B6:00:00:00/28" into the inclusive range of
// 48-bit keys it covers.  The base may be shorter than 6 octets; missing
// trailing octets are zero.
func parseCIDR(prefix string) (start, end uint64, err error) {
	base, bitsStr, ok := strings.Cut(prefix, "/")
	if !ok {
		return 0, 0, errors.New("missing prefix length")
	}
	octets, err := parseOctets(base)
	if err != nil || len(octets) > macBits/8 {
		return 0, 0, fmt.Errorf("invalid prefix base %q", base)
	}
	bits, err := strconv.Atoi(strings.TrimSpace(bitsStr))
	if err != nil || bits < 0 || bits > macBits {
		return 0, 0, fmt.Errorf("invalid prefix length %q", bitsStr)
	}

	var v uint64
	for i := range macBits / 8 {
		v <<= 8
		if i < len(octets) {
			v |= uint64(octets[i])
		}
	}

	hostMask := uint64(1)<<(macBits-bits) - 1
	start = v &^ hostMask
	end = start | hostMask
	return start, end, nil
}
