// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ipdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"net/netip"
	"strconv"
	"strings"

	"lukechampine.com/uint128"

	"github.com/bpowers/ndb/interval"
)

// Family converts between addresses of one IP version and the integer keys
// ranges are stored under.
type Family[K any] interface {
	Domain() interval.Domain[K]
	// FromAddr returns the key for addr, or false if addr belongs to the
	// other family.
	FromAddr(addr netip.Addr) (K, bool)
	ToAddr(key K) netip.Addr
	// ParseKey accepts either a decimal integer or a textual address.
	ParseKey(s string) (K, error)
	// FormatKey renders key as a decimal integer.
	FormatKey(key K) string
	// KeyLen is the size in bytes of an encoded key.
	KeyLen() int
	AppendKey(b []byte, key K) []byte
	DecodeKey(b []byte) K
}

var (
	IPv4 Family[uint32]          = v4{}
	IPv6 Family[uint128.Uint128] = v6{}
)

var errWrongFamily = errors.New("address of the wrong IP version")

type v4 struct{}

func (v4) Domain() interval.Domain[uint32] {
	return interval.Uint32
}

// FromAddr unmaps IPv4-mapped IPv6 addresses.
func (v4) FromAddr(addr netip.Addr) (uint32, bool) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, false
	}
	a := addr.As4()
	return binary.BigEndian.Uint32(a[:]), true
}

func (v4) ToAddr(key uint32) netip.Addr {
	var a [4]byte
	binary.BigEndian.PutUint32(a[:], key)
	return netip.AddrFrom4(a)
}

func (f v4) ParseKey(s string) (uint32, error) {
	if strings.ContainsAny(s, ".:") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return 0, err
		}
		key, ok := f.FromAddr(addr)
		if !ok {
			return 0, errWrongFamily
		}
		return key, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, numError(err)
	}
	return uint32(n), nil
}

func (v4) FormatKey(key uint32) string {
	return strconv.FormatUint(uint64(key), 10)
}

func (v4) KeyLen() int {
	return 4
}

func (v4) AppendKey(b []byte, key uint32) []byte {
	return binary.BigEndian.AppendUint32(b, key)
}

func (v4) DecodeKey(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

type v6 struct{}

func (v6) Domain() interval.Domain[uint128.Uint128] {
	return interval.Uint128
}

// FromAddr accepts any IPv6 address, including IPv4-mapped ones, and
// rejects plain IPv4 addresses.
func (v6) FromAddr(addr netip.Addr) (uint128.Uint128, bool) {
	if !addr.Is6() {
		return uint128.Zero, false
	}
	a := addr.As16()
	return uint128.FromBytesBE(a[:]), true
}

func (v6) ToAddr(key uint128.Uint128) netip.Addr {
	var a [16]byte
	key.PutBytesBE(a[:])
	return netip.AddrFrom16(a)
}

func (f v6) ParseKey(s string) (uint128.Uint128, error) {
	if strings.Contains(s, ":") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return uint128.Zero, err
		}
		key, ok := f.FromAddr(addr)
		if !ok {
			return uint128.Zero, errWrongFamily
		}
		return key, nil
	}
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return uint128.Zero, fmt.Errorf("not a decimal integer or IPv6 address")
	}
	// always base 10: big.Int's base 0 would read a leading 0 as octal
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return uint128.Zero, strconv.ErrSyntax
	}
	if n.BitLen() > 128 {
		return uint128.Zero, strconv.ErrRange
	}
	return uint128.FromBig(n), nil
}

func (v6) FormatKey(key uint128.Uint128) string {
	return key.String()
}

func (v6) KeyLen() int {
	return 16
}

func (v6) AppendKey(b []byte, key uint128.Uint128) []byte {
	var a [16]byte
	key.PutBytesBE(a[:])
	return append(b, a[:]...)
}

func (v6) DecodeKey(b []byte) uint128.Uint128 {
	return uint128.FromBytesBE(b)
}

func numError(err error) error {
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return numErr.Err
	}
	return err
}
