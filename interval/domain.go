// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package interval

import (
	"cmp"

	"lukechampine.com/uint128"
)

// Domain describes a discrete, totally ordered key space.
//
// Succ is only called on keys that are not the domain maximum, and Pred
// only on keys that are not the domain minimum.
type Domain[K any] interface {
	Compare(a, b K) int
	Succ(k K) K
	Pred(k K) K
	Min() K
	Max() K
}

// Unsigned is the set of built-in unsigned integer key types.
type Unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Integer is the Domain of a built-in unsigned integer type.
type Integer[K Unsigned] struct{}

func (Integer[K]) Compare(a, b K) int { return cmp.Compare(a, b) }
func (Integer[K]) Succ(k K) K         { return k + 1 }
func (Integer[K]) Pred(k K) K         { return k - 1 }
func (Integer[K]) Min() K             { return 0 }
func (Integer[K]) Max() K             { return ^K(0) }

// U128 is the Domain of 128-bit keys, used for IPv6 addresses.
type U128 struct{}

func (U128) Compare(a, b uint128.Uint128) int       { return a.Cmp(b) }
func (U128) Succ(k uint128.Uint128) uint128.Uint128 { return k.Add64(1) }
func (U128) Pred(k uint128.Uint128) uint128.Uint128 { return k.Sub64(1) }
func (U128) Min() uint128.Uint128                   { return uint128.Zero }
func (U128) Max() uint128.Uint128                   { return uint128.Max }

// Ready-made domains for the key widths the databases use.
var (
	// Uint32 orders IPv4 addresses and AS numbers.
	Uint32 Domain[uint32] = Integer[uint32]{}
	// Uint64 orders 48-bit MAC keys.
	Uint64 Domain[uint64] = Integer[uint64]{}
	// Uint128 orders IPv6 addresses.
	Uint128 Domain[uint128.Uint128] = U128{}
)
