// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// gen-testdata writes a random ipv4-asn.csv with disjoint ranges to
// stdout, for benchmarking builds and lookups.
package main

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/bpowers/ndb/ipdb"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

const (
	nRanges  = 1000000
	maxGap   = 2048
	maxWidth = 2048
)

func newRand() *rand.Rand {
	var seedBytes [8]byte
	_, _ = crand.Read(seedBytes[:])
	seed := int64(binary.LittleEndian.Uint64(seedBytes[:]))
	return rand.New(rand.NewSource(seed))
}

func main() {
	rng := newRand()

	k, err := registry.Lookup(ipdb.KindIPv4ASN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	rows := func(yield func([]string) bool) {
		var next uint64
		for i := 0; i < nRanges; i++ {
			from := next + uint64(rng.Intn(maxGap))
			to := from + uint64(rng.Intn(maxWidth))
			if to > 0xffffffff {
				return
			}
			next = to + 1
			asn := 1 + rng.Intn(400000)
			if !yield([]string{strconv.FormatUint(from, 10), strconv.FormatUint(to, 10), strconv.Itoa(asn)}) {
				return
			}
		}
	}

	if err := tabular.Write(os.Stdout, k.Columns, rows); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
