// Copyright 2023 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package datafile contains the persisted form of a lookup database: the
// ordered list of entries it was built from, so that loading replays the
// same construction path as reading tabular input.  The built index
// structure itself is never stored.
//
// A datafile looks like:
//
//	┌───────────────────┐
//	│ file header       │
//	├───────────────────┤
//	│ repeated KV pairs │
//	│                   │
//	│                   │
//	│                   │
//	└───────────────────┘
//
// The 64-byte file header is:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| magic             | format version    |
//	+----+----+----+----+----+----+----+----+
//	| kind tag (NUL-padded ASCII)           |
//	+                                       +
//	|                                       |
//	+----+----+----+----+----+----+----+----+
//	| record count                          |
//	+----+----+----+----+----+----+----+----+
//	| payload length                        |
//	+----+----+----+----+----+----+----+----+
//	| payload xxhash64                      |
//	+----+----+----+----+----+----+----+----+
//	| reserved                              |
//	+                                       +
//	|                                       |
//	+----+----+----+----+----+----+----+----+
//
// All integers in the header are little-endian.  The kind tag names the
// database the records belong to (e.g. "ipv4-asn"), so a blob can't be
// loaded as the wrong kind.
//
// Individual KV pairs start with a fixed 7-byte header and are variable
// length, and look like:
//
//	 0    1    2    3    4    5    6    7
//	+----+----+----+----+----+----+----+----+
//	| checksum          |klen| vlen    |key.|
//	+----+----+----+----+----+----+----+----+
//	| key...       | value...               |
//	+----+----+----+----+----+----+----+----+
//	| value...                              |
//	+----+----+----+----+----+----+----+----+
//
// This gives us a 255-byte max length for keys, and a 65-KB max length for
// values.  The checksum is calculated from the bytes of the key followed by
// the value.  Together with the payload digest it means corruption is
// detected (with high probability) rather than answered from.
package datafile
