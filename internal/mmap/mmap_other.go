// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !unix

package mmap

import (
	"os"
)

// Open reads the named file into memory; there is no mmap on this
// platform.
func Open(filename string) (*ReaderAt, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return &ReaderAt{data: data}, nil
}
