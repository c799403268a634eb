// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ipdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

// Value describes the payload a range maps to: how it appears in CSV and
// how it is stored in a datafile.
type Value[V any] interface {
	// Column is the CSV column the value is read from.
	Column() string
	Parse(s string) (V, error)
	Format(v V) string
	AppendValue(b []byte, v V) []byte
	DecodeValue(b []byte) (V, error)
}

var (
	// ASN values are autonomous system numbers.
	ASN Value[uint32] = asnValue{}
	// Country values are ISO 3166 country codes.
	Country Value[string] = countryValue{}
)

type asnValue struct{}

func (asnValue) Column() string {
	return "asn"
}

func (asnValue) Parse(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, numError(err)
	}
	return uint32(n), nil
}

func (asnValue) Format(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (asnValue) AppendValue(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}

func (asnValue) DecodeValue(b []byte) (uint32, error) {
	if len(b) != 4 {
		return 0, fmt.Errorf("asn value is %d bytes, want 4", len(b))
	}
	return binary.BigEndian.Uint32(b), nil
}

type countryValue struct{}

func (countryValue) Column() string {
	return "country_code"
}

func (countryValue) Parse(s string) (string, error) {
	if s == "" {
		return "", errors.New("empty country code")
	}
	return s, nil
}

func (countryValue) Format(v string) string {
	return v
}

func (countryValue) AppendValue(b []byte, v string) []byte {
	return append(b, v...)
}

func (countryValue) DecodeValue(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errors.New("empty country code")
	}
	return string(b), nil
}
