// Copyright 2023 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ErrDecode is wrapped by every error describing a malformed datafile.
var ErrDecode = errors.New("datafile: decode error")

// DecodeError reports corruption, truncation or a format mismatch.
type DecodeError struct {
	// Offset is the byte offset into the datafile the problem was found at.
	Offset int64
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "datafile: offset %d: %s", e.Offset, e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecode}
	}
	return []error{ErrDecode, e.Err}
}

// Reader reads records from a datafile held in memory.  data may be heap
// allocated, embedded in the binary, or mmap'd; it must not change while
// the Reader is in use.
type Reader struct {
	h    fileHeader
	data []byte
}

// NewReader validates the header and payload digest of data.
func NewReader(data []byte) (*Reader, error) {
	var header fileHeader
	if err := header.UnmarshalBytes(data); err != nil {
		return nil, err
	}

	payload := data[fileHeaderSize:]
	if uint64(len(payload)) != header.payloadLen {
		return nil, &DecodeError{
			Offset: fileHeaderSize,
			Reason: fmt.Sprintf("payload length %d doesn't match header (%d): truncated or corrupted", len(payload), header.payloadLen),
		}
	}
	if digest := xxhash.Sum64(payload); digest != header.digest {
		return nil, &DecodeError{
			Offset: fileHeaderSize,
			Reason: fmt.Sprintf("payload digest failed (%x != %x): data file corrupted", digest, header.digest),
		}
	}

	return &Reader{h: header, data: data}, nil
}

// Kind returns the kind tag stored in the header.
func (r *Reader) Kind() string {
	return r.h.kind
}

// CheckKind returns a *DecodeError unless the datafile holds kind.
func (r *Reader) CheckKind(kind string) error {
	if r.h.kind != kind {
		return &DecodeError{Offset: headerKindOff, Reason: fmt.Sprintf("datafile holds %q, not %q", r.h.kind, kind)}
	}
	return nil
}

// Len returns the number of records according to the header.
func (r *Reader) Len() int64 {
	return int64(r.h.recordCount)
}

// ReadAt returns the key and value of the record starting at off.  key and
// value alias the datafile's memory and MUST NOT be written to.
func (r *Reader) ReadAt(off int64) (key, value []byte, err error) {
	m := r.data
	mLen := int64(len(m))
	if off < fileHeaderSize || off+recordHeaderSize > mLen {
		return nil, nil, &DecodeError{Offset: off, Reason: fmt.Sprintf("record header beyond bounds (%d)", mLen)}
	}
	header := m[off : off+recordHeaderSize]
	// bounds check elimination
	_ = header[recordHeaderSize-1]
	expectedChecksum := binary.LittleEndian.Uint32(header[:4])
	keyLen := int64(header[headerKeyLenOff])
	valueLen := int64(binary.LittleEndian.Uint16(header[headerValueLenOff : headerValueLenOff+2]))

	if keyLen == 0 {
		return nil, nil, &DecodeError{Offset: off, Reason: "empty key"}
	}
	end := off + recordHeaderSize + keyLen + valueLen
	if end > mLen {
		return nil, nil, &DecodeError{Offset: off, Reason: fmt.Sprintf("keyLen %d + valueLen %d beyond bounds (%d)", keyLen, valueLen, mLen)}
	}
	keyValue := m[off+recordHeaderSize : end]
	if sum := checksum(keyValue); sum != expectedChecksum {
		return nil, nil, &DecodeError{Offset: off, Reason: fmt.Sprintf("checksum failed (%d != %d): data file corrupted", expectedChecksum, sum)}
	}
	return keyValue[:keyLen], keyValue[keyLen:], nil
}

// Iter returns an iterator over the records in stored order.
func (r *Reader) Iter() *Iter {
	return &Iter{r: r, off: fileHeaderSize}
}

type IterItem struct {
	Key    []byte
	Value  []byte
	Offset int64
}

// Iter walks the records of a datafile.  Check Err once Next returns
// false.
type Iter struct {
	r     *Reader
	off   int64
	count uint64
	err   error
}

func (i *Iter) Next() (IterItem, bool) {
	if i.err != nil {
		return IterItem{}, false
	}
	if i.off == int64(len(i.r.data)) {
		if i.count != i.r.h.recordCount {
			i.err = &DecodeError{Offset: i.off, Reason: fmt.Sprintf("found %d records, header says %d", i.count, i.r.h.recordCount)}
		}
		return IterItem{}, false
	}

	k, v, err := i.r.ReadAt(i.off)
	if err != nil {
		i.err = err
		return IterItem{}, false
	}

	item := IterItem{
		Key:    k,
		Value:  v,
		Offset: i.off,
	}

	i.off += recordHeaderSize + int64(len(k)) + int64(len(v))
	i.count++

	return item, true
}

// Err returns the first error encountered by Next.
func (i *Iter) Err() error {
	return i.err
}

// Decode validates data as a datafile of the given kind and calls fn for
// every record in stored order.  Errors returned by fn are reported as a
// *DecodeError at the offending record's offset.
func Decode(data []byte, kind string, fn func(key, value []byte) error) error {
	r, err := NewReader(data)
	if err != nil {
		return err
	}
	if err := r.CheckKind(kind); err != nil {
		return err
	}

	it := r.Iter()
	for item, ok := it.Next(); ok; item, ok = it.Next() {
		if err := fn(item.Key, item.Value); err != nil {
			var decodeErr *DecodeError
			if errors.As(err, &decodeErr) {
				if decodeErr.Offset == 0 {
					decodeErr.Offset = item.Offset
				}
				return decodeErr
			}
			return &DecodeError{Offset: item.Offset, Reason: "invalid record", Err: err}
		}
	}
	return it.Err()
}
