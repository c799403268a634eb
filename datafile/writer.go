// Copyright 2023 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/dgryski/go-farm"
)

const (
	defaultBufferSize = 256 * 1024
	recordHeaderSize  = 4 + 1 + 2 // 32-bit checksum of key+value + 8-bit key length + 16-bit value length

	maximumKeyLength   = (1 << 8) - 1
	maximumValueLength = (1 << 16) - 1

	headerKeyLenOff   = 4
	headerValueLenOff = 5
)

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

// FileWriter is usually an *os.File, but specified as an interface for easier testing.
type FileWriter interface {
	io.Writer
	io.WriterAt
}

// Writer appends records to a datafile.  The header is written with
// zeroed totals up front and patched in place by Finish.
type Writer struct {
	f       FileWriter
	w       *bufio.Writer
	h       *fileHeader
	digest  *xxhash.Digest
	scratch []byte
}

// NewWriter writes a header for a datafile of the given kind to f.
func NewWriter(f FileWriter, kind string) (*Writer, error) {
	h, err := newFileHeader(kind)
	if err != nil {
		return nil, fmt.Errorf("newFileHeader: %w", err)
	}
	w := &Writer{
		f:      f,
		w:      bufio.NewWriterSize(f, defaultBufferSize),
		h:      h,
		digest: xxhash.New(),
	}
	if err := w.writeFileHeader(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Writer) writeFileHeader() error {
	var headerBuf [fileHeaderSize]byte
	if err := w.h.MarshalTo(headerBuf[:]); err != nil {
		return fmt.Errorf("fileHeader.MarshalTo: %w", err)
	}

	if _, err := w.w.Write(headerBuf[:]); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}

	return nil
}

// Kind returns the kind tag the datafile is written with.
func (w *Writer) Kind() string {
	return w.h.kind
}

// Write appends a single record.  Keys must be 1-255 bytes, values at most
// 65535 bytes.
func (w *Writer) Write(key, value []byte) error {
	if w.w == nil {
		return errors.New("write after Finish")
	}
	if len(key) == 0 {
		return fmt.Errorf("empty key not supported")
	}
	if len(key) > maximumKeyLength {
		return fmt.Errorf("key %q too long", string(key))
	}
	if len(value) > maximumValueLength {
		return fmt.Errorf("value of %d bytes too long", len(value))
	}

	var zeroHeader [recordHeaderSize]byte
	w.scratch = append(w.scratch[:0], zeroHeader[:]...)
	w.scratch = append(w.scratch, key...)
	w.scratch = append(w.scratch, value...)
	record := w.scratch

	header := record[:recordHeaderSize]
	binary.LittleEndian.PutUint32(header[:4], checksum(record[recordHeaderSize:]))
	header[headerKeyLenOff] = uint8(len(key))
	binary.LittleEndian.PutUint16(header[headerValueLenOff:headerValueLenOff+2], uint16(len(value)))

	if _, err := w.w.Write(record); err != nil {
		return fmt.Errorf("bufio.Write: %w", err)
	}
	_, _ = w.digest.Write(record)

	w.h.payloadLen += uint64(len(record))
	w.h.recordCount++

	return nil
}

// Len returns the number of records written so far.
func (w *Writer) Len() uint64 {
	return w.h.recordCount
}

// Finish flushes buffered records and patches the header with the record
// count, payload length and digest.  Calling Finish more than once is
// fine; Write after Finish is an error.
func (w *Writer) Finish() error {
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("bufio.Flush: %w", err)
	}
	w.w.Reset(&nopWriter{})
	w.w = nil

	w.h.digest = w.digest.Sum64()

	var headerBuf [fileHeaderSize]byte
	if err := w.h.MarshalTo(headerBuf[:]); err != nil {
		return fmt.Errorf("fileHeader.MarshalTo: %w", err)
	}
	if _, err := w.f.WriteAt(headerBuf[:], 0); err != nil {
		return fmt.Errorf("f.WriteAt: %w", err)
	}

	return nil
}

func checksum(keyValue []byte) uint32 {
	return uint32(farm.Hash64(keyValue))
}

// memFile is an in-memory FileWriter.
type memFile struct {
	buf []byte
}

func (m *memFile) Write(p []byte) (int, error) {
	m.buf = append(m.buf, p...)
	return len(p), nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || int(off)+len(p) > len(m.buf) {
		return 0, errors.New("writeAt out of bounds")
	}
	return copy(m.buf[off:], p), nil
}

// Encode builds a complete datafile of the given kind in memory.  fn
// writes the records.
func Encode(kind string, fn func(w *Writer) error) ([]byte, error) {
	var f memFile
	w, err := NewWriter(&f, kind)
	if err != nil {
		return nil, err
	}
	if err := fn(w); err != nil {
		return nil, err
	}
	if err := w.Finish(); err != nil {
		return nil, err
	}
	return f.buf, nil
}
