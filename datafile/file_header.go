// Copyright 2023 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package datafile

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	magicDataHeader   = 0xC0FFEE0D
	fileFormatVersion = 1
	fileHeaderSize    = 64
	maximumKindLength = 16

	headerKindOff       = 8
	headerCountOff      = headerKindOff + maximumKindLength
	headerPayloadLenOff = headerCountOff + 8
	headerDigestOff     = headerPayloadLenOff + 8
)

type fileHeader struct {
	magic         uint32
	formatVersion uint32
	kind          string
	recordCount   uint64
	payloadLen    uint64
	digest        uint64
}

func newFileHeader(kind string) (*fileHeader, error) {
	if err := checkKindName(kind); err != nil {
		return nil, err
	}
	return &fileHeader{
		magic:         magicDataHeader,
		formatVersion: fileFormatVersion,
		kind:          kind,
	}, nil
}

func checkKindName(kind string) error {
	if len(kind) == 0 || len(kind) > maximumKindLength {
		return fmt.Errorf("kind %q must be 1-%d bytes long", kind, maximumKindLength)
	}
	for i := 0; i < len(kind); i++ {
		if c := kind[i]; c == 0 || c > 0x7f {
			return fmt.Errorf("kind %q must be printable ASCII", kind)
		}
	}
	return nil
}

func (h *fileHeader) MarshalTo(buf []byte) error {
	if len(buf) < fileHeaderSize {
		return fmt.Errorf("buf too short: %d < %d", len(buf), fileHeaderSize)
	}
	buf = buf[:fileHeaderSize]
	clear(buf)

	binary.LittleEndian.PutUint32(buf[:4], h.magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.formatVersion)
	copy(buf[headerKindOff:headerKindOff+maximumKindLength], h.kind)
	binary.LittleEndian.PutUint64(buf[headerCountOff:headerCountOff+8], h.recordCount)
	binary.LittleEndian.PutUint64(buf[headerPayloadLenOff:headerPayloadLenOff+8], h.payloadLen)
	binary.LittleEndian.PutUint64(buf[headerDigestOff:headerDigestOff+8], h.digest)

	return nil
}

func (h *fileHeader) UnmarshalBytes(headerBytes []byte) error {
	if len(headerBytes) < fileHeaderSize {
		return &DecodeError{Reason: fmt.Sprintf("file too short for header: %d < %d", len(headerBytes), fileHeaderSize)}
	}

	headerBytes = headerBytes[:fileHeaderSize]

	h.magic = binary.LittleEndian.Uint32(headerBytes[:4])
	if h.magic != magicDataHeader {
		return &DecodeError{Reason: fmt.Sprintf("bad magic number (%x): not an ndb datafile or corrupted", h.magic)}
	}

	h.formatVersion = binary.LittleEndian.Uint32(headerBytes[4:8])
	if h.formatVersion != fileFormatVersion {
		return &DecodeError{Offset: 4, Reason: fmt.Sprintf("can only read v%d data files; found v%d", fileFormatVersion, h.formatVersion)}
	}

	kind := headerBytes[headerKindOff : headerKindOff+maximumKindLength]
	if i := bytes.IndexByte(kind, 0); i >= 0 {
		kind = kind[:i]
	}
	h.kind = string(kind)
	if err := checkKindName(h.kind); err != nil {
		return &DecodeError{Offset: headerKindOff, Reason: "bad kind tag", Err: err}
	}

	h.recordCount = binary.LittleEndian.Uint64(headerBytes[headerCountOff : headerCountOff+8])
	h.payloadLen = binary.LittleEndian.Uint64(headerBytes[headerPayloadLenOff : headerPayloadLenOff+8])
	h.digest = binary.LittleEndian.Uint64(headerBytes[headerDigestOff : headerDigestOff+8])

	return nil
}
