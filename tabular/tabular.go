// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package tabular reads and writes the CSV source files databases are
// built from.  Every file starts with a header row naming its columns.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strconv"
	"strings"
)

var (
	ErrParse        = errors.New("parse error")
	ErrDuplicateKey = errors.New("duplicate key")
)

// ParseError describes a malformed row.  Ingestion stops at the first one.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Column != "" {
		fmt.Fprintf(&b, "column %q: ", e.Column)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, "invalid value %q: ", e.Value)
	}
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(ErrParse.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Err}
}

// DuplicateKeyError is returned in strict mode when two entries share an
// exact-match key.
type DuplicateKeyError struct {
	Key string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q", e.Key)
}

func (e *DuplicateKeyError) Unwrap() error {
	return ErrDuplicateKey
}

// Reader yields the data rows of a CSV file, addressing fields by the
// column names of its header row.
type Reader struct {
	r       *csv.Reader
	columns map[string]int
}

// NewReader reads the header row from r and checks that every required
// column is present.  Column order is free.
func NewReader(r io.Reader, required ...string) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ParseError{Line: 1, Err: errors.New("missing header row")}
	} else if err != nil {
		return nil, csvError(err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		columns[strings.ToLower(name)] = i
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return nil, &ParseError{Line: 1, Column: name, Err: errors.New("missing column in header")}
		}
	}

	return &Reader{r: cr, columns: columns}, nil
}

// Next returns the next data row, or io.EOF after the last one.
func (r *Reader) Next() (Row, error) {
	for {
		fields, err := r.r.Read()
		if err != nil {
			if err == io.EOF {
				return Row{}, io.EOF
			}
			return Row{}, csvError(err)
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			continue
		}
		line, _ := r.r.FieldPos(0)
		return Row{line: line, fields: fields, columns: r.columns}, nil
	}
}

// Rows iterates over the remaining rows.  Iteration stops after the first
// error, which is yielded with a zero Row.
func (r *Reader) Rows() iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for {
			row, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

func csvError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return fmt.Errorf("csv.Read: %w", err)
}

// Row is one data row of a CSV file.
type Row struct {
	line    int
	fields  []string
	columns map[string]int
}

// Line returns the 1-based line number the row starts on.
func (row Row) Line() int {
	return row.line
}

// Get returns the trimmed value of column, or "" if the row is too short
// to have it.
func (row Row) Get(column string) string {
	i, ok := row.columns[column]
	if !ok || i >= len(row.fields) {
		return ""
	}
	return strings.TrimSpace(row.fields[i])
}

// Errorf builds a ParseError for column of this row.
func (row Row) Errorf(column string, format string, args ...any) *ParseError {
	return &ParseError{Line: row.line, Column: column, Value: row.Get(column), Err: fmt.Errorf(format, args...)}
}

// Wrap attaches the row position to err.  Errors that are already a
// *ParseError only get the line number filled in.
func (row Row) Wrap(column string, err error) error {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if parseErr.Line == 0 {
			parseErr.Line = row.line
		}
		if parseErr.Column == "" {
			parseErr.Column = column
		}
		return parseErr
	}
	return &ParseError{Line: row.line, Column: column, Value: row.Get(column), Err: err}
}

// Uint parses column as an unsigned decimal integer of the given bit size.
func (row Row) Uint(column string, bitSize int) (uint64, error) {
	s := row.Get(column)
	v, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ParseError{Line: row.line, Column: column, Value: s, Err: err}
	}
	return v, nil
}

// Flag parses a single-byte 0/1 column.
func (row Row) Flag(column string) (bool, error) {
	switch s := row.Get(column); s {
	case "0":
		return false, nil
	case "1":
		return true, nil
	default:
		return false, &ParseError{Line: row.line, Column: column, Value: s, Err: errors.New("expected 0 or 1")}
	}
}

// NotEmpty returns the value of column, failing if it is blank.
func (row Row) NotEmpty(column string) (string, error) {
	s := row.Get(column)
	if s == "" {
		return "", &ParseError{Line: row.line, Column: column, Err: errors.New("empty value")}
	}
	return s, nil
}

// Write emits header followed by rows as CSV.
func Write(w io.Writer, header []string, rows iter.Seq[[]string]) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv.Write: %w", err)
	}
	for row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv.Write: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
