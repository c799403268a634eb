// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package interval

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRange = errors.New("invalid range")
	ErrOverlap      = errors.New("overlapping range")
)

// InvalidRangeError is returned by Insert when start is greater than end.
type InvalidRangeError struct {
	Start, End any
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range [%v, %v]: start greater than end", e.Start, e.End)
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}

// OverlapError is returned by Insert on a Builder created with
// WithRejectOverlaps when the new range intersects a stored one.
type OverlapError struct {
	Start, End                 any
	ExistingStart, ExistingEnd any
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("range [%v, %v] overlaps existing range [%v, %v]", e.Start, e.End, e.ExistingStart, e.ExistingEnd)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}
