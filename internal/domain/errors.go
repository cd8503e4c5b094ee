package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound matches any NotFoundError.
	ErrNotFound = errors.New("not found")

	// ErrOutOfRange matches any RangeError.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidRequest is returned for malformed comparison requests.
	ErrInvalidRequest = errors.New("invalid request")
)

// NotFoundError reports an unknown scenario, region or crop identifier.
type NotFoundError struct {
	Kind string // "scenario", "region", "crop"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// RangeError reports an input outside the supported domain, such as a year
// beyond the projection horizon or a crop that is not grown in a region.
type RangeError struct {
	Field  string
	Value  any
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range: %s", e.Field, e.Value, e.Reason)
}

// Is makes errors.Is(err, ErrOutOfRange) true.
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// Failure kinds reported on comparison cells.
const (
	KindNotFound = "not_found"
	KindRange    = "range"
	KindInternal = "internal"
)

// KindOf maps an error to its failure kind.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrOutOfRange):
		return KindRange
	default:
		return KindInternal
	}
}
