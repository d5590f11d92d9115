package results

import (
	"errors"
	"fmt"
)

// ErrInvalidInput means Convert was handed no result at all.
var ErrInvalidInput = errors.New("dag result cannot be nil")

// ShapeMismatchError reports a result handle that lacks part of the
// boundary contract. It is detected before any conversion work begins, so
// it never coexists with a partially converted result.
type ShapeMismatchError struct {
	Missing string
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("expected DagResult handle but missing accessor %s", e.Missing)
}

// ConversionError reports a fault raised by the engine mid-traversal.
// Entity names what was being converted when the fault occurred (record,
// ErrorOutput, SinkResult, or DagResult for top-level accessors); the
// original fault is wrapped for diagnostics.
type ConversionError struct {
	Entity string
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("failed to convert %s: %v", e.Entity, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// wrapConversion tags err with the entity under conversion unless an inner
// conversion already did: a leaf fault surfaces as exactly one
// ConversionError naming the innermost entity.
func wrapConversion(entity string, err error) error {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConversionError{Entity: entity, Err: err}
}
