package column

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset is returned when Load is called with no columns.
var ErrEmptyDataset = errors.New("dataset has no columns")

// ErrLengthMismatch indicates a column whose length differs from the first
// column's length.
type ErrLengthMismatch struct {
	Column string
	Len    int
	Want   int
}

func (e *ErrLengthMismatch) Error() string {
	return fmt.Sprintf("column %q has length %d, want %d", e.Column, e.Len, e.Want)
}

// ErrTypeMismatch indicates a column whose declared kind does not match its
// backing buffer.
type ErrTypeMismatch struct {
	Column string
	Kind   Kind
	Reason string
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("column %q declared %s: %s", e.Column, e.Kind, e.Reason)
}

// ErrDuplicateColumn indicates two specs sharing the same name.
type ErrDuplicateColumn struct {
	Column string
}

func (e *ErrDuplicateColumn) Error() string {
	return fmt.Sprintf("duplicate column %q", e.Column)
}

// ErrUnknownColumn indicates a lookup for a field the store does not hold.
type ErrUnknownColumn struct {
	Column string
}

func (e *ErrUnknownColumn) Error() string {
	return fmt.Sprintf("unknown column %q", e.Column)
}
