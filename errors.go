package crossfilter

import (
	"errors"
	"fmt"

	"github.com/hupe1980/crossfilter/internal/aggregate"
	"github.com/hupe1980/crossfilter/internal/column"
	"github.com/hupe1980/crossfilter/internal/compute"
	"github.com/hupe1980/crossfilter/internal/coordinator"
	"github.com/hupe1980/crossfilter/internal/filter"
)

var (
	// ErrLoad marks dataset validation failures. The engine does not start:
	// New returns the error and no resources are held.
	ErrLoad = errors.New("dataset load failed")

	// ErrRequest marks synchronously rejected requests and filters (unknown
	// field, invalid bin spec, kind mismatch). Other views are unaffected.
	ErrRequest = errors.New("invalid request")

	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("engine closed")
)

// ComputeError reports a failure inside a background computation. It is
// delivered on the owning view's stream only, correlated by request ID; the
// engine remains usable.
//
// The underlying cause can be accessed via errors.Unwrap.
type ComputeError = compute.Error

// ErrDuplicateView indicates a Subscribe with a view ID already in use.
type ErrDuplicateView = coordinator.ErrDuplicateView

// translateLoadError normalizes column-store validation failures into the
// ErrLoad family.
func translateLoadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrLoad, err)
}

// translateRequestError normalizes request and filter validation failures
// into the ErrRequest family.
func translateRequestError(err error) error {
	if err == nil {
		return nil
	}

	var unknown *column.ErrUnknownColumn
	if errors.As(err, &unknown) {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	var mismatch *ErrFieldMismatch
	if errors.As(err, &mismatch) {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}
	if errors.Is(err, aggregate.ErrInvalidBinCount) ||
		errors.Is(err, aggregate.ErrInvalidEdges) ||
		errors.Is(err, aggregate.ErrFieldKind) ||
		errors.Is(err, aggregate.ErrMissingField) ||
		errors.Is(err, filter.ErrKindMismatch) ||
		errors.Is(err, filter.ErrUnknownFilterType) {
		return fmt.Errorf("%w: %w", ErrRequest, err)
	}

	return err
}
