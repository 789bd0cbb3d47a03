// Package errors provides error handling for canopy.
//
// It re-exports github.com/cockroachdb/errors so every package wraps,
// marks and inspects errors the same way:
//
//	// Wrap with context
//	if err := c.Children(ctx, id); err != nil {
//	    return errors.Wrapf(err, "fetching children of %s", id)
//	}
//
//	// Classify a failure without losing its cause
//	return errors.Mark(err, errors.ErrDataUnavailable)
//
//	// Check classification
//	if errors.Is(err, errors.ErrDataUnavailable) {
//	    // degrade to an empty result
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection and classification
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	Mark         = crdb.Mark
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the visibility engine. They are used as marks:
// errors.Mark(cause, ErrDataUnavailable) keeps the cause's message while
// errors.Is(err, ErrDataUnavailable) reports the category.
var (
	// ErrDataUnavailable indicates a catalog fetch failed or timed out.
	// Callers degrade to an empty result.
	ErrDataUnavailable = New("graph data unavailable")

	// ErrLayoutFailure indicates the layout engine failed or timed out.
	// Callers keep the previous positions.
	ErrLayoutFailure = New("layout failure")

	// ErrInvariantViolation indicates an internal bug, such as a visible
	// edge referencing a hidden node. Never surfaced to the user.
	ErrInvariantViolation = New("visibility invariant violation")

	// ErrNotFound indicates the requested node or edge does not exist
	ErrNotFound = New("not found")

	// ErrTourInactive indicates a tour navigation call outside an active tour
	ErrTourInactive = New("tour is not active")

	// ErrTourActive indicates a manual expand or collapse during a tour
	ErrTourActive = New("tour is active")
)

// DataUnavailable marks err as a catalog failure. Returns nil for nil.
func DataUnavailable(err error) error {
	if err == nil {
		return nil
	}
	return Mark(err, ErrDataUnavailable)
}

// LayoutFailure marks err as a layout failure. Returns nil for nil.
func LayoutFailure(err error) error {
	if err == nil {
		return nil
	}
	return Mark(err, ErrLayoutFailure)
}

// IsDataUnavailable reports whether err is or carries ErrDataUnavailable
func IsDataUnavailable(err error) bool {
	return err != nil && Is(err, ErrDataUnavailable)
}

// IsLayoutFailure reports whether err is or carries ErrLayoutFailure
func IsLayoutFailure(err error) bool {
	return err != nil && Is(err, ErrLayoutFailure)
}

// IsNotFound reports whether err is or carries ErrNotFound
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}
