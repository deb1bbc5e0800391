package entity

import "errors"

// Sentinel errors shared across usecases. Route handlers map these to
// HTTP statuses; everything else surfaces as an internal error.
var (
	ErrNotFound  = errors.New("not found")
	ErrInvalid   = errors.New("invalid entity")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
	ErrInternal  = errors.New("internal error")
)
