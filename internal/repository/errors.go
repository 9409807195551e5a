// Package repository defines sentinel errors shared across stores so
// handlers can map failures onto HTTP statuses without string matching.
package repository

import "errors"

// ErrForbidden is returned when the caller acts on a hold owned by
// another user. Handlers translate it into a 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation loses to existing state.
// ErrSeatsUnavailable wraps it, so errors.Is(err, ErrConflict) catches
// seat contention generically. Handlers translate it into a 409.
var ErrConflict = errors.New("conflict")
