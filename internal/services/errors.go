// Package services defines the business logic for inquiries.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import (
	"errors"
	"sort"
	"strings"
)

// Inquiry-related errors.
var (
	// ErrInquiryNotFound indicates that the requested inquiry does not exist or
	// is not owned by the current user.
	ErrInquiryNotFound = errors.New("inquiry not found")

	// ErrValidation is the sentinel wrapped by every *ValidationError.
	ErrValidation = errors.New("validation failed")

	// ErrConcurrencyConflict is returned when an update lost a race with
	// another writer that modified the same inquiry.
	ErrConcurrencyConflict = errors.New("inquiry was modified concurrently")
)

// ValidationError carries per-field messages for invalid input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// MirrorError reports a failed call to the remote directory after the local
// store has already been consulted or changed.
type MirrorError struct {
	Op  string // create|update|delete|response
	Err error
}

func (e *MirrorError) Error() string { return "mirror " + e.Op + ": " + e.Err.Error() }

// Unwrap exposes the directory error (crm.ErrNotFound, *crm.APIError, ...).
func (e *MirrorError) Unwrap() error { return e.Err }
