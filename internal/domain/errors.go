// SPDX-License-Identifier: AGPL-3.0-or-later

package domain

import (
	"errors"
	"strings"
)

// Sentinel errors for the domain layer.
// Use errors.Is() to check for these errors.
// Wrap with fmt.Errorf("context: %w", ErrXxx) to add context.

var (
	// User errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrInvalidUserUUID  = errors.New("invalid user UUID")
	ErrInvalidPublicKey = errors.New("invalid public key")
	ErrInvalidUser      = errors.New("invalid user")

	// Authentication errors
	ErrInvalidSignature = errors.New("invalid signature")
	ErrMissingSignature = errors.New("missing signature")
)

// ValidationError is a failed verification outcome. It collects every
// reason the request was rejected (stale timestamp, bad signature, hash
// mismatch) rather than stopping at the first one.
type ValidationError struct {
	Reasons []string
}

// NewValidationError creates a ValidationError from one or more reasons.
func NewValidationError(reasons ...string) *ValidationError {
	return &ValidationError{Reasons: reasons}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// IsValidationError reports whether err is (or wraps) a ValidationError,
// returning it when so.
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
