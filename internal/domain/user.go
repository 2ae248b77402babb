// SPDX-License-Identifier: AGPL-3.0-or-later

// Package domain holds the entities and value objects of the sessionless
// account model. Validation lives here; services and adapters only move
// already-validated values around.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// UserUUID is a validated external user identifier (UUID format).
// It is derived at creation time and is the handle clients address
// all subsequent operations to.
type UserUUID string

var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// NewUserUUID creates and validates a UserUUID.
func NewUserUUID(id string) (UserUUID, error) {
	if id == "" {
		return "", ErrInvalidUserUUID
	}
	if !uuidRegex.MatchString(id) {
		return "", fmt.Errorf("%w: invalid UUID format", ErrInvalidUserUUID)
	}
	return UserUUID(id), nil
}

// String returns the string representation.
func (u UserUUID) String() string {
	return string(u)
}

// PublicKey is a hex-encoded compressed secp256k1 public key.
type PublicKey string

// NewPublicKey creates and validates a PublicKey.
func NewPublicKey(key string) (PublicKey, error) {
	if key == "" {
		return "", ErrInvalidPublicKey
	}
	// Compressed secp256k1 key = 33 bytes = 66 hex chars
	if len(key) != 66 {
		return "", fmt.Errorf("%w: expected 66 hex chars, got %d", ErrInvalidPublicKey, len(key))
	}
	if !strings.HasPrefix(key, "02") && !strings.HasPrefix(key, "03") {
		return "", fmt.Errorf("%w: expected 02 or 03 prefix", ErrInvalidPublicKey)
	}
	for _, c := range key {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return "", fmt.Errorf("%w: invalid hex character", ErrInvalidPublicKey)
		}
	}
	return PublicKey(key), nil
}

// String returns the string representation.
func (pk PublicKey) String() string {
	return string(pk)
}

// User is a registered sessionless identity: a public key plus one opaque
// client-managed hash token. The public key never changes once set; the
// hash changes only through a verified update-hash operation.
type User struct {
	ID        string
	UserUUID  UserUUID
	PubKey    PublicKey
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a new User with validation. The internal id and the
// external userUUID are both assigned by the caller at creation time.
func NewUser(id string, userUUID string, pubKey string, hash string) (*User, error) {
	uid, err := NewUserUUID(userUUID)
	if err != nil {
		return nil, err
	}

	pk, err := NewPublicKey(pubKey)
	if err != nil {
		return nil, err
	}

	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidUser)
	}

	now := time.Now().UTC()
	return &User{
		ID:        id,
		UserUUID:  uid,
		PubKey:    pk,
		Hash:      hash,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
