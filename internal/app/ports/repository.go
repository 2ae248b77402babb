// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ports defines the interfaces (ports) used by the application layer.
// These interfaces are implemented by adapters (repositories, external services).
// Following hexagonal architecture: interfaces are declared where they are consumed.
package ports

import (
	"context"
	"time"

	"github.com/planet-nine-app/continuebee/internal/domain"
)

// UserRepository defines persistence operations for users. The store is a
// consistent single-record key-value store keyed by userUUID; ordering of
// concurrent writes to the same userUUID is the store's concern.
type UserRepository interface {
	// FindByUUID retrieves a user by its external UUID.
	// Returns domain.ErrUserNotFound if not found.
	FindByUUID(ctx context.Context, uuid domain.UserUUID) (*domain.User, error)

	// CreateIfNotExists persists a new user.
	// Returns domain.ErrUserExists on a userUUID collision; it never
	// silently overwrites an existing record.
	CreateIfNotExists(ctx context.Context, user *domain.User) (*domain.User, error)

	// UpdateHash replaces the stored hash token and returns the updated user.
	// Returns domain.ErrUserNotFound if no such user exists.
	UpdateHash(ctx context.Context, uuid domain.UserUUID, newHash string) (*domain.User, error)

	// Delete removes a user. Returns domain.ErrUserNotFound if no such
	// user exists.
	Delete(ctx context.Context, uuid domain.UserUUID) error
}

// UserStats holds aggregated counters for the admin endpoint.
type UserStats struct {
	TotalUsers  int
	NewLast24h  int
	OldestSince time.Time
}

// StatsReader defines read operations for the admin view.
// Separated from the write repository for CQRS-lite pattern.
type StatsReader interface {
	// GetStats returns aggregated user statistics.
	GetStats(ctx context.Context) (UserStats, error)
}
