// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/planet-nine-app/continuebee/internal/domain"
)

// UserRepository implements ports.UserRepository for PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUUID retrieves a user by its external UUID.
func (r *UserRepository) FindByUUID(ctx context.Context, uuid domain.UserUUID) (*domain.User, error) {
	query := `
		SELECT id, user_uuid, pub_key, hash, created_at, updated_at
		FROM users
		WHERE user_uuid = $1
	`
	row := r.db.QueryRowContext(ctx, query, uuid.String())

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", uuid, err)
	}
	return user, nil
}

// CreateIfNotExists persists a new user. A pre-existing user_uuid is a
// conflict: the insert does nothing and ErrUserExists is returned, never a
// silent overwrite.
func (r *UserRepository) CreateIfNotExists(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (id, user_uuid, pub_key, hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_uuid) DO NOTHING
		RETURNING id, user_uuid, pub_key, hash, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query,
		user.ID,
		user.UserUUID.String(),
		user.PubKey.String(),
		user.Hash,
		user.CreatedAt,
		user.UpdatedAt,
	)

	created, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Conflict target hit: nothing inserted, nothing returned
		return nil, domain.ErrUserExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.UserUUID, err)
	}
	return created, nil
}

// UpdateHash replaces the stored hash and returns the updated record.
func (r *UserRepository) UpdateHash(ctx context.Context, uuid domain.UserUUID, newHash string) (*domain.User, error) {
	query := `
		UPDATE users
		SET hash = $1, updated_at = NOW()
		WHERE user_uuid = $2
		RETURNING id, user_uuid, pub_key, hash, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query, newHash, uuid.String())

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update hash for %s: %w", uuid, err)
	}
	return user, nil
}

// Delete removes a user.
func (r *UserRepository) Delete(ctx context.Context, uuid domain.UserUUID) error {
	query := `DELETE FROM users WHERE user_uuid = $1`
	result, err := r.db.ExecContext(ctx, query, uuid.String())
	if err != nil {
		return fmt.Errorf("delete user %s: %w", uuid, err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var userUUID, pubKey string

	err := row.Scan(
		&user.ID,
		&userUUID,
		&pubKey,
		&user.Hash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	// Reconstruct value objects (already validated in DB)
	user.UserUUID = domain.UserUUID(userUUID)
	user.PubKey = domain.PublicKey(pubKey)
	return &user, nil
}
