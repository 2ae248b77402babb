// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app implements the use cases of the service: the message
// verifier and the user lifecycle built on top of it. Every mutation is
// gated by a successful verification; on failure the store is never
// touched.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/planet-nine-app/continuebee/internal/app/ports"
	"github.com/planet-nine-app/continuebee/internal/domain"
	"github.com/planet-nine-app/continuebee/pkg/crypto"
)

// UserService handles the user lifecycle: create, verify, update-hash and
// delete, each against a signed request.
type UserService struct {
	repo     ports.UserRepository
	verifier *MessageVerifier
	logger   *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo ports.UserRepository, verifier *MessageVerifier, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{
		repo:     repo,
		verifier: verifier,
		logger:   logger,
	}
}

// CreateUser registers a new user. There is no stored record to verify
// against, so the public key carried by the request itself is trusted for
// this one verification pass. On success the persisted user is returned,
// carrying the server-assigned id and the derived userUUID.
func (s *UserService) CreateUser(ctx context.Context, m domain.SignedRequest) (*domain.User, error) {
	if _, err := domain.NewPublicKey(m.PubKey); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	result := s.verifier.Verify(domain.PublicKey(m.PubKey), m.Signature, m.CreatePayload(), m.Timestamp)
	if !result.OK() {
		return nil, result.Err()
	}

	user, err := domain.NewUser(uuid.New().String(), crypto.GenerateUUID(), m.PubKey, m.Hash)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	created, err := s.repo.CreateIfNotExists(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_uuid", created.UserUUID.String())
	return created, nil
}

// VerifyUser confirms that the caller controls the user's private key and
// holds its current hash. No state change.
func (s *UserService) VerifyUser(ctx context.Context, m domain.SignedRequest) error {
	user, err := s.loadUser(ctx, m.UserUUID)
	if err != nil {
		return err
	}

	result := s.verifier.VerifyForUser(user, m.Signature, m.VerifyPayload(), m.Timestamp, m.Hash)
	return result.Err()
}

// UpdateHash replaces the stored hash token after verifying the request
// against the stored public key and current hash. The returned user is
// the store's view after the write; callers can rely on Hash matching the
// requested newHash.
func (s *UserService) UpdateHash(ctx context.Context, m domain.SignedRequest) (*domain.User, error) {
	user, err := s.loadUser(ctx, m.UserUUID)
	if err != nil {
		return nil, err
	}

	result := s.verifier.VerifyForUser(user, m.Signature, m.UpdateHashPayload(), m.Timestamp, m.Hash)
	if !result.OK() {
		return nil, result.Err()
	}

	updated, err := s.repo.UpdateHash(ctx, user.UserUUID, m.NewHash)
	if err != nil {
		return nil, fmt.Errorf("update hash for %s: %w", user.UserUUID, err)
	}
	if updated.Hash != m.NewHash {
		return nil, fmt.Errorf("update hash for %s: store did not apply new hash", user.UserUUID)
	}

	s.logger.Info("hash updated", "user_uuid", user.UserUUID.String())
	return updated, nil
}

// DeleteUser removes the user after verification. Removal is confirmed by
// re-querying the store before success is reported; deletion is terminal.
func (s *UserService) DeleteUser(ctx context.Context, m domain.SignedRequest) error {
	user, err := s.loadUser(ctx, m.UserUUID)
	if err != nil {
		return err
	}

	result := s.verifier.VerifyForUser(user, m.Signature, m.DeletePayload(), m.Timestamp, m.Hash)
	if !result.OK() {
		return result.Err()
	}

	if err := s.repo.Delete(ctx, user.UserUUID); err != nil {
		return fmt.Errorf("delete user %s: %w", user.UserUUID, err)
	}

	if _, err := s.repo.FindByUUID(ctx, user.UserUUID); !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("delete user %s: record still present after delete", user.UserUUID)
	}

	s.logger.Info("user deleted", "user_uuid", user.UserUUID.String())
	return nil
}

// loadUser resolves a userUUID to its stored record. A malformed uuid is a
// validation failure; an absent record is ErrUserNotFound, kept distinct so
// callers can tell "no such user" from "bad signature".
func (s *UserService) loadUser(ctx context.Context, rawUUID string) (*domain.User, error) {
	uid, err := domain.NewUserUUID(rawUUID)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	user, err := s.repo.FindByUUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", uid, err)
	}
	return user, nil
}
