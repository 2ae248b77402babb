// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/planet-nine-app/continuebee/internal/domain"
)

// mockUserRepo is a test double for ports.UserRepository.
type mockUserRepo struct {
	users     map[string]*domain.User
	createErr error
	findErr   error
	updateErr error
	deleteErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) FindByUUID(ctx context.Context, uuid domain.UserUUID) (*domain.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	user, ok := m.users[uuid.String()]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) CreateIfNotExists(ctx context.Context, user *domain.User) (*domain.User, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if _, ok := m.users[user.UserUUID.String()]; ok {
		return nil, domain.ErrUserExists
	}
	copied := *user
	m.users[user.UserUUID.String()] = &copied
	return user, nil
}

func (m *mockUserRepo) UpdateHash(ctx context.Context, uuid domain.UserUUID, newHash string) (*domain.User, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	user, ok := m.users[uuid.String()]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user.Hash = newHash
	user.UpdatedAt = time.Now().UTC()
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, uuid domain.UserUUID) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.users[uuid.String()]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, uuid.String())
	return nil
}

// testService wires a UserService over a mock repo with a clock pinned to
// testNow, plus a signing identity for building requests.
const testNow = int64(1700000000)

func testService(t *testing.T) (*UserService, *mockUserRepo, string, string) {
	t.Helper()
	repo := newMockUserRepo()
	verifier := fixedVerifier(t, testNow)
	svc := NewUserService(repo, verifier, nil)
	priv, pub := testIdentity(t)
	return svc, repo, priv, pub.String()
}

func signedCreate(t *testing.T, priv, pub, hash string) domain.SignedRequest {
	t.Helper()
	m := domain.SignedRequest{PubKey: pub, Hash: hash, Timestamp: testNow}
	m.Signature = signPayload(t, priv, m.CreatePayload())
	return m
}

func mustCreate(t *testing.T, svc *UserService, priv, pub, hash string) *domain.User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), signedCreate(t, priv, pub, hash))
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return user
}

func TestUserService_CreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with derived identifiers", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)

		user := mustCreate(t, svc, priv, pub, "h1")

		if user.ID == "" {
			t.Error("expected a server-assigned id")
		}
		if _, err := domain.NewUserUUID(user.UserUUID.String()); err != nil {
			t.Errorf("derived userUUID should be valid: %v", err)
		}
		if user.Hash != "h1" {
			t.Errorf("expected hash h1, got %s", user.Hash)
		}
		if _, ok := repo.users[user.UserUUID.String()]; !ok {
			t.Error("user should be persisted")
		}
	})

	t.Run("rejects malformed public key", func(t *testing.T) {
		svc, repo, priv, _ := testService(t)

		m := signedCreate(t, priv, "deadbeef", "h1")
		_, err := svc.CreateUser(ctx, m)
		if _, ok := domain.IsValidationError(err); !ok {
			t.Errorf("expected ValidationError, got %v", err)
		}
		if len(repo.users) != 0 {
			t.Error("nothing should be persisted")
		}
	})

	t.Run("rejects bad signature and persists nothing", func(t *testing.T) {
		svc, repo, _, pub := testService(t)
		otherPriv, _ := testIdentity(t)

		m := signedCreate(t, otherPriv, pub, "h1")
		_, err := svc.CreateUser(ctx, m)
		if _, ok := domain.IsValidationError(err); !ok {
			t.Errorf("expected ValidationError, got %v", err)
		}
		if len(repo.users) != 0 {
			t.Error("nothing should be persisted")
		}
	})

	t.Run("rejects stale timestamp", func(t *testing.T) {
		svc, _, priv, pub := testService(t)

		m := domain.SignedRequest{PubKey: pub, Hash: "h1", Timestamp: testNow - testWindow - 1}
		m.Signature = signPayload(t, priv, m.CreatePayload())

		_, err := svc.CreateUser(ctx, m)
		if _, ok := domain.IsValidationError(err); !ok {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})

	t.Run("surfaces store collision as conflict", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)
		repo.createErr = domain.ErrUserExists

		_, err := svc.CreateUser(ctx, signedCreate(t, priv, pub, "h1"))
		if !errors.Is(err, domain.ErrUserExists) {
			t.Errorf("expected ErrUserExists, got %v", err)
		}
	})
}

func TestUserService_VerifyUser(t *testing.T) {
	ctx := context.Background()

	t.Run("verifies with current hash", func(t *testing.T) {
		svc, _, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.VerifyPayload())

		if err := svc.VerifyUser(ctx, m); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects wrong hash", func(t *testing.T) {
		svc, _, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "wrong", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.VerifyPayload())

		err := svc.VerifyUser(ctx, m)
		ve, ok := domain.IsValidationError(err)
		if !ok {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(ve.Reasons) != 1 {
			t.Errorf("expected a single hash-mismatch reason, got %v", ve.Reasons)
		}
	})

	t.Run("unknown uuid is NotFound, not a validation failure", func(t *testing.T) {
		svc, _, priv, _ := testService(t)

		m := domain.SignedRequest{UserUUID: "550e8400-e29b-41d4-a716-446655440000", Hash: "h1", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.VerifyPayload())

		err := svc.VerifyUser(ctx, m)
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if _, ok := domain.IsValidationError(err); ok {
			t.Error("NotFound must not be folded into a validation failure")
		}
	})

	t.Run("malformed uuid is a validation failure", func(t *testing.T) {
		svc, _, _, _ := testService(t)

		err := svc.VerifyUser(ctx, domain.SignedRequest{UserUUID: "nope", Hash: "h1", Timestamp: testNow})
		if _, ok := domain.IsValidationError(err); !ok {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}

func TestUserService_UpdateHash(t *testing.T) {
	ctx := context.Background()

	t.Run("updates hash after verification", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", NewHash: "h2", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.UpdateHashPayload())

		updated, err := svc.UpdateHash(ctx, m)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Hash != "h2" {
			t.Errorf("expected hash h2, got %s", updated.Hash)
		}
		if repo.users[user.UserUUID.String()].Hash != "h2" {
			t.Error("stored hash should be h2")
		}
	})

	t.Run("rejects stale asserted hash without mutating", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h2")

		// Caller still believes the hash is h1
		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", NewHash: "h3", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.UpdateHashPayload())

		_, err := svc.UpdateHash(ctx, m)
		if _, ok := domain.IsValidationError(err); !ok {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if repo.users[user.UserUUID.String()].Hash != "h2" {
			t.Error("stored hash should be unchanged")
		}
	})

	t.Run("signature over old payload does not authorize a different newHash", func(t *testing.T) {
		svc, _, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", NewHash: "h2", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.UpdateHashPayload())
		m.NewHash = "attacker"

		if _, err := svc.UpdateHash(ctx, m); err == nil {
			t.Error("expected verification failure when newHash is swapped after signing")
		}
	})

	t.Run("unknown uuid is NotFound", func(t *testing.T) {
		svc, _, priv, _ := testService(t)

		m := domain.SignedRequest{UserUUID: "550e8400-e29b-41d4-a716-446655440000", Hash: "h1", NewHash: "h2", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.UpdateHashPayload())

		_, err := svc.UpdateHash(ctx, m)
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserService_DeleteUser(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes after verification, terminally", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.DeletePayload())

		if err := svc.DeleteUser(ctx, m); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(repo.users) != 0 {
			t.Error("user should be removed")
		}

		// Any further operation against the uuid fails with NotFound
		verify := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "h1", Timestamp: testNow}
		verify.Signature = signPayload(t, priv, verify.VerifyPayload())
		if err := svc.VerifyUser(ctx, verify); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound after delete, got %v", err)
		}
	})

	t.Run("verification failure leaves user in place", func(t *testing.T) {
		svc, repo, priv, pub := testService(t)
		user := mustCreate(t, svc, priv, pub, "h1")

		m := domain.SignedRequest{UserUUID: user.UserUUID.String(), Hash: "wrong", Timestamp: testNow}
		m.Signature = signPayload(t, priv, m.DeletePayload())

		err := svc.DeleteUser(ctx, m)
		if _, ok := domain.IsValidationError(err); !ok {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if len(repo.users) != 1 {
			t.Error("user should still exist")
		}
	})
}

// Full lifecycle: create with h1, rotate to h2, stale update rejected,
// delete with h2, then the uuid is gone.
func TestUserService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, priv, pub := testService(t)

	user := mustCreate(t, svc, priv, pub, "h1")
	uuid := user.UserUUID.String()

	update := domain.SignedRequest{UserUUID: uuid, Hash: "h1", NewHash: "h2", Timestamp: testNow}
	update.Signature = signPayload(t, priv, update.UpdateHashPayload())
	updated, err := svc.UpdateHash(ctx, update)
	if err != nil {
		t.Fatalf("UpdateHash: %v", err)
	}
	if updated.Hash != "h2" {
		t.Fatalf("expected h2, got %s", updated.Hash)
	}

	stale := domain.SignedRequest{UserUUID: uuid, Hash: "h1", NewHash: "h3", Timestamp: testNow}
	stale.Signature = signPayload(t, priv, stale.UpdateHashPayload())
	if _, err := svc.UpdateHash(ctx, stale); err == nil {
		t.Fatal("stale update should be rejected")
	}

	del := domain.SignedRequest{UserUUID: uuid, Hash: "h2", Timestamp: testNow}
	del.Signature = signPayload(t, priv, del.DeletePayload())
	if err := svc.DeleteUser(ctx, del); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	verify := domain.SignedRequest{UserUUID: uuid, Hash: "h2", Timestamp: testNow}
	verify.Signature = signPayload(t, priv, verify.VerifyPayload())
	if err := svc.VerifyUser(ctx, verify); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
