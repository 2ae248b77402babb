// SPDX-License-Identifier: AGPL-3.0-or-later

// Package http provides HTTP handlers that delegate to application services.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/planet-nine-app/continuebee/internal/app"
	"github.com/planet-nine-app/continuebee/internal/domain"
)

// Handlers holds HTTP handlers and their dependencies.
type Handlers struct {
	users  *app.UserService
	stats  *app.StatsService
	logger *slog.Logger
}

// NewHandlers creates a new Handlers with the given services.
func NewHandlers(users *app.UserService, stats *app.StatsService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		users:  users,
		stats:  stats,
		logger: logger,
	}
}

// Healthcheck returns a simple health status.
func (h *Handlers) Healthcheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Field names follow the signed wire protocol: clients compute signatures
// over concatenations of these exact values, so the JSON casing (pubKey,
// userUUID, newHash) is part of the contract and is not normalized to
// snake_case.

// CreateUserRequest is the JSON payload for user creation.
type CreateUserRequest struct {
	PubKey    string `json:"pubKey"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UserRequest is the JSON payload for verify and delete.
type UserRequest struct {
	UserUUID  string `json:"userUUID"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UpdateHashRequest is the JSON payload for hash rotation.
type UpdateHashRequest struct {
	UserUUID  string `json:"userUUID"`
	Hash      string `json:"hash"`
	NewHash   string `json:"newHash"`
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
}

// UserResponse is the JSON shape of a user returned to clients. The
// internal row id stays internal.
type UserResponse struct {
	UserUUID string `json:"userUUID"`
	PubKey   string `json:"pubKey"`
	Hash     string `json:"hash"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserUUID: u.UserUUID.String(),
		PubKey:   u.PubKey.String(),
		Hash:     u.Hash,
	}
}

// CreateUser handles user creation requests.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.users.CreateUser(r.Context(), domain.SignedRequest{
		PubKey:    req.PubKey,
		Hash:      req.Hash,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeError(w, "create user", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(toUserResponse(user))
}

// VerifyUser handles verify-only requests: it confirms the caller controls
// the account and holds its current hash, without changing anything.
func (h *Handlers) VerifyUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.users.VerifyUser(r.Context(), domain.SignedRequest{
		UserUUID:  req.UserUUID,
		Hash:      req.Hash,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeError(w, "verify user", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// UpdateHash handles hash rotation requests.
func (h *Handlers) UpdateHash(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UpdateHashRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.users.UpdateHash(r.Context(), domain.SignedRequest{
		UserUUID:  req.UserUUID,
		Hash:      req.Hash,
		NewHash:   req.NewHash,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeError(w, "update hash", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(toUserResponse(user))
}

// DeleteUser handles account deletion requests.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req UserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid JSON", "error", err)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	err := h.users.DeleteUser(r.Context(), domain.SignedRequest{
		UserUUID:  req.UserUUID,
		Hash:      req.Hash,
		Signature: req.Signature,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.writeError(w, "delete user", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// AdminStats handles user statistics requests.
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"total_users":  stats.TotalUsers,
		"new_last_24h": stats.NewLast24h,
	}
	if !stats.OldestSince.IsZero() {
		response["oldest_since"] = stats.OldestSince
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// writeError maps domain errors to transport responses: validation
// failures are 403 with the collected reasons, a missing account is 404,
// a creation collision is 409.
func (h *Handlers) writeError(w http.ResponseWriter, op string, err error) {
	w.Header().Set("Content-Type", "application/json")

	if ve, ok := domain.IsValidationError(err); ok {
		h.logger.Warn("request rejected", "op", op, "reasons", ve.Reasons)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "auth error", "reasons": ve.Reasons})
		return
	}

	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		h.logger.Warn("user not found", "op", op)
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	case errors.Is(err, domain.ErrUserExists):
		h.logger.Warn("user already exists", "op", op)
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "user already exists"})
	default:
		h.logger.Error("operation failed", "op", op, "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "server error"})
	}
}
