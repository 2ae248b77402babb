// SPDX-License-Identifier: AGPL-3.0-or-later

package http

import (
	"log/slog"
	"net/http"

	"github.com/planet-nine-app/continuebee/internal/adapters/postgres"
	"github.com/planet-nine-app/continuebee/internal/app"
	"github.com/planet-nine-app/continuebee/internal/middleware"
)

// RouterConfig holds the configuration for creating a new router.
type RouterConfig struct {
	Store             *postgres.Store
	RateLimiter       *middleware.RateLimiter
	HashWindowSeconds int
	Logger            *slog.Logger
}

// NewRouter creates a fully wired HTTP router with all handlers and middleware.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Create repositories from store
	userRepo := cfg.Store.UserRepository()
	statsReader := cfg.Store.StatsReader()

	// Create application services
	verifier := app.NewMessageVerifier(cfg.HashWindowSeconds)
	userSvc := app.NewUserService(userRepo, verifier, logger)
	statsSvc := app.NewStatsService(statsReader)

	handlers := NewHandlers(userSvc, statsSvc, logger)
	return newMux(handlers, cfg.RateLimiter)
}

// newMux wires handlers and rate limiting; separated from NewRouter so
// tests can plug in services over mock repositories.
func newMux(handlers *Handlers, rl *middleware.RateLimiter) *http.ServeMux {
	wrapCreate := func(h http.HandlerFunc) http.HandlerFunc { return h }
	wrapUser := wrapCreate
	wrapAdmin := wrapCreate
	if rl != nil {
		wrapCreate = rl.CreateMiddleware
		wrapUser = rl.UserMiddleware
		wrapAdmin = rl.AdminMiddleware
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.Healthcheck)
	mux.HandleFunc("/user/create", wrapCreate(handlers.CreateUser))
	mux.HandleFunc("/user/verify", wrapUser(handlers.VerifyUser))
	mux.HandleFunc("/user/update-hash", wrapUser(handlers.UpdateHash))
	mux.HandleFunc("/user/delete", wrapUser(handlers.DeleteUser))
	mux.HandleFunc("/api/v1/admin/stats", wrapAdmin(handlers.AdminStats))
	return mux
}
