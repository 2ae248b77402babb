// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	httpadapter "github.com/planet-nine-app/continuebee/internal/adapters/http"
	"github.com/planet-nine-app/continuebee/internal/adapters/postgres"
	"github.com/planet-nine-app/continuebee/internal/config"
	"github.com/planet-nine-app/continuebee/internal/middleware"
	"github.com/planet-nine-app/continuebee/pkg/logger"
)

func main() {
	cfg := config.LoadServerConfig()
	rlCfg := config.LoadRateLimitConfig()

	logger.Info("Connecting to PostgreSQL...")
	store, err := postgres.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Could not connect to the database: %v", err)
		log.Fatalf("Could not connect to the database: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()
	logger.InfoCtx("DATABASE", "Connected to PostgreSQL")

	if err := store.EnsureSchema(context.Background()); err != nil {
		logger.Error("Schema initialization failed: %v", err)
		log.Fatalf("Schema initialization failed: %v", err)
	}

	rl := middleware.NewRateLimiter(rlCfg)
	defer rl.Stop()

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	mux := httpadapter.NewRouter(httpadapter.RouterConfig{
		Store:             store,
		RateLimiter:       rl,
		HashWindowSeconds: cfg.HashWindowSeconds,
		Logger:            slogger,
	})

	logger.Info("═══════════════════════════════════════════════════")
	logger.InfoCtx("SERVER", "continuebee started")
	logger.InfoCtx("SERVER", "Port: %s", cfg.Port)
	logger.InfoCtx("SERVER", "Replay window: %ds", cfg.HashWindowSeconds)
	logger.InfoCtx("SERVER", "Endpoints: /user/create, /user/verify, /user/update-hash, /user/delete, /api/v1/admin/stats")
	logger.Info("═══════════════════════════════════════════════════")

	log.Fatal(http.ListenAndServe(":"+cfg.Port, mux))
}
