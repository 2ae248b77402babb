// SPDX-License-Identifier: AGPL-3.0-or-later

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/planet-nine-app/continuebee/internal/app/ports"
)

// StatsReader implements ports.StatsReader for PostgreSQL.
type StatsReader struct {
	db *sql.DB
}

// NewStatsReader creates a new StatsReader.
func NewStatsReader(db *sql.DB) *StatsReader {
	return &StatsReader{db: db}
}

// GetStats returns aggregated user statistics.
func (r *StatsReader) GetStats(ctx context.Context) (ports.UserStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours'),
			MIN(created_at)
		FROM users
	`
	row := r.db.QueryRowContext(ctx, query)

	var stats ports.UserStats
	var oldest sql.NullTime

	if err := row.Scan(&stats.TotalUsers, &stats.NewLast24h, &oldest); err != nil {
		return ports.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	if oldest.Valid {
		stats.OldestSince = oldest.Time
	}
	return stats, nil
}
