// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"fmt"

	"github.com/planet-nine-app/continuebee/internal/app/ports"
)

// StatsService handles admin read-only use cases (CQRS-lite pattern).
type StatsService struct {
	reader ports.StatsReader
}

// NewStatsService creates a new StatsService.
func NewStatsService(reader ports.StatsReader) *StatsService {
	return &StatsService{reader: reader}
}

// GetStats returns aggregated user statistics.
func (s *StatsService) GetStats(ctx context.Context) (ports.UserStats, error) {
	stats, err := s.reader.GetStats(ctx)
	if err != nil {
		return ports.UserStats{}, fmt.Errorf("get user stats: %w", err)
	}
	return stats, nil
}
