package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// LearnerStatsStore reads aggregated learner statistics.
type LearnerStatsStore interface {
	Get(ctx context.Context, learnerID string) (*model.LearnerStats, error)
}

// StatsService serves learner statistics written by the stats worker.
type StatsService struct {
	stats LearnerStatsStore
}

// NewStatsService creates a new StatsService.
func NewStatsService(stats LearnerStatsStore) *StatsService {
	return &StatsService{stats: stats}
}

// Get returns the learner's stats, or zero stats if nothing was graded yet.
func (s *StatsService) Get(ctx context.Context, learnerID string) (*model.LearnerStats, error) {
	st, err := s.stats.Get(ctx, learnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.LearnerStats{LearnerID: learnerID}, nil
		}
		return nil, fmt.Errorf("get learner stats: %w", err)
	}
	return st, nil
}
