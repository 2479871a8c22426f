package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// LearnerStatsRepository reads learner statistics. Writes are batched by the stats worker.
type LearnerStatsRepository struct {
	pool *pgxpool.Pool
}

// NewLearnerStatsRepository creates a new LearnerStatsRepository.
func NewLearnerStatsRepository(pool *pgxpool.Pool) *LearnerStatsRepository {
	return &LearnerStatsRepository{pool: pool}
}

// Get retrieves the stats row for a learner.
func (r *LearnerStatsRepository) Get(ctx context.Context, learnerID string) (*model.LearnerStats, error) {
	s := &model.LearnerStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT learner_id, total_answered, correct_answers, current_streak, last_practice_date, updated_at
		 FROM learner_stats WHERE learner_id = $1`, learnerID,
	).Scan(&s.LearnerID, &s.TotalAnswered, &s.CorrectAnswers, &s.CurrentStreak, &s.LastPracticeDate, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
