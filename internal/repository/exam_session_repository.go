package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// SessionSummary is one row of a paper's live session list.
type SessionSummary struct {
	SessionID     uuid.UUID           `json:"session_id"`
	LearnerID     string              `json:"learner_id"`
	Mode          model.SessionMode   `json:"mode"`
	Status        model.SessionStatus `json:"status"`
	AnsweredCount int                 `json:"answered_count"`
	StartedAt     time.Time           `json:"started_at"`
	Deadline      time.Time           `json:"deadline"`
	TotalScore    *float64            `json:"total_score,omitempty"`
}

// ExamSessionRepository handles exam session and grade result data access.
// Writes are conditional on the row version so a stale writer never overwrites a newer snapshot.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, paper_id, learner_id, mode, paper_snapshot, started_at, time_limit_seconds,
	deadline, status, answers, flagged, version, submitted_at, end_reason`

// Create inserts a new exam session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO exam_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		s.ID, s.PaperID, s.LearnerID, s.Mode, s.Paper, s.StartedAt, int(s.TimeLimit/time.Second),
		s.Deadline, s.Status, s.Answers, flaggedOrEmpty(s.Flagged), s.Version, s.SubmittedAt, s.EndReason,
	)
	return err
}

// GetByID retrieves a session including its paper snapshot and answers.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var seconds int
	err := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id,
	).Scan(
		&s.ID, &s.PaperID, &s.LearnerID, &s.Mode, &s.Paper, &s.StartedAt, &seconds,
		&s.Deadline, &s.Status, &s.Answers, &s.Flagged, &s.Version, &s.SubmittedAt, &s.EndReason,
	)
	if err != nil {
		return nil, err
	}

	s.TimeLimit = time.Duration(seconds) * time.Second
	s.StartedAt = s.StartedAt.UTC()
	s.Deadline = s.Deadline.UTC()
	if s.SubmittedAt != nil {
		t := s.SubmittedAt.UTC()
		s.SubmittedAt = &t
	}
	if s.Answers == nil {
		s.Answers = make(map[uuid.UUID][]string)
	}
	if s.Flagged == nil {
		s.Flagged = make(map[uuid.UUID]bool)
	}
	return s, nil
}

func flaggedOrEmpty(m map[uuid.UUID]bool) map[uuid.UUID]bool {
	if m == nil {
		return map[uuid.UUID]bool{}
	}
	return m
}

// SaveAnswers replaces the answers and review flags if the stored version is still expectedVersion.
func (r *ExamSessionRepository) SaveAnswers(ctx context.Context, s *model.ExamSession, expectedVersion int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET answers = $1, flagged = $2, version = version + 1
		 WHERE id = $3 AND version = $4 AND status = $5`,
		s.Answers, flaggedOrEmpty(s.Flagged), s.ID, expectedVersion, model.SessionStatusInProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	return nil
}

// Finalize seals the session and stores its grade result in one transaction.
func (r *ExamSessionRepository) Finalize(ctx context.Context, s *model.ExamSession, result *model.GradeResult, expectedVersion int64) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE exam_sessions
			 SET status = $1, answers = $2, flagged = $3, submitted_at = $4, end_reason = $5, version = version + 1
			 WHERE id = $6 AND version = $7 AND status = $8`,
			s.Status, s.Answers, flaggedOrEmpty(s.Flagged), s.SubmittedAt, s.EndReason, s.ID, expectedVersion, model.SessionStatusInProgress,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO grade_results (session_id, total_score, max_score, correct_count, pending_count, graded_at, payload)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			result.SessionID, result.TotalScore, result.MaxScore, result.CorrectCount,
			result.PendingCount, result.GradedAt, payload,
		)
		return err
	})
}

// GetResult retrieves the stored grade result of a session exactly as it was saved.
func (r *ExamSessionRepository) GetResult(ctx context.Context, sessionID uuid.UUID) (*model.GradeResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx,
		`SELECT payload FROM grade_results WHERE session_id = $1`, sessionID,
	).Scan(&payload)
	if err != nil {
		return nil, err
	}

	var result model.GradeResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}

// ListByPaper returns a summary of every session started on a paper.
func (r *ExamSessionRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]SessionSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT es.id, es.learner_id, es.mode, es.status,
		        (SELECT COUNT(*) FROM jsonb_object_keys(es.answers))::int,
		        es.started_at, es.deadline, gr.total_score
		 FROM exam_sessions es
		 LEFT JOIN grade_results gr ON gr.session_id = es.id
		 WHERE es.paper_id = $1
		 ORDER BY es.started_at`, paperID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		if err := rows.Scan(
			&s.SessionID, &s.LearnerID, &s.Mode, &s.Status,
			&s.AnsweredCount, &s.StartedAt, &s.Deadline, &s.TotalScore,
		); err != nil {
			return nil, err
		}
		s.StartedAt = s.StartedAt.UTC()
		s.Deadline = s.Deadline.UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}
