package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Query returns APPROVED questions matching filter, ordered by creation time then id.
// A knowledge-point filter matches questions tagged with any of the listed points.
func (r *QuestionRepository) Query(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error) {
	query := `
		SELECT id, subject_id, question_type, stem, options, answer_key,
		       difficulty, knowledge_points, status, analysis, created_at
		FROM questions
		WHERE status = $1
	`
	args := []any{model.QuestionStatusApproved}

	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		query += fmt.Sprintf(" AND subject_id = $%d", len(args))
	}
	if filter.Difficulty != nil {
		args = append(args, *filter.Difficulty)
		query += fmt.Sprintf(" AND difficulty = $%d", len(args))
	}
	if len(filter.KnowledgePoints) > 0 {
		args = append(args, filter.KnowledgePoints)
		query += fmt.Sprintf(" AND knowledge_points && $%d::text[]", len(args))
	}
	if len(filter.Excluding) > 0 {
		args = append(args, filter.Excluding)
		query += fmt.Sprintf(" AND NOT (id = ANY($%d::uuid[]))", len(args))
	}
	query += " ORDER BY created_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.SubjectID, &q.Type, &q.Stem, &q.Options, &q.AnswerKey,
			&q.Difficulty, &q.KnowledgePoints, &q.Status, &q.Analysis, &q.CreatedAt,
		); err != nil {
			return nil, err
		}
		q.CreatedAt = q.CreatedAt.UTC()
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Upsert inserts a question or replaces the one with the same id.
// A zero id gets a fresh one.
func (r *QuestionRepository) Upsert(ctx context.Context, q *model.Question) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	if q.Options == nil {
		q.Options = []model.Option{}
	}
	if q.AnswerKey == nil {
		q.AnswerKey = []string{}
	}
	if q.KnowledgePoints == nil {
		q.KnowledgePoints = []string{}
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (id, subject_id, question_type, stem, options, answer_key,
		                        difficulty, knowledge_points, status, analysis)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		     subject_id = EXCLUDED.subject_id,
		     question_type = EXCLUDED.question_type,
		     stem = EXCLUDED.stem,
		     options = EXCLUDED.options,
		     answer_key = EXCLUDED.answer_key,
		     difficulty = EXCLUDED.difficulty,
		     knowledge_points = EXCLUDED.knowledge_points,
		     status = EXCLUDED.status,
		     analysis = EXCLUDED.analysis
		 RETURNING created_at`,
		q.ID, q.SubjectID, q.Type, q.Stem, q.Options, q.AnswerKey,
		q.Difficulty, q.KnowledgePoints, q.Status, q.Analysis,
	).Scan(&q.CreatedAt)
}
