package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// PaperRepository handles generated paper storage. Question snapshots live in one JSONB column.
type PaperRepository struct {
	pool *pgxpool.Pool
}

// NewPaperRepository creates a new PaperRepository.
func NewPaperRepository(pool *pgxpool.Pool) *PaperRepository {
	return &PaperRepository{pool: pool}
}

// Create inserts a paper.
func (r *PaperRepository) Create(ctx context.Context, p *model.Paper) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO papers (id, title, subject_id, seed, questions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Title, p.SubjectID, seedToDB(p.Seed), p.Questions, p.CreatedAt,
	)
	return err
}

// GetByID retrieves a paper by id.
func (r *PaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	p := &model.Paper{}
	var seed *int64
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, subject_id, seed, questions, created_at
		 FROM papers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Title, &p.SubjectID, &seed, &p.Questions, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Seed = seedFromDB(seed)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// Seeds are stored bit-for-bit in a signed BIGINT.
func seedToDB(seed *uint64) *int64 {
	if seed == nil {
		return nil
	}
	v := int64(*seed)
	return &v
}

func seedFromDB(seed *int64) *uint64 {
	if seed == nil {
		return nil
	}
	v := uint64(*seed)
	return &v
}
