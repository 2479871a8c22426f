package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// AccessCodeRepository handles access code data access.
type AccessCodeRepository struct {
	pool *pgxpool.Pool
}

// NewAccessCodeRepository creates a new AccessCodeRepository.
func NewAccessCodeRepository(pool *pgxpool.Pool) *AccessCodeRepository {
	return &AccessCodeRepository{pool: pool}
}

// Create inserts a new access code.
func (r *AccessCodeRepository) Create(ctx context.Context, c *model.AccessCode) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO access_codes (code, paper_id, time_limit_seconds, passphrase_hash, valid_until, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.Code, c.PaperID, int(c.TimeLimit/time.Second), c.PassphraseHash, c.ValidUntil, c.CreatedBy, c.CreatedAt,
	)
	return err
}

// GetActive retrieves a code that is still valid at now.
func (r *AccessCodeRepository) GetActive(ctx context.Context, code string, now time.Time) (*model.AccessCode, error) {
	c := &model.AccessCode{}
	var seconds int
	err := r.pool.QueryRow(ctx,
		`SELECT code, paper_id, time_limit_seconds, passphrase_hash, valid_until, created_by, created_at
		 FROM access_codes
		 WHERE code = $1 AND (valid_until IS NULL OR valid_until > $2)`, code, now,
	).Scan(&c.Code, &c.PaperID, &seconds, &c.PassphraseHash, &c.ValidUntil, &c.CreatedBy, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.TimeLimit = time.Duration(seconds) * time.Second
	return c, nil
}
