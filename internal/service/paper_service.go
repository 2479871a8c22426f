package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/model"
	"golang.org/x/sync/singleflight"
)

// QuestionSource is the read-only question-bank query surface.
type QuestionSource interface {
	Query(ctx context.Context, filter model.QuestionFilter) ([]model.Question, error)
}

// PaperService generates and serves papers.
type PaperService struct {
	questions QuestionSource
	papers    PaperStore
	clock     Clock
	log       zerolog.Logger
}

// NewPaperService creates a new PaperService.
func NewPaperService(questions QuestionSource, papers PaperStore, clock Clock, log zerolog.Logger) *PaperService {
	return &PaperService{
		questions: questions,
		papers:    papers,
		clock:     clock,
		log:       log.With().Str("component", "paper_service").Logger(),
	}
}

// Generate selects questions for spec and stores the resulting paper.
// A spec without a seed gets a fresh one, recorded on the paper so the draw can be replayed.
func (s *PaperService) Generate(ctx context.Context, spec model.PaperSpec) (*model.Paper, error) {
	if spec.Seed == nil {
		seed := rand.Uint64()
		spec.Seed = &seed
	}

	pool, err := s.questions.Query(ctx, model.QuestionFilter{
		SubjectID: spec.SubjectID,
		Excluding: spec.Excluding,
	})
	if err != nil {
		return nil, fmt.Errorf("query question pool: %w", err)
	}

	gen := NewPaperGenerator(NewSeededRandom(*spec.Seed), s.clock)
	paper, err := gen.Generate(spec, pool)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("subject_id", spec.SubjectID).
			Int("total", spec.Total).
			Int("pool", len(pool)).
			Msg("Paper generation rejected")
		return nil, err
	}

	if err := s.papers.Create(ctx, paper); err != nil {
		return nil, fmt.Errorf("save paper: %w", err)
	}

	s.log.Info().
		Str("paper_id", paper.ID.String()).
		Str("subject_id", paper.SubjectID).
		Int("questions", len(paper.Questions)).
		Uint64("seed", *paper.Seed).
		Msg("Paper generated")

	return paper, nil
}

// Get returns a stored paper with answer keys.
func (s *PaperService) Get(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	paper, err := s.papers.GetByID(ctx, id)
	if err != nil {
		return nil, mapPaperErr(err)
	}
	return paper, nil
}

func mapPaperErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPaperNotFound
	}
	return fmt.Errorf("get paper: %w", err)
}

// CachedPaperStore fronts a PaperStore with Redis. Papers are immutable, so
// entries only expire by TTL. Concurrent misses for one paper share a single load.
type CachedPaperStore struct {
	PaperStore
	rdb   *redis.Client
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
}

// NewCachedPaperStore wraps store with a Redis read-through cache.
func NewCachedPaperStore(store PaperStore, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *CachedPaperStore {
	return &CachedPaperStore{
		PaperStore: store,
		rdb:        rdb,
		ttl:        ttl,
		log:        log.With().Str("component", "paper_cache").Logger(),
	}
}

// GetByID serves from Redis when possible. Cache failures fall back to the store.
func (c *CachedPaperStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Paper, error) {
	key := config.CacheKey.PaperPayloadKey(id.String())

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p model.Paper
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			return &p, nil
		}
		c.log.Warn().Str("paper_id", id.String()).Msg("Corrupt cached paper, reloading")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Msg("Paper cache read failed")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		p, err := c.PaperStore.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(p); err == nil {
			if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.log.Warn().Err(err).Msg("Paper cache write failed")
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}

	// Callers may mutate what they get; hand each one its own copy.
	shared := v.(*model.Paper)
	cp := *shared
	cp.Questions = append([]model.PaperQuestion(nil), shared.Questions...)
	return &cp, nil
}
