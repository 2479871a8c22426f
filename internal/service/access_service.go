package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const accessCodeLength = 10

// AccessCodeStore persists access codes. GetActive returns pgx.ErrNoRows for
// unknown codes and for codes whose validity window has closed at now.
type AccessCodeStore interface {
	Create(ctx context.Context, code *model.AccessCode) error
	GetActive(ctx context.Context, code string, now time.Time) (*model.AccessCode, error)
}

// AccessPolicy bounds the time limits sessions may be started with.
type AccessPolicy struct {
	DefaultTimeLimit time.Duration
	MaxTimeLimit     time.Duration
	BcryptCost       int
}

// AccessService turns an access reference into session start parameters.
type AccessService struct {
	codes  AccessCodeStore
	papers PaperStore
	policy AccessPolicy
	clock  Clock
	log    zerolog.Logger
}

// NewAccessService creates a new AccessService.
func NewAccessService(codes AccessCodeStore, papers PaperStore, policy AccessPolicy, clock Clock, log zerolog.Logger) *AccessService {
	return &AccessService{
		codes:  codes,
		papers: papers,
		policy: policy,
		clock:  clock,
		log:    log.With().Str("component", "access_service").Logger(),
	}
}

// Issue creates an access code for a paper.
func (s *AccessService) Issue(ctx context.Context, paperID uuid.UUID, authorID string, timeLimit time.Duration, passphrase string, validUntil *time.Time) (*model.AccessCode, error) {
	if timeLimit <= 0 || timeLimit > s.policy.MaxTimeLimit {
		return nil, ErrInvalidTimeLimit
	}
	if _, err := s.papers.GetByID(ctx, paperID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	code := &model.AccessCode{
		Code:       newAccessCode(),
		PaperID:    paperID,
		TimeLimit:  timeLimit,
		ValidUntil: validUntil,
		CreatedBy:  authorID,
		CreatedAt:  s.clock.Now(),
	}
	if passphrase != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), s.policy.BcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash passphrase: %w", err)
		}
		code.PassphraseHash = string(hash)
	}

	if err := s.codes.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("create access code: %w", err)
	}

	s.log.Info().
		Str("paper_id", paperID.String()).
		Str("created_by", authorID).
		Bool("passphrase", passphrase != "").
		Msg("Access code issued")

	return code, nil
}

// Resolve maps ref to start parameters. A paper id starts a practice session
// with the requested limit (or the default); an access code starts an exam
// session with the code's own limit.
func (s *AccessService) Resolve(ctx context.Context, ref, passphrase string, requested time.Duration) (model.StartParams, error) {
	if paperID, err := uuid.Parse(ref); err == nil {
		limit := requested
		if limit <= 0 {
			limit = s.policy.DefaultTimeLimit
		}
		if limit > s.policy.MaxTimeLimit {
			limit = s.policy.MaxTimeLimit
		}
		return model.StartParams{PaperID: paperID, TimeLimit: limit, Mode: model.SessionModePractice}, nil
	}

	code, err := s.codes.GetActive(ctx, strings.ToUpper(strings.TrimSpace(ref)), s.clock.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StartParams{}, ErrAccessCodeInvalid
		}
		return model.StartParams{}, fmt.Errorf("get access code: %w", err)
	}

	if code.PassphraseHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(code.PassphraseHash), []byte(passphrase)); err != nil {
			return model.StartParams{}, ErrAccessCodeInvalid
		}
	}

	return model.StartParams{PaperID: code.PaperID, TimeLimit: code.TimeLimit, Mode: model.SessionModeExam}, nil
}

// newAccessCode returns a short uppercase code that never parses as a uuid.
func newAccessCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:accessCodeLength]
}
