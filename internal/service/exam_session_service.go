package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/lock"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
)

// SessionStore persists exam sessions and their grade results.
// Not-found lookups return pgx.ErrNoRows; stale versions return repository.ErrVersionConflict.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	SaveAnswers(ctx context.Context, s *model.ExamSession, expectedVersion int64) error
	Finalize(ctx context.Context, s *model.ExamSession, result *model.GradeResult, expectedVersion int64) error
	GetResult(ctx context.Context, sessionID uuid.UUID) (*model.GradeResult, error)
}

// PaperStore persists generated papers.
type PaperStore interface {
	Create(ctx context.Context, p *model.Paper) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Paper, error)
}

// SessionPublisher fans out session activity. Failures are logged, never returned to learners.
type SessionPublisher interface {
	PublishEvent(ctx context.Context, ev model.SessionEvent) error
	PublishResult(ctx context.Context, s *model.ExamSession, result *model.GradeResult) error
}

// ExamSessionService runs the timed session state machine.
// Writers of one session are serialized through the Locker; reads go straight to the store.
type ExamSessionService struct {
	sessions  SessionStore
	papers    PaperStore
	locker    lock.Locker
	grader    *GradingEngine
	publisher SessionPublisher
	clock     Clock
	log       zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	papers PaperStore,
	locker lock.Locker,
	grader *GradingEngine,
	publisher SessionPublisher,
	clock Clock,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions:  sessions,
		papers:    papers,
		locker:    locker,
		grader:    grader,
		publisher: publisher,
		clock:     clock,
		log:       log.With().Str("component", "exam_session_service").Logger(),
	}
}

// Start creates an IN_PROGRESS session holding a private copy of the paper.
func (s *ExamSessionService) Start(ctx context.Context, learnerID string, params model.StartParams) (*model.ExamSession, error) {
	if params.TimeLimit <= 0 {
		return nil, ErrInvalidTimeLimit
	}

	paper, err := s.papers.GetByID(ctx, params.PaperID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaperNotFound
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	now := s.clock.Now()
	session := &model.ExamSession{
		ID:        uuid.New(),
		PaperID:   paper.ID,
		LearnerID: learnerID,
		Mode:      params.Mode,
		Paper:     *paper,
		StartedAt: now,
		TimeLimit: params.TimeLimit,
		Deadline:  now.Add(params.TimeLimit),
		Status:    model.SessionStatusInProgress,
		Answers:   make(map[uuid.UUID][]string),
		Flagged:   make(map[uuid.UUID]bool),
		Version:   1,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("paper_id", paper.ID.String()).
		Str("learner_id", learnerID).
		Str("mode", string(params.Mode)).
		Dur("time_limit", params.TimeLimit).
		Msg("Session started")

	s.publishEvent(ctx, model.NewSessionEvent(model.SessionEventStarted, session, now))
	return session, nil
}

// Get loads a session without locking. The returned Status is the stored one;
// callers derive the visible status with StatusAt.
func (s *ExamSessionService) Get(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// View returns the learner view of the session as of now.
func (s *ExamSessionService) View(ctx context.Context, id uuid.UUID) (*model.SessionView, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	view := session.ViewAt(s.clock.Now())
	return &view, nil
}

// Answer overwrites the answer and review flag for one question and returns the
// time left. An empty value clears the answer. At or past the deadline the call
// fails with ErrSessionExpired, and a still-open session is sealed and graded first.
func (s *ExamSessionService) Answer(ctx context.Context, id, questionID uuid.UUID, value []string, flagged bool) (time.Duration, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return 0, err
	}
	defer release()

	session, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now()
	if session.IsPastDeadline(now) {
		if session.Status == model.SessionStatusInProgress {
			if _, err := s.finalize(ctx, session, now); err != nil {
				return 0, err
			}
		}
		return 0, ErrSessionExpired
	}
	if session.Status != model.SessionStatusInProgress {
		return 0, ErrInvalidState
	}

	q, ok := session.Paper.Question(questionID)
	if !ok {
		return 0, ErrQuestionNotInPaper
	}
	normalized, err := normalizeAnswer(q, value)
	if err != nil {
		return 0, err
	}

	if len(normalized) == 0 {
		delete(session.Answers, questionID)
	} else {
		session.Answers[questionID] = normalized
	}
	if session.Flagged == nil {
		session.Flagged = make(map[uuid.UUID]bool)
	}
	if flagged {
		session.Flagged[questionID] = true
	} else {
		delete(session.Flagged, questionID)
	}

	expected := session.Version
	if err := s.sessions.SaveAnswers(ctx, session, expected); err != nil {
		return 0, s.storeError("save answers", err)
	}
	session.Version = expected + 1

	s.publishEvent(ctx, model.NewSessionEvent(model.SessionEventAnswered, session, now))
	return session.Remaining(now), nil
}

// Submit seals the session and grades it exactly once. Submitting a session
// that is already sealed returns the stored result unchanged.
func (s *ExamSessionService) Submit(ctx context.Context, id uuid.UUID) (*model.GradeResult, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusInProgress {
		return s.Result(ctx, id)
	}
	return s.finalize(ctx, session, s.clock.Now())
}

// Result returns the stored grade result of a sealed session.
func (s *ExamSessionService) Result(ctx context.Context, id uuid.UUID) (*model.GradeResult, error) {
	result, err := s.sessions.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// finalize grades the session and persists status and result together.
// The caller must hold the session lock.
func (s *ExamSessionService) finalize(ctx context.Context, session *model.ExamSession, now time.Time) (*model.GradeResult, error) {
	reason := model.EndReasonSubmitted
	if session.IsPastDeadline(now) {
		reason = model.EndReasonTimeOut
	}

	result := s.grader.Grade(session, now)

	expected := session.Version
	session.Status = model.SessionStatusSubmitted
	session.SubmittedAt = &now
	session.EndReason = &reason

	if err := s.sessions.Finalize(ctx, session, result, expected); err != nil {
		return nil, s.storeError("finalize session", err)
	}
	session.Version = expected + 1

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("learner_id", session.LearnerID).
		Str("end_reason", string(reason)).
		Float64("score", result.TotalScore).
		Float64("max_score", result.MaxScore).
		Int("pending", result.PendingCount).
		Msg("Session graded")

	// Runs after commit: a failure here loses the stats update, not the result.
	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, session, result); err != nil {
			s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("Failed to queue stats update")
		}
	}
	ev := model.NewSessionEvent(model.SessionEventSubmitted, session, now)
	ev.Score = &result.TotalScore
	s.publishEvent(ctx, ev)

	return result, nil
}

func (s *ExamSessionService) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	release, err := s.locker.Lock(ctx, config.CacheKey.SessionLockKey(id.String()))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrSessionBusy
		}
		return nil, fmt.Errorf("lock session: %w", err)
	}
	return release, nil
}

func (s *ExamSessionService) storeError(op string, err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		// Only possible when a lock lease expired under a slow writer.
		s.log.Warn().Str("op", op).Msg("Version conflict on session write")
		return ErrSessionBusy
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *ExamSessionService) publishEvent(ctx context.Context, ev model.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("session_id", ev.SessionID.String()).Msg("Failed to publish session event")
	}
}

// normalizeAnswer checks value against the question and returns the stored form.
// Option answers must name existing options; multi-choice duplicates are dropped.
func normalizeAnswer(q *model.PaperQuestion, value []string) ([]string, error) {
	if len(value) == 0 {
		return nil, nil
	}
	if len(value) > 1 && (q.Type.IsSingleAnswer() || !q.Type.HasOptions()) {
		return nil, fmt.Errorf("%w: %s accepts a single value", ErrInvalidAnswer, q.Type)
	}
	if !q.Type.HasOptions() {
		return []string{value[0]}, nil
	}

	seen := make(map[string]struct{}, len(value))
	out := make([]string, 0, len(value))
	for _, v := range value {
		if !q.HasOption(v) {
			return nil, fmt.Errorf("%w: unknown option %q", ErrInvalidAnswer, v)
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}
