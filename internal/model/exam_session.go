package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
	SessionStatusExpired    SessionStatus = "EXPIRED"
)

// IsTerminal reports whether no further answers are accepted in this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusExpired
}

// SessionMode distinguishes proctored exams from self-started practice.
type SessionMode string

const (
	SessionModeExam     SessionMode = "EXAM"
	SessionModePractice SessionMode = "PRACTICE"
)

// EndReason records how a session was sealed.
type EndReason string

const (
	EndReasonSubmitted EndReason = "SUBMITTED"
	EndReasonTimeOut   EndReason = "TIME_OUT"
)

// ExamSession represents one learner's timed attempt at a paper.
// Status is the stored value; use StatusAt for the status as seen by callers.
type ExamSession struct {
	ID          uuid.UUID              `json:"id"`
	PaperID     uuid.UUID              `json:"paper_id"`
	LearnerID   string                 `json:"learner_id"`
	Mode        SessionMode            `json:"mode"`
	Paper       Paper                  `json:"paper"`
	StartedAt   time.Time              `json:"started_at"`
	TimeLimit   time.Duration          `json:"time_limit"`
	Deadline    time.Time              `json:"deadline"`
	Status      SessionStatus          `json:"status"`
	Answers     map[uuid.UUID][]string `json:"answers"`
	Flagged     map[uuid.UUID]bool     `json:"flagged,omitempty"`
	Version     int64                  `json:"version"`
	SubmittedAt *time.Time             `json:"submitted_at,omitempty"`
	EndReason   *EndReason             `json:"end_reason,omitempty"`
}

// IsPastDeadline reports whether now is at or after the deadline.
// The deadline instant itself counts as expired.
func (s *ExamSession) IsPastDeadline(now time.Time) bool {
	return !now.Before(s.Deadline)
}

// StatusAt derives the status at now. A stored IN_PROGRESS session whose
// deadline has passed is reported as EXPIRED without being persisted.
func (s *ExamSession) StatusAt(now time.Time) SessionStatus {
	if s.Status == SessionStatusInProgress && s.IsPastDeadline(now) {
		return SessionStatusExpired
	}
	return s.Status
}

// Remaining returns the time left before the deadline, never negative.
func (s *ExamSession) Remaining(now time.Time) time.Duration {
	if s.Status.IsTerminal() {
		return 0
	}
	d := s.Deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// SessionView is the learner-facing snapshot of a session.
type SessionView struct {
	SessionID        uuid.UUID              `json:"session_id"`
	PaperID          uuid.UUID              `json:"paper_id"`
	Mode             SessionMode            `json:"mode"`
	Status           SessionStatus          `json:"status"`
	StartedAt        time.Time              `json:"started_at"`
	Deadline         time.Time              `json:"deadline"`
	RemainingSeconds float64                `json:"remaining_seconds"`
	Paper            LearnerPaper           `json:"paper"`
	Answers          map[uuid.UUID][]string `json:"answers"`
	Flagged          map[uuid.UUID]bool     `json:"flagged"`
}

// ViewAt builds the learner view of the session at now.
func (s *ExamSession) ViewAt(now time.Time) SessionView {
	answers := make(map[uuid.UUID][]string, len(s.Answers))
	for k, v := range s.Answers {
		answers[k] = append([]string(nil), v...)
	}
	flagged := make(map[uuid.UUID]bool, len(s.Flagged))
	for k, v := range s.Flagged {
		if v {
			flagged[k] = true
		}
	}
	return SessionView{
		SessionID:        s.ID,
		PaperID:          s.PaperID,
		Mode:             s.Mode,
		Status:           s.StatusAt(now),
		StartedAt:        s.StartedAt,
		Deadline:         s.Deadline,
		RemainingSeconds: s.Remaining(now).Seconds(),
		Paper:            s.Paper.ForLearner(),
		Answers:          answers,
		Flagged:          flagged,
	}
}

// StartSessionRequest is the payload for starting a session.
// AccessRef is either an access code or a paper id.
type StartSessionRequest struct {
	AccessRef        string `json:"access_ref" binding:"required,min=4,max=64"`
	Passphrase       string `json:"passphrase" binding:"omitempty,max=72"`
	TimeLimitMinutes int    `json:"time_limit_minutes" binding:"omitempty,min=1,max=480"`
}

// SubmitAnswerRequest is the payload for answering one question.
// An empty list clears the answer. Flagged marks the question for review and
// is replaced on every write like the answer itself.
type SubmitAnswerRequest struct {
	Answer  []string `json:"answer" binding:"omitempty,max=26,dive,max=4000"`
	Flagged bool     `json:"flagged"`
}
