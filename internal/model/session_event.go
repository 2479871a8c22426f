package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a session activity shown on the author's live monitor.
type SessionEventType string

const (
	SessionEventStarted   SessionEventType = "session_started"
	SessionEventAnswered  SessionEventType = "answer_saved"
	SessionEventSubmitted SessionEventType = "session_submitted"
)

// SessionEvent is published on the paper's monitor channel.
type SessionEvent struct {
	Type          SessionEventType `json:"type"`
	SessionID     uuid.UUID        `json:"session_id"`
	PaperID       uuid.UUID        `json:"paper_id"`
	LearnerID     string           `json:"learner_id"`
	AnsweredCount int              `json:"answered_count"`
	TotalCount    int              `json:"total_count"`
	EndReason     *EndReason       `json:"end_reason,omitempty"`
	Score         *float64         `json:"score,omitempty"`
	At            time.Time        `json:"at"`
}

// NewSessionEvent builds an event reflecting the session's current state.
func NewSessionEvent(t SessionEventType, s *ExamSession, at time.Time) SessionEvent {
	return SessionEvent{
		Type:          t,
		SessionID:     s.ID,
		PaperID:       s.PaperID,
		LearnerID:     s.LearnerID,
		AnsweredCount: len(s.Answers),
		TotalCount:    len(s.Paper.Questions),
		EndReason:     s.EndReason,
		At:            at,
	}
}
