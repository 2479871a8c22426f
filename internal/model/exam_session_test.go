package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestExamSession_StatusAndRemaining(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	s := &ExamSession{
		StartedAt: start,
		TimeLimit: time.Hour,
		Deadline:  start.Add(time.Hour),
		Status:    SessionStatusInProgress,
	}

	tests := []struct {
		name      string
		now       time.Time
		status    SessionStatus
		remaining time.Duration
	}{
		{"at start", start, SessionStatusInProgress, time.Hour},
		{"one second before", start.Add(time.Hour - time.Second), SessionStatusInProgress, time.Second},
		{"at deadline", start.Add(time.Hour), SessionStatusExpired, 0},
		{"after deadline", start.Add(2 * time.Hour), SessionStatusExpired, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.StatusAt(tt.now); got != tt.status {
				t.Errorf("StatusAt = %s, want %s", got, tt.status)
			}
			if got := s.Remaining(tt.now); got != tt.remaining {
				t.Errorf("Remaining = %v, want %v", got, tt.remaining)
			}
		})
	}

	s.Status = SessionStatusSubmitted
	if got := s.StatusAt(start.Add(2 * time.Hour)); got != SessionStatusSubmitted {
		t.Errorf("submitted session reported %s after deadline", got)
	}
	if got := s.Remaining(start); got != 0 {
		t.Errorf("submitted session has %v remaining", got)
	}
}

func TestExamSession_ViewHidesAnswerKeys(t *testing.T) {
	qid := uuid.New()
	s := &ExamSession{
		ID:       uuid.New(),
		Deadline: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Status:   SessionStatusInProgress,
		Paper: Paper{Questions: []PaperQuestion{{
			ID:        qid,
			Type:      QuestionTypeSingleChoice,
			Options:   []Option{{ID: "A"}, {ID: "B"}},
			AnswerKey: []string{"B"},
			Points:    2,
		}}},
		Answers: map[uuid.UUID][]string{qid: {"A"}},
	}

	view := s.ViewAt(time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC))
	if view.RemainingSeconds != 1800 {
		t.Errorf("remaining = %v, want 1800", view.RemainingSeconds)
	}
	if len(view.Paper.Questions) != 1 || view.Paper.Questions[0].Points != 2 {
		t.Fatalf("paper view = %+v", view.Paper)
	}

	view.Answers[qid][0] = "B"
	if s.Answers[qid][0] != "A" {
		t.Error("view shares answer storage with the session")
	}
}
