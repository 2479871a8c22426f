package model

import (
	"time"

	"github.com/google/uuid"
)

// AnswerRecord is the graded outcome of one question.
// IsCorrect is nil for questions awaiting manual review. Flagged carries the
// learner's mark-for-review as it stood when the session was sealed.
type AnswerRecord struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Type       QuestionType `json:"type"`
	Answer     []string     `json:"answer"`
	IsCorrect  *bool        `json:"is_correct"`
	Points     float64      `json:"points"`
	MaxPoints  float64      `json:"max_points"`
	Flagged    bool         `json:"flagged"`
}

// GradeResult is the terminal grading artifact of a session.
type GradeResult struct {
	SessionID    uuid.UUID      `json:"session_id"`
	Records      []AnswerRecord `json:"records"`
	TotalScore   float64        `json:"total_score"`
	MaxScore     float64        `json:"max_score"`
	CorrectCount int            `json:"correct_count"`
	PendingCount int            `json:"pending_count"`
	GradedAt     time.Time      `json:"graded_at"`
}

// Provisional reports whether manual review may still change the score.
func (r *GradeResult) Provisional() bool {
	return r.PendingCount > 0
}
