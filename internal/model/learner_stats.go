package model

import "time"

// LearnerStats aggregates a learner's graded attempts.
type LearnerStats struct {
	LearnerID        string     `json:"learner_id"`
	TotalAnswered    int        `json:"total_answered"`
	CorrectAnswers   int        `json:"correct_answers"`
	CurrentStreak    int        `json:"current_streak"`
	LastPracticeDate *time.Time `json:"last_practice_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}
