package model

import (
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionTypeShortAnswer  QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay        QuestionType = "ESSAY"
)

// QuestionTypes lists every supported type.
var QuestionTypes = []QuestionType{
	QuestionTypeSingleChoice,
	QuestionTypeMultiChoice,
	QuestionTypeTrueFalse,
	QuestionTypeShortAnswer,
	QuestionTypeEssay,
}

// IsKnown reports whether t is one of QuestionTypes.
func (t QuestionType) IsKnown() bool {
	for _, v := range QuestionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// IsAutoGraded reports whether the type can be scored from the answer key alone.
func (t QuestionType) IsAutoGraded() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeTrueFalse:
		return true
	default:
		return false
	}
}

// IsSingleAnswer reports whether the learner may pick at most one option.
func (t QuestionType) IsSingleAnswer() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeTrueFalse
}

// HasOptions reports whether answers must reference option ids.
func (t QuestionType) HasOptions() bool {
	return t.IsAutoGraded()
}

// Difficulty is an ordered difficulty level.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Difficulties lists every level in ascending rank.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Rank returns the position of d in the ordering, or -1 for unknown values.
func (d Difficulty) Rank() int {
	for i, v := range Difficulties {
		if v == d {
			return i
		}
	}
	return -1
}

// QuestionStatus is the authoring state of a question.
type QuestionStatus string

const (
	QuestionStatusDraft    QuestionStatus = "DRAFT"
	QuestionStatusApproved QuestionStatus = "APPROVED"
	QuestionStatusArchived QuestionStatus = "ARCHIVED"
)

// Option is a single selectable choice.
type Option struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Question represents a question-bank entry.
type Question struct {
	ID              uuid.UUID      `json:"id" yaml:"id"`
	SubjectID       string         `json:"subject_id" yaml:"subject_id"`
	Type            QuestionType   `json:"type" yaml:"type"`
	Stem            string         `json:"stem" yaml:"stem"`
	Options         []Option       `json:"options" yaml:"options"`
	AnswerKey       []string       `json:"answer_key" yaml:"answer_key"`
	Difficulty      Difficulty     `json:"difficulty" yaml:"difficulty"`
	KnowledgePoints []string       `json:"knowledge_points" yaml:"knowledge_points"`
	Status          QuestionStatus `json:"status" yaml:"status"`
	Analysis        string         `json:"analysis,omitempty" yaml:"analysis"`
	CreatedAt       time.Time      `json:"created_at" yaml:"-"`
}

// QuestionFilter narrows a question-bank query. Only APPROVED questions are returned.
type QuestionFilter struct {
	SubjectID       string
	Difficulty      *Difficulty
	KnowledgePoints []string
	Excluding       []uuid.UUID
}
