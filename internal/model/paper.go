package model

import (
	"time"

	"github.com/google/uuid"
)

// PaperSpec declares the selection constraints for paper generation.
// Difficulty targets are given either as absolute counts or as ratios of Total.
// KnowledgePoints and TypeCounts are minimums over the selected questions.
type PaperSpec struct {
	Title            string
	SubjectID        string
	Total            int
	DifficultyCounts map[Difficulty]int
	DifficultyRatios map[Difficulty]float64
	KnowledgePoints  map[string]int
	TypeCounts       map[QuestionType]int
	Excluding        []uuid.UUID
	PointsByType     map[QuestionType]float64
	Seed             *uint64
}

// PaperQuestion is a frozen copy of a question taken at generation time.
type PaperQuestion struct {
	ID              uuid.UUID    `json:"id"`
	Type            QuestionType `json:"type"`
	Stem            string       `json:"stem"`
	Options         []Option     `json:"options"`
	AnswerKey       []string     `json:"answer_key"`
	Difficulty      Difficulty   `json:"difficulty"`
	KnowledgePoints []string     `json:"knowledge_points"`
	Points          float64      `json:"points"`
}

// HasOption reports whether id names one of the question's options.
func (q *PaperQuestion) HasOption(id string) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Paper is an immutable, generated question set.
type Paper struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	SubjectID string          `json:"subject_id"`
	Questions []PaperQuestion `json:"questions"`
	Seed      *uint64         `json:"seed,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Question returns the snapshot with the given id.
func (p *Paper) Question(id uuid.UUID) (*PaperQuestion, bool) {
	for i := range p.Questions {
		if p.Questions[i].ID == id {
			return &p.Questions[i], true
		}
	}
	return nil, false
}

// LearnerPaper is the paper payload sent to learners (no answer keys).
type LearnerPaper struct {
	PaperID   uuid.UUID         `json:"paper_id"`
	Title     string            `json:"title"`
	Questions []LearnerQuestion `json:"questions"`
}

// LearnerQuestion is a question without its answer key.
type LearnerQuestion struct {
	ID      uuid.UUID    `json:"id"`
	Type    QuestionType `json:"type"`
	Stem    string       `json:"stem"`
	Options []Option     `json:"options"`
	Points  float64      `json:"points"`
}

// ForLearner strips answer keys and classification metadata.
func (p *Paper) ForLearner() LearnerPaper {
	questions := make([]LearnerQuestion, len(p.Questions))
	for i, q := range p.Questions {
		questions[i] = LearnerQuestion{
			ID:      q.ID,
			Type:    q.Type,
			Stem:    q.Stem,
			Options: q.Options,
			Points:  q.Points,
		}
	}
	return LearnerPaper{
		PaperID:   p.ID,
		Title:     p.Title,
		Questions: questions,
	}
}

// GeneratePaperRequest is the payload for generating a paper.
type GeneratePaperRequest struct {
	Title            string             `json:"title" binding:"required,min=3,max=255"`
	SubjectID        string             `json:"subject_id" binding:"required,max=64"`
	Total            int                `json:"total" binding:"required,min=1,max=500"`
	DifficultyCounts map[string]int     `json:"difficulty_counts" binding:"omitempty,dive,keys,difficulty,endkeys,min=0"`
	DifficultyRatios map[string]float64 `json:"difficulty_ratios" binding:"omitempty,excluded_with=DifficultyCounts,dive,keys,difficulty,endkeys,min=0,max=1"`
	KnowledgePoints  map[string]int     `json:"knowledge_points" binding:"omitempty,dive,keys,min=1,max=64,endkeys,min=1"`
	TypeCounts       map[string]int     `json:"type_counts" binding:"omitempty,dive,keys,question_type,endkeys,min=0"`
	Excluding        []uuid.UUID        `json:"excluding" binding:"omitempty"`
	PointsByType     map[string]float64 `json:"points_by_type" binding:"omitempty,dive,keys,question_type,endkeys,gt=0"`
	Seed             *uint64            `json:"seed" binding:"omitempty"`
}

// ToSpec converts the request into a PaperSpec.
func (r *GeneratePaperRequest) ToSpec() PaperSpec {
	spec := PaperSpec{
		Title:     r.Title,
		SubjectID: r.SubjectID,
		Total:     r.Total,
		Excluding: r.Excluding,
		Seed:      r.Seed,
	}
	if len(r.DifficultyCounts) > 0 {
		spec.DifficultyCounts = make(map[Difficulty]int, len(r.DifficultyCounts))
		for k, v := range r.DifficultyCounts {
			spec.DifficultyCounts[Difficulty(k)] = v
		}
	}
	if len(r.DifficultyRatios) > 0 {
		spec.DifficultyRatios = make(map[Difficulty]float64, len(r.DifficultyRatios))
		for k, v := range r.DifficultyRatios {
			spec.DifficultyRatios[Difficulty(k)] = v
		}
	}
	if len(r.KnowledgePoints) > 0 {
		spec.KnowledgePoints = r.KnowledgePoints
	}
	if len(r.TypeCounts) > 0 {
		spec.TypeCounts = make(map[QuestionType]int, len(r.TypeCounts))
		for k, v := range r.TypeCounts {
			spec.TypeCounts[QuestionType(k)] = v
		}
	}
	if len(r.PointsByType) > 0 {
		spec.PointsByType = make(map[QuestionType]float64, len(r.PointsByType))
		for k, v := range r.PointsByType {
			spec.PointsByType[QuestionType(k)] = v
		}
	}
	return spec
}
