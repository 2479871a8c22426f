package service

import (
	"time"

	"github.com/stemsi/exstem-qbank/internal/model"
)

// GradingEngine scores a session against the answer keys frozen in its paper.
// It is pure: the same session and time always give the same result.
type GradingEngine struct{}

// NewGradingEngine creates a GradingEngine.
func NewGradingEngine() *GradingEngine {
	return &GradingEngine{}
}

// Grade builds one AnswerRecord per paper question, in paper order.
// Manually graded types are left pending and excluded from the totals.
func (e *GradingEngine) Grade(session *model.ExamSession, now time.Time) *model.GradeResult {
	result := &model.GradeResult{
		SessionID: session.ID,
		Records:   make([]model.AnswerRecord, 0, len(session.Paper.Questions)),
		GradedAt:  now,
	}

	for i := range session.Paper.Questions {
		q := &session.Paper.Questions[i]
		answer := append([]string{}, session.Answers[q.ID]...)

		rec := model.AnswerRecord{
			QuestionID: q.ID,
			Type:       q.Type,
			Answer:     answer,
			MaxPoints:  q.Points,
			Flagged:    session.Flagged[q.ID],
		}

		switch {
		case len(answer) == 0:
			// Unanswered is wrong, including for manual types: nothing to review.
			rec.IsCorrect = boolPtr(false)
			if q.Type.IsAutoGraded() {
				result.MaxScore += q.Points
			}
		case !q.Type.IsAutoGraded():
			result.PendingCount++
		default:
			ok := isCorrect(q, answer)
			rec.IsCorrect = boolPtr(ok)
			result.MaxScore += q.Points
			if ok {
				rec.Points = q.Points
				result.TotalScore += q.Points
				result.CorrectCount++
			}
		}

		result.Records = append(result.Records, rec)
	}

	return result
}

func isCorrect(q *model.PaperQuestion, answer []string) bool {
	if q.Type.IsSingleAnswer() {
		return len(answer) == 1 && len(q.AnswerKey) == 1 && answer[0] == q.AnswerKey[0]
	}
	return equalSets(answer, q.AnswerKey)
}

// equalSets compares as sets; duplicates on either side are ignored.
func equalSets(a, b []string) bool {
	left := make(map[string]struct{}, len(a))
	for _, v := range a {
		left[v] = struct{}{}
	}
	right := make(map[string]struct{}, len(b))
	for _, v := range b {
		right[v] = struct{}{}
	}
	if len(left) != len(right) {
		return false
	}
	for v := range left {
		if _, ok := right[v]; !ok {
			return false
		}
	}
	return true
}

func boolPtr(v bool) *bool {
	return &v
}
