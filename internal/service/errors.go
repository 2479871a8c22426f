package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/stemsi/exstem-qbank/internal/model"
)

// Domain Errors
var (
	ErrInvalidSpec        = errors.New("invalid paper spec")
	ErrInsufficientPool   = errors.New("question pool cannot satisfy paper spec")
	ErrPaperNotFound      = errors.New("paper not found")
	ErrSessionNotFound    = errors.New("exam session not found")
	ErrSessionExpired     = errors.New("exam session deadline has passed")
	ErrInvalidState       = errors.New("operation not valid for session status")
	ErrQuestionNotInPaper = errors.New("question is not part of the session paper")
	ErrInvalidAnswer      = errors.New("answer does not fit the question")
	ErrAccessCodeInvalid  = errors.New("access code is invalid or expired")
	ErrResultNotFound     = errors.New("grade result not found")
	ErrSessionBusy        = errors.New("exam session is being modified, retry")
	ErrInvalidTimeLimit   = errors.New("time limit must be positive and within the allowed maximum")
)

// InsufficientPoolError describes why generation could not be satisfied.
// It unwraps to ErrInsufficientPool.
type InsufficientPoolError struct {
	Requested            int                        `json:"requested"`
	Available            int                        `json:"available"`
	Shortfalls           map[model.Difficulty]int   `json:"shortfalls,omitempty"`
	UnmetKnowledgePoints map[string]int             `json:"unmet_knowledge_points,omitempty"`
	TypeShortfalls       map[model.QuestionType]int `json:"type_shortfalls,omitempty"`
}

func (e *InsufficientPoolError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: requested %d, eligible %d", ErrInsufficientPool, e.Requested, e.Available)

	if len(e.Shortfalls) > 0 {
		parts := make([]string, 0, len(e.Shortfalls))
		for _, d := range model.Difficulties {
			if n, ok := e.Shortfalls[d]; ok {
				parts = append(parts, fmt.Sprintf("%s short by %d", d, n))
			}
		}
		b.WriteString("; ")
		b.WriteString(strings.Join(parts, ", "))
	}

	if len(e.UnmetKnowledgePoints) > 0 {
		kps := make([]string, 0, len(e.UnmetKnowledgePoints))
		for kp := range e.UnmetKnowledgePoints {
			kps = append(kps, kp)
		}
		sort.Strings(kps)
		for i, kp := range kps {
			kps[i] = fmt.Sprintf("%s missing %d", kp, e.UnmetKnowledgePoints[kp])
		}
		b.WriteString("; knowledge points ")
		b.WriteString(strings.Join(kps, ", "))
	}

	if len(e.TypeShortfalls) > 0 {
		parts := make([]string, 0, len(e.TypeShortfalls))
		for _, t := range model.QuestionTypes {
			if n, ok := e.TypeShortfalls[t]; ok {
				parts = append(parts, fmt.Sprintf("%s missing %d", t, n))
			}
		}
		b.WriteString("; types ")
		b.WriteString(strings.Join(parts, ", "))
	}

	return b.String()
}

func (e *InsufficientPoolError) Unwrap() error {
	return ErrInsufficientPool
}
