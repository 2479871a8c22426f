package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessCode maps an opaque code to a paper and its time limit.
type AccessCode struct {
	Code           string        `json:"code"`
	PaperID        uuid.UUID     `json:"paper_id"`
	TimeLimit      time.Duration `json:"time_limit"`
	PassphraseHash string        `json:"-"`
	ValidUntil     *time.Time    `json:"valid_until,omitempty"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
}

// StartParams are the inputs needed to start a session.
type StartParams struct {
	PaperID   uuid.UUID
	TimeLimit time.Duration
	Mode      SessionMode
}

// IssueAccessCodeRequest is the payload for issuing an access code.
type IssueAccessCodeRequest struct {
	TimeLimitMinutes int        `json:"time_limit_minutes" binding:"required,min=1,max=480"`
	Passphrase       string     `json:"passphrase" binding:"omitempty,min=4,max=72"`
	ValidUntil       *time.Time `json:"valid_until" binding:"omitempty"`
}
