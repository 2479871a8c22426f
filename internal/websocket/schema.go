package websocket

import "github.com/stemsi/exstem-qbank/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is every client message. Fields unused by an action are ignored.
type RequestPayload struct {
	Action     Action   `json:"action"`
	QuestionID string   `json:"question_id,omitempty"`
	Answer     []string `json:"answer,omitempty"`
	Flagged    bool     `json:"flagged,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventState   Event = "state"
	EventSaved   Event = "saved"
	EventGraded  Event = "graded"
	EventExpired Event = "expired"
	EventPong    Event = "pong"
)

// StateResponse is sent once on connect with the full session view.
type StateResponse struct {
	Event   Event             `json:"event"`
	Session model.SessionView `json:"session"`
}

// SavedResponse acknowledges a stored answer.
type SavedResponse struct {
	Event            Event   `json:"event"`
	QuestionID       string  `json:"question_id"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// GradedResponse carries the final result after submit.
type GradedResponse struct {
	Event  Event              `json:"event"`
	Result *model.GradeResult `json:"result"`
}

// ErrorResponse reports a rejected action. Code matches the REST error codes.
type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}
