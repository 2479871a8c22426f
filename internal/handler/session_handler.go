package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
	"github.com/stemsi/exstem-qbank/internal/validator"
)

// SessionHandler handles learner-side exam session endpoints.
type SessionHandler struct {
	accessService  *service.AccessService
	sessionService *service.ExamSessionService
	statsService   *service.StatsService
	clock          service.Clock
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(
	accessService *service.AccessService,
	sessionService *service.ExamSessionService,
	statsService *service.StatsService,
	clock service.Clock,
	log zerolog.Logger,
) *SessionHandler {
	return &SessionHandler{
		accessService:  accessService,
		sessionService: sessionService,
		statsService:   statsService,
		clock:          clock,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// StartSession godoc
// POST /api/v1/learner/sessions
// Starts a session from an access code (EXAM) or a paper id (PRACTICE).
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	ctx := c.Request.Context()
	params, err := h.accessService.Resolve(ctx, req.AccessRef, req.Passphrase, time.Duration(req.TimeLimitMinutes)*time.Minute)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	session, err := h.sessionService.Start(ctx, claims.UserID, params)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session.ViewAt(session.StartedAt)})
}

// GetSession godoc
// GET /api/v1/learner/sessions/:session_id
// Returns the session view with its derived status and remaining time.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session.ViewAt(h.clock.Now())})
}

// SubmitAnswer godoc
// PUT /api/v1/learner/sessions/:session_id/answers/:question_id
// Overwrites the answer for one question. An empty answer list clears it.
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	remaining, err := h.sessionService.Answer(c.Request.Context(), session.ID, questionID, req.Answer, req.Flagged)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id":       questionID,
		"remaining_seconds": remaining.Seconds(),
	})
}

// SubmitSession godoc
// POST /api/v1/learner/sessions/:session_id/submit
// Seals and grades the session. Repeated calls return the same result.
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	session, ok := h.ownedSession(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Submit(c.Request.Context(), session.ID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result, "provisional": result.Provisional()})
}

// GetStats godoc
// GET /api/v1/learner/stats
func (h *SessionHandler) GetStats(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	stats, err := h.statsService.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// ownedSession loads the session named in the path and checks it belongs to
// the caller. Other learners' sessions are reported as not found.
func (h *SessionHandler) ownedSession(c *gin.Context) (*model.ExamSession, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		failService(c, h.log, err)
		return nil, false
	}
	if session.LearnerID != claims.UserID {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return nil, false
	}
	return session, true
}
