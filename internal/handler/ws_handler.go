package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/middleware"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
	ws "github.com/stemsi/exstem-qbank/internal/websocket"
)

// actionTimeout bounds one answer or submit, including waiting for the session lock.
const actionTimeout = 10 * time.Second

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams one exam session over a WebSocket.
type WSHandler struct {
	sessionService *service.ExamSessionService
	clock          service.Clock
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, clock service.Clock, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		clock:          clock,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/learner/sessions/:session_id/stream
// Upgrades to WebSocket for answering and submitting with immediate grading.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// SECURITY: Ownership is checked before upgrading so a foreign session id
	// gets a plain 404 instead of an open socket.
	session, err := h.sessionService.Get(c.Request.Context(), sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}
	if session.LearnerID != claims.UserID {
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("learner_id", claims.UserID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Learner connected")

	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: session.ViewAt(h.clock.Now())})

	for {
		var msg ws.RequestPayload
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, sessionID, &msg)
		case ws.ActionSubmit:
			if done := h.handleSubmit(conn, wsLog, sessionID); done {
				return
			}
		case ws.ActionPing:
			h.handlePing(conn, sessionID)
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
		}
	}
}

// handleAnswer stores one answer and acknowledges with the remaining time.
func (h *WSHandler) handleAnswer(conn *websocket.Conn, sessionID uuid.UUID, msg *ws.RequestPayload) {
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, string(response.ErrInvalidID), "invalid question_id format")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	remaining, err := h.sessionService.Answer(ctx, sessionID, questionID, msg.Answer, msg.Flagged)
	if err != nil {
		h.writeServiceError(conn, err)
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{
		Event:            ws.EventSaved,
		QuestionID:       questionID.String(),
		RemainingSeconds: remaining.Seconds(),
	})
}

// handleSubmit grades the session and reports whether the stream is finished.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID) bool {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	result, err := h.sessionService.Submit(ctx, sessionID)
	if err != nil {
		h.writeServiceError(conn, err)
		return false
	}

	wsLog.Info().
		Float64("score", result.TotalScore).
		Int("correct", result.CorrectCount).
		Int("pending", result.PendingCount).
		Msg("Session submitted over WebSocket")

	ws.WriteTyped(conn, ws.GradedResponse{Event: ws.EventGraded, Result: result})
	return true
}

// handlePing answers with the remaining time so clients can resync their countdown.
func (h *WSHandler) handlePing(conn *websocket.Conn, sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	session, err := h.sessionService.Get(ctx, sessionID)
	if err != nil {
		h.writeServiceError(conn, err)
		return
	}
	ws.WriteTyped(conn, ws.PongResponse{
		Event:            ws.EventPong,
		RemainingSeconds: session.Remaining(h.clock.Now()).Seconds(),
	})
}

func (h *WSHandler) writeServiceError(conn *websocket.Conn, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("WebSocket action failed")
	}
	if code == response.ErrSessionExpired {
		ws.WriteTyped(conn, ws.ErrorResponse{Event: ws.EventExpired, Code: string(code), Error: response.GetMessage(code)})
		return
	}
	ws.WriteError(conn, string(code), response.GetMessage(code))
}
