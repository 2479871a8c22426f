package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-qbank/internal/response"
	"github.com/stemsi/exstem-qbank/internal/service"
)

// serviceErrors maps domain errors to their HTTP status and error code.
var serviceErrors = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	{service.ErrInvalidSpec, http.StatusBadRequest, response.ErrInvalidSpec},
	{service.ErrInsufficientPool, http.StatusUnprocessableEntity, response.ErrInsufficientPool},
	{service.ErrPaperNotFound, http.StatusNotFound, response.ErrPaperNotFound},
	{service.ErrAccessCodeInvalid, http.StatusForbidden, response.ErrAccessCodeInvalid},
	{service.ErrInvalidTimeLimit, http.StatusBadRequest, response.ErrInvalidTimeLimit},
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrSessionExpired, http.StatusGone, response.ErrSessionExpired},
	{service.ErrInvalidState, http.StatusConflict, response.ErrInvalidState},
	{service.ErrSessionBusy, http.StatusConflict, response.ErrSessionBusy},
	{service.ErrQuestionNotInPaper, http.StatusBadRequest, response.ErrQuestionNotInPaper},
	{service.ErrInvalidAnswer, http.StatusBadRequest, response.ErrInvalidAnswer},
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrResultNotFound},
}

// classify returns the status and code for err, defaulting to 500.
func classify(err error) (int, response.ErrCode) {
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, response.ErrInternal
}

// failService writes the error envelope for a service error. Unknown errors
// are logged and reported as internal; pool shortfalls carry their details.
func failService(c *gin.Context, log zerolog.Logger, err error) {
	status, code := classify(err)

	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str("request_id", response.RequestID(c)).
			Str("path", c.FullPath()).
			Msg("Request failed")
		response.Fail(c, status, code)
		return
	}

	var pool *service.InsufficientPoolError
	if errors.As(err, &pool) {
		response.FailWithDetails(c, status, code, pool)
		return
	}
	response.Fail(c, status, code)
}
