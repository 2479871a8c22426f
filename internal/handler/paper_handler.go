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

// PaperHandler handles author-side paper endpoints.
type PaperHandler struct {
	paperService   *service.PaperService
	accessService  *service.AccessService
	sessionService *service.ExamSessionService
	log            zerolog.Logger
}

// NewPaperHandler creates a new PaperHandler.
func NewPaperHandler(
	paperService *service.PaperService,
	accessService *service.AccessService,
	sessionService *service.ExamSessionService,
	log zerolog.Logger,
) *PaperHandler {
	return &PaperHandler{
		paperService:   paperService,
		accessService:  accessService,
		sessionService: sessionService,
		log:            log.With().Str("component", "paper_handler").Logger(),
	}
}

// GeneratePaper godoc
// POST /api/v1/author/papers/generate
// Generates and stores a paper from a selection spec. Responds 422 with the
// shortfall details when the question pool cannot satisfy the paper spec.
func (h *PaperHandler) GeneratePaper(c *gin.Context) {
	var req model.GeneratePaperRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	paper, err := h.paperService.Generate(c.Request.Context(), req.ToSpec())
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"paper": paper})
}

// GetPaper godoc
// GET /api/v1/author/papers/:paper_id
func (h *PaperHandler) GetPaper(c *gin.Context) {
	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	paper, err := h.paperService.Get(c.Request.Context(), paperID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"paper": paper})
}

// IssueAccessCode godoc
// POST /api/v1/author/papers/:paper_id/access-codes
// Issues an access code that starts EXAM sessions on the paper.
func (h *PaperHandler) IssueAccessCode(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	paperID, err := uuid.Parse(c.Param("paper_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.IssueAccessCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	code, err := h.accessService.Issue(
		c.Request.Context(),
		paperID,
		claims.UserID,
		time.Duration(req.TimeLimitMinutes)*time.Minute,
		req.Passphrase,
		req.ValidUntil,
	)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"access_code": code})
}

// GetSessionResult godoc
// GET /api/v1/author/sessions/:session_id/result
// Returns the stored grade result, including records pending manual review.
func (h *PaperHandler) GetSessionResult(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.Result(c.Request.Context(), sessionID)
	if err != nil {
		failService(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result, "provisional": result.Provisional()})
}
