package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

// AttemptHandler serves both sides of an attempt: the owner's read-only view
// and the public, token-authorized take flow.
type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// ===== OWNER =====

// @Summary List attempts of a test
// @Tags attempts
// @Param id path uint true "Test ID"
// @Param completed query bool false "Completed filter"
// @Param email query string false "Student email filter"
// @Success 200 {object} PaginatedResponse
// @Router /tests/{id}/attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	page, size := h.parsePage(c)
	filters := repositories.AttemptFilters{
		Completed: h.parseBoolQuery(c, "completed"),
		Email:     strings.ToLower(strings.TrimSpace(c.Query("email"))),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}

	h.LogRequest(c, "Listing attempts", "test_id", testID)

	attempts, total, err := h.attemptService.List(c.Request.Context(), testID, userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Items: attempts, Total: total, Page: page, Size: size})
}

// GetAttempt returns one attempt with its graded answers
// @Summary Get attempt
// @Tags attempts
// @Param id path uint true "Attempt ID"
// @Success 200 {object} models.TestAttempt
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.Get(c.Request.Context(), attemptID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// ===== TAKE (public) =====

// Redeem exchanges an unused invite token for a new attempt
// @Summary Redeem invite
// @Tags take
// @Accept json
// @Produce json
// @Param redeem body models.RedeemRequest true "Token and student name"
// @Success 201 {object} models.TestAttempt
// @Failure 403 {object} ErrorResponse "Unknown or used token"
// @Failure 409 {object} ErrorResponse "Test is locked"
// @Router /take/redeem [post]
func (h *AttemptHandler) Redeem(c *gin.Context) {
	var req models.RedeemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Redeeming invite")

	attempt, err := h.attemptService.Redeem(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetSession returns the questions to answer, without answer keys
// @Summary Get attempt session
// @Tags take
// @Param id path uint true "Attempt ID"
// @Param token query string true "Invite token"
// @Success 200 {object} models.AttemptSession
// @Router /take/attempts/{id} [get]
func (h *AttemptHandler) GetSession(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "token is required"})
		return
	}

	session, err := h.attemptService.GetSession(c.Request.Context(), attemptID, token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// Submit grades the answers; an attempt can be submitted once
// @Summary Submit attempt
// @Tags take
// @Accept json
// @Produce json
// @Param id path uint true "Attempt ID"
// @Param submit body models.SubmitRequest true "Token and answers"
// @Success 200 {object} models.SubmitResult
// @Failure 409 {object} ErrorResponse "Already submitted"
// @Router /take/attempts/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	attemptID := h.parseIDParam(c, "id")
	if attemptID == 0 {
		return
	}
	var req models.SubmitRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", attemptID, "answers", len(req.Answers))

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
