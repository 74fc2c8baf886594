package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse
type PaginatedResponse = models.PaginatedResponse

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BaseHandler carries what every handler shares: logging and error mapping
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.FromContext(c, h.logger)
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	h.log(c).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	h.log(c).Error(msg, append(args, "error", err)...)
}

// handleServiceError maps service errors onto HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrs services.ValidationErrors
	var ruleErr *services.BusinessRuleError
	var permErr *services.PermissionError

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrs,
		})

	case errors.As(err, &ruleErr):
		c.JSON(statusFor(ruleErr.Err), ErrorResponse{
			Message: ruleErr.Message,
			Details: gin.H{"rule": ruleErr.Rule, "context": ruleErr.Context},
		})

	case errors.As(err, &permErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: permErr.Reason,
		})

	default:
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.LogError(c, err, "Unexpected service error")
			c.JSON(status, ErrorResponse{Message: "Internal server error"})
			return
		}
		c.JSON(status, ErrorResponse{Message: err.Error()})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrTestNotFound),
		errors.Is(err, services.ErrQuestionNotFound),
		errors.Is(err, services.ErrAttemptNotFound),
		errors.Is(err, services.ErrInviteNotFound),
		errors.Is(err, services.ErrSubscriptionNotFound),
		repositories.IsNotFoundError(err):
		return http.StatusNotFound

	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrInvalidToken):
		return http.StatusForbidden

	case errors.Is(err, services.ErrTestLocked),
		errors.Is(err, services.ErrTestHasNoQuestions),
		errors.Is(err, services.ErrQuotaExceeded),
		errors.Is(err, services.ErrAttemptAlreadySubmitted),
		errors.Is(err, services.ErrInvalidStatusTransition),
		errors.Is(err, services.ErrTestHasAttempts),
		errors.Is(err, services.ErrTestArchived):
		return http.StatusConflict

	case errors.Is(err, services.ErrValidationFailed):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// parseIDParam writes a 400 and returns 0 when the path parameter is not a positive integer
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: c.Param(param),
		})
		return 0
	}
	return uint(id)
}

func (h *BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	value, err := strconv.Atoi(c.Query(param))
	if err != nil {
		return defaultValue
	}
	return value
}

// parsePage reads page/size and returns them with the matching limit and offset
func (h *BaseHandler) parsePage(c *gin.Context) (page, size int) {
	page = h.parseIntQuery(c, "page", 1)
	size = h.parseIntQuery(c, "size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		size = defaultPageSize
	}
	return page, size
}

func (h *BaseHandler) parseBoolQuery(c *gin.Context, param string) *bool {
	v, err := strconv.ParseBool(c.Query(param))
	if err != nil {
		return nil
	}
	return &v
}

// bindJSON writes a 400 and returns false when the body does not decode
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// requireUserID writes a 401 and returns "" when the auth middleware did not run
func (h *BaseHandler) requireUserID(c *gin.Context) string {
	userID, err := GetUserIDFromContext(c)
	if err != nil || userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return ""
	}
	return userID
}
