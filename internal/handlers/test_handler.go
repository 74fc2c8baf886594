package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

type TestHandler struct {
	BaseHandler
	testService services.TestService
}

func NewTestHandler(testService services.TestService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler: NewBaseHandler(logger),
		testService: testService,
	}
}

// CreateTest creates a draft test owned by the caller
// @Summary Create test
// @Tags tests
// @Accept json
// @Produce json
// @Param test body models.TestCreateRequest true "Test data"
// @Success 201 {object} models.Test
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Tier test quota reached"
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	var req models.TestCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Creating test", "owner_id", userID)

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest returns a test the caller owns
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.Test
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// ListTests lists the caller's tests
// @Summary List tests
// @Tags tests
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(20)
// @Param status query string false "Status filter"
// @Param category query string false "Category filter"
// @Param archived query bool false "Archived filter"
// @Param search query string false "Name search"
// @Success 200 {object} PaginatedResponse
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	page, size := h.parsePage(c)
	filters := repositories.TestFilters{
		Archived:  h.parseBoolQuery(c, "archived"),
		Search:    strings.TrimSpace(c.Query("search")),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}
	if status := c.Query("status"); status != "" {
		s := models.TestStatus(status)
		filters.Status = &s
	}
	if category := c.Query("category"); category != "" {
		filters.Category = &category
	}

	h.LogRequest(c, "Listing tests", "owner_id", userID, "page", page)

	tests, total, err := h.testService.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Items: tests, Total: total, Page: page, Size: size})
}

// UpdateTest applies a partial update
// @Summary Update test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param test body models.TestUpdateRequest true "Fields to change"
// @Success 200 {object} models.Test
// @Failure 409 {object} ErrorResponse "Test is locked or archived"
// @Router /tests/{id} [put]
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req models.TestUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Updating test", "test_id", id)

	test, err := h.testService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest removes a test that has no attempts
// @Summary Delete test
// @Tags tests
// @Param id path uint true "Test ID"
// @Success 204
// @Failure 409 {object} ErrorResponse "Test has attempts"
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	if err := h.testService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type lifecycleFunc func(ctx context.Context, id uint, userID string) (*models.Test, error)

// lifecycle runs one status change on the test in the path
func (h *TestHandler) lifecycle(action string, fn lifecycleFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := h.parseIDParam(c, "id")
		if id == 0 {
			return
		}
		userID := h.requireUserID(c)
		if userID == "" {
			return
		}

		h.LogRequest(c, "Changing test status", "test_id", id, "action", action)

		test, err := fn(c.Request.Context(), id, userID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, test)
	}
}

// PublishTest: Draft/Closed -> Active
// @Router /tests/{id}/publish [post]
func (h *TestHandler) PublishTest() gin.HandlerFunc {
	return h.lifecycle("publish", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Publish(ctx, id, userID)
	})
}

// @Router /tests/{id}/close [post]
func (h *TestHandler) CloseTest() gin.HandlerFunc {
	return h.lifecycle("close", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Close(ctx, id, userID)
	})
}

// @Router /tests/{id}/lock [post]
func (h *TestHandler) LockTest() gin.HandlerFunc {
	return h.lifecycle("lock", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Lock(ctx, id, userID)
	})
}

// @Router /tests/{id}/unlock [post]
func (h *TestHandler) UnlockTest() gin.HandlerFunc {
	return h.lifecycle("unlock", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Unlock(ctx, id, userID)
	})
}

// @Router /tests/{id}/archive [post]
func (h *TestHandler) ArchiveTest() gin.HandlerFunc {
	return h.lifecycle("archive", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Archive(ctx, id, userID)
	})
}

// @Router /tests/{id}/unarchive [post]
func (h *TestHandler) UnarchiveTest() gin.HandlerFunc {
	return h.lifecycle("unarchive", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Unarchive(ctx, id, userID)
	})
}

// @Router /tests/{id}/schedule [delete]
func (h *TestHandler) UnscheduleTest() gin.HandlerFunc {
	return h.lifecycle("unschedule", func(ctx context.Context, id uint, userID string) (*models.Test, error) {
		return h.testService.Unschedule(ctx, id, userID)
	})
}

// ScheduleTest sets the availability window
// @Summary Schedule test
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param schedule body models.ScheduleRequest true "Window"
// @Success 200 {object} models.Test
// @Failure 400 {object} ErrorResponse
// @Router /tests/{id}/schedule [put]
func (h *TestHandler) ScheduleTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	var req models.ScheduleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Scheduling test", "test_id", id, "start", req.Start, "end", req.End)

	test, err := h.testService.Schedule(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}
