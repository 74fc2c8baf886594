package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

type AnalyticsHandler struct {
	BaseHandler
	analyticsService services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService services.AnalyticsService, logger utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		BaseHandler:      NewBaseHandler(logger),
		analyticsService: analyticsService,
	}
}

// GetTestAnalytics returns score statistics and per-question difficulty
// @Summary Test analytics
// @Tags analytics
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} analytics.Report
// @Router /tests/{id}/analytics [get]
func (h *AnalyticsHandler) GetTestAnalytics(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	report, err := h.analyticsService.GetTestAnalytics(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
