package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/repositories"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

type InviteHandler struct {
	BaseHandler
	inviteService services.InviteService
}

func NewInviteHandler(inviteService services.InviteService, logger utils.Logger) *InviteHandler {
	return &InviteHandler{
		BaseHandler:   NewBaseHandler(logger),
		inviteService: inviteService,
	}
}

// IssueInvite emails one invite link. A failed email still answers 202 with
// the stored invite so the owner can resend.
// @Summary Issue invite
// @Tags invites
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param invite body models.IssueInviteRequest true "Recipient"
// @Success 201 {object} models.TestInvite
// @Success 202 {object} SuccessResponse "Invite stored, email not delivered"
// @Failure 409 {object} ErrorResponse "Weekly invite quota reached"
// @Router /tests/{id}/invites [post]
func (h *InviteHandler) IssueInvite(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	var req models.IssueInviteRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Issuing invite", "test_id", testID)

	invite, err := h.inviteService.IssueInvite(c.Request.Context(), testID, req.Email, userID)
	if err != nil {
		if invite != nil && errors.Is(err, services.ErrEmailDelivery) {
			h.log(c).Warn("Invite stored but email failed", "test_id", testID, "invite_id", invite.ID, "error", err)
			c.JSON(http.StatusAccepted, SuccessResponse{
				Message: "Invite created but the email could not be delivered",
				Data:    invite,
			})
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invite)
}

// IssueInvites handles a batch; per-address failures are reported, not fatal
// @Summary Issue invites (batch)
// @Tags invites
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param invites body models.IssueInvitesRequest true "Recipients"
// @Success 200 {object} models.IssueInvitesResponse
// @Router /tests/{id}/invites/batch [post]
func (h *InviteHandler) IssueInvites(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	var req models.IssueInvitesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Issuing invites", "test_id", testID, "count", len(req.Emails))

	resp, err := h.inviteService.IssueInvites(c.Request.Context(), testID, req.Emails, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List invites
// @Tags invites
// @Param id path uint true "Test ID"
// @Param used query bool false "Used filter"
// @Param email query string false "Email filter"
// @Success 200 {object} PaginatedResponse
// @Router /tests/{id}/invites [get]
func (h *InviteHandler) ListInvites(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	page, size := h.parsePage(c)
	filters := repositories.InviteFilters{
		Used:      h.parseBoolQuery(c, "used"),
		Email:     strings.ToLower(strings.TrimSpace(c.Query("email"))),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
		Limit:     size,
		Offset:    (page - 1) * size,
	}

	invites, total, err := h.inviteService.ListInvites(c.Request.Context(), testID, userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaginatedResponse{Items: invites, Total: total, Page: page, Size: size})
}
