package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidrizi23/TestPlatform2-sub000/internal/models"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/services"
	"github.com/aidrizi23/TestPlatform2-sub000/internal/utils"
)

type QuestionHandler struct {
	BaseHandler
	questionService services.QuestionService
}

func NewQuestionHandler(questionService services.QuestionService, logger utils.Logger) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:     NewBaseHandler(logger),
		questionService: questionService,
	}
}

// ListQuestions returns the test's questions in position order, answer keys included
// @Summary List questions
// @Tags questions
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {array} models.Question
// @Router /tests/{id}/questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	questions, err := h.questionService.List(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}

// AddQuestion appends a question; the payload is validated for its kind
// @Summary Add question
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param question body models.QuestionCreateRequest true "Question"
// @Success 201 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Tier question limit reached"
// @Router /tests/{id}/questions [post]
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	var req models.QuestionCreateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Adding question", "test_id", testID, "kind", req.Kind)

	question, err := h.questionService.Add(c.Request.Context(), testID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// @Summary Update question
// @Tags questions
// @Router /tests/{id}/questions/{question_id} [put]
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	var req models.QuestionUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Updating question", "test_id", testID, "question_id", questionID)

	question, err := h.questionService.Update(c.Request.Context(), testID, questionID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// @Summary Delete question
// @Tags questions
// @Router /tests/{id}/questions/{question_id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	questionID := h.parseIDParam(c, "question_id")
	if questionID == 0 {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Deleting question", "test_id", testID, "question_id", questionID)

	if err := h.questionService.Delete(c.Request.Context(), testID, questionID, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReorderQuestions sets positions from the order of question_ids
// @Summary Reorder questions
// @Tags questions
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param order body models.ReorderRequest true "Every question id of the test, in the new order"
// @Success 200 {array} models.Question
// @Router /tests/{id}/questions/reorder [post]
func (h *QuestionHandler) ReorderQuestions(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}
	var req models.ReorderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	h.LogRequest(c, "Reordering questions", "test_id", testID, "count", len(req.QuestionIDs))

	questions, err := h.questionService.Reorder(c.Request.Context(), testID, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}
