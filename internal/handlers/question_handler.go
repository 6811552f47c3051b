package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
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

// CreateQuestion creates a new question
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	h.LogRequest(c, "Creating question")

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	question, err := h.questionService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, question)
}

// GetQuestion retrieves a question by ID
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	question, err := h.questionService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// UpdateQuestion replaces an existing question's authored fields
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating question", "question_id", id)

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// DeleteQuestion deletes a question not referenced by any test
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Question deleted"})
}

// ListQuestions lists questions with filters and pagination
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	limit, offset := h.parsePagination(c)

	filters := repositories.QuestionFilters{
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if kind := c.Query("kind"); kind != "" {
		qKind := models.QuestionKind(kind)
		filters.Kind = &qKind
	}
	if passageID := h.parseIntQuery(c, "passage_id", 0); passageID > 0 {
		pid := uint(passageID)
		filters.PassageID = &pid
	}
	if creatorID := c.Query("creator_id"); creatorID != "" {
		filters.CreatedBy = &creatorID
	}

	questions, total, err := h.questionService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: questions, Total: total})
}

// GetKindCounts reports how many questions exist per kind
func (h *QuestionHandler) GetKindCounts(c *gin.Context) {
	counts, err := h.questionService.KindCounts(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, counts)
}

// GetQuestionsByPassage lists every question attached to a passage
func (h *QuestionHandler) GetQuestionsByPassage(c *gin.Context) {
	passageID := h.parseIDParam(c, "passage_id")
	if passageID == 0 {
		return
	}

	questions, err := h.questionService.GetByPassage(c.Request.Context(), passageID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, questions)
}
