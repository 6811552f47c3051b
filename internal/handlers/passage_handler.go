package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
)

type PassageHandler struct {
	BaseHandler
	passageService services.PassageService
}

func NewPassageHandler(passageService services.PassageService, logger utils.Logger) *PassageHandler {
	return &PassageHandler{
		BaseHandler:    NewBaseHandler(logger),
		passageService: passageService,
	}
}

// CreatePassage creates a new reading passage
func (h *PassageHandler) CreatePassage(c *gin.Context) {
	h.LogRequest(c, "Creating passage")

	var req services.CreatePassageRequest
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

	passage, err := h.passageService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, passage)
}

// GetPassage retrieves a passage by ID
func (h *PassageHandler) GetPassage(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	passage, err := h.passageService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, passage)
}

// GetPassageWithQuestions retrieves a passage with its questions
func (h *PassageHandler) GetPassageWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	passage, err := h.passageService.GetByIDWithQuestions(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, passage)
}

// UpdatePassage updates an existing passage
func (h *PassageHandler) UpdatePassage(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating passage", "passage_id", id)

	var req services.UpdatePassageRequest
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

	passage, err := h.passageService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, passage)
}

// DeletePassage deletes a passage without questions
func (h *PassageHandler) DeletePassage(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting passage", "passage_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.passageService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Passage deleted"})
}

// ListPassages lists passages with filters and pagination
func (h *PassageHandler) ListPassages(c *gin.Context) {
	limit, offset := h.parsePagination(c)

	filters := repositories.PassageFilters{
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if creatorID := c.Query("creator_id"); creatorID != "" {
		filters.CreatedBy = &creatorID
	}

	passages, total, err := h.passageService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: passages, Total: total})
}
