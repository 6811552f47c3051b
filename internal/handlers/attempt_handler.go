package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
)

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

// StartAttempt starts a new attempt or resumes the user's open one
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	h.LogRequest(c, "Starting attempt")

	var req services.StartAttemptRequest
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

	attempt, err := h.attemptService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attempt)
}

// GetAttempt retrieves one of the user's attempts
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// SubmitAttempt grades the submitted answers and completes the attempt
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Submitting attempt", "attempt_id", id)

	var req services.SubmitAttemptRequest
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

	result, err := h.attemptService.Submit(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SubmitGuestAttempt grades a submission without authentication or
// persistence. The route is mounted outside the auth middleware.
func (h *AttemptHandler) SubmitGuestAttempt(c *gin.Context) {
	h.LogRequest(c, "Grading guest submission")

	var req services.GuestSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	result, err := h.attemptService.SubmitGuest(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AbandonAttempt marks an in-progress attempt as abandoned
func (h *AttemptHandler) AbandonAttempt(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.attemptService.Abandon(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Attempt abandoned"})
}

// GetAttemptHistory lists the user's attempts with filters
func (h *AttemptHandler) GetAttemptHistory(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	limit, offset := h.parsePagination(c)
	filters := repositories.AttemptFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		filters.Status = models.AttemptStatus(status)
	}
	if testID := h.parseIntQuery(c, "test_id", 0); testID > 0 {
		tid := uint(testID)
		filters.TestID = &tid
	}
	if from := c.Query("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &t
		}
	}
	if to := c.Query("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &t
		}
	}

	attempts, total, err := h.attemptService.GetHistory(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: attempts, Total: total})
}

// GetUserStats returns the user's aggregate attempt statistics
func (h *AttemptHandler) GetUserStats(c *gin.Context) {
	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	stats, err := h.attemptService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// RecalculateScores regrades every completed attempt. Admin only.
func (h *AttemptHandler) RecalculateScores(c *gin.Context) {
	h.LogRequest(c, "Recalculating scores")

	batchSize := h.parseIntQuery(c, "batch_size", 100)

	result, err := h.attemptService.RecalculateScores(c.Request.Context(), batchSize)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
