package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
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

// CreateTest assembles a new test from passages and questions
func (h *TestHandler) CreateTest(c *gin.Context) {
	h.LogRequest(c, "Creating test")

	var req services.CreateTestRequest
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

	test, err := h.testService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, test)
}

// GetTest retrieves a test by ID
func (h *TestHandler) GetTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetTestWithQuestions retrieves a test with resolved passages and
// questions, correct answers stripped, for delivery to a test-taker.
func (h *TestHandler) GetTestWithQuestions(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.GetByIDWithQuestions(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// UpdateTest updates an existing test
func (h *TestHandler) UpdateTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Updating test", "test_id", id)

	var req services.UpdateTestRequest
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

	test, err := h.testService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// DeleteTest deletes a test without attempts
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test deleted"})
}

// ListTests lists tests with filters and pagination
func (h *TestHandler) ListTests(c *gin.Context) {
	limit, offset := h.parsePagination(c)

	filters := repositories.TestFilters{
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if active := c.Query("active"); active != "" {
		isActive := active == "true"
		filters.Active = &isActive
	}
	if kind := c.Query("kind"); kind != "" {
		qKind := models.QuestionKind(kind)
		filters.Kind = &qKind
	}
	if creatorID := c.Query("creator_id"); creatorID != "" {
		filters.CreatedBy = &creatorID
	}

	tests, total, err := h.testService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: tests, Total: total})
}

// SetActiveRequest toggles a test's availability
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetTestActive toggles whether a test accepts new attempts
func (h *TestHandler) SetTestActive(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req SetActiveRequest
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

	if err := h.testService.SetActive(c.Request.Context(), id, req.Active, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test updated"})
}

// GetTestStats returns aggregate attempt statistics for a test
func (h *TestHandler) GetTestStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	stats, err := h.testService.GetStats(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ===== POOLS =====

// CreateTestPool creates a pool of tests for random selection
func (h *TestHandler) CreateTestPool(c *gin.Context) {
	h.LogRequest(c, "Creating test pool")

	var req services.CreateTestPoolRequest
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

	pool, err := h.testService.CreatePool(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, pool)
}

// GetTestPool retrieves a pool by ID
func (h *TestHandler) GetTestPool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	pool, err := h.testService.GetPool(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pool)
}

// ListTestPools lists pools with pagination
func (h *TestHandler) ListTestPools(c *gin.Context) {
	limit, offset := h.parsePagination(c)

	pools, total, err := h.testService.ListPools(c.Request.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{Items: pools, Total: total})
}

// DeleteTestPool deletes a pool
func (h *TestHandler) DeleteTestPool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	if err := h.testService.DeletePool(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Test pool deleted"})
}

// PickFromTestPool returns a random active test from the pool
func (h *TestHandler) PickFromTestPool(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	test, err := h.testService.PickFromPool(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}
