package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ielts-practice/reading-service/internal/services"
	"github.com/ielts-practice/reading-service/internal/utils"
)

type ImportExportHandler struct {
	BaseHandler
	importExportService services.ImportExportService
}

func NewImportExportHandler(importExportService services.ImportExportService, logger utils.Logger) *ImportExportHandler {
	return &ImportExportHandler{
		BaseHandler:         NewBaseHandler(logger),
		importExportService: importExportService,
	}
}

// ImportQuestions imports questions from an uploaded CSV or Excel file
func (h *ImportExportHandler) ImportQuestions(c *gin.Context) {
	h.LogRequest(c, "Importing questions")

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	summary, err := h.importExportService.ImportQuestionsFromFile(c.Request.Context(), file, header.Filename, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ExportQuestions exports the requested questions as CSV or Excel
func (h *ImportExportHandler) ExportQuestions(c *gin.Context) {
	h.LogRequest(c, "Exporting questions")

	ids, err := parseIDList(c.Query("ids"))
	if err != nil || len(ids) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid ids parameter",
			Details: "comma-separated question IDs required",
		})
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	switch format {
	case "csv":
		data, err := h.importExportService.ExportQuestionsToCSV(c.Request.Context(), ids)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="questions.csv"`)
		c.Data(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := h.importExportService.ExportQuestionsToExcel(c.Request.Context(), ids)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="questions.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
			Details: format,
		})
	}
}

// ExportTestResults exports every attempt on a test as an Excel workbook
func (h *ImportExportHandler) ExportTestResults(c *gin.Context) {
	testID := h.parseIDParam(c, "id")
	if testID == 0 {
		return
	}

	h.LogRequest(c, "Exporting test results", "test_id", testID)

	userID := h.requireUserID(c)
	if userID == "" {
		return
	}

	data, err := h.importExportService.ExportTestResults(c.Request.Context(), testID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="test_results.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseIDList(value string) ([]uint, error) {
	if value == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ids := make([]uint, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}
