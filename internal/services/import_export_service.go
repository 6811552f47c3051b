package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ielts-practice/reading-service/internal/events"
	"github.com/ielts-practice/reading-service/internal/models"
	"github.com/ielts-practice/reading-service/internal/repositories"
	"github.com/ielts-practice/reading-service/internal/validator"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// listSeparator joins multi-value cells (options, acceptable answers) in
// import and export files. Pipe rather than comma, since comma is already
// the alternative separator inside one-word-each answers.
const listSeparator = "|"

type importExportService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	ops       *ServiceLogger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewImportExportService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) ImportExportService {
	return &importExportService{
		repo:      repo,
		logger:    logger,
		ops:       NewServiceLogger(logger, LogConfig{Service: "reading-service", Component: "import_export"}),
		validator: validator,
		publisher: publisher,
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportQuestionsFromFile(ctx context.Context, file multipart.File, filename string, creatorID string) (*models.ImportSummary, error) {
	s.logger.Info("Starting file import", "filename", filename, "creator_id", creatorID)
	op := s.ops.WithOperation(ctx, "import_questions", creatorID)

	var summary *models.ImportSummary
	var err error

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv":
		summary, err = s.ImportQuestionsFromCSV(ctx, file, creatorID)
	case ".xlsx", ".xls":
		summary, err = s.ImportQuestionsFromExcel(ctx, file, creatorID)
	default:
		err = NewValidationError("file", "unsupported file format", ext)
	}

	op.LogResult(0, "question", err)
	return summary, err
}

func (s *importExportService) ImportQuestionsFromCSV(ctx context.Context, reader io.Reader, creatorID string) (*models.ImportSummary, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	return s.importRows(ctx, records, creatorID)
}

func (s *importExportService) ImportQuestionsFromExcel(ctx context.Context, reader io.Reader, creatorID string) (*models.ImportSummary, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}

	return s.importRows(ctx, rows, creatorID)
}

// importRows parses, validates, and saves every data row. Rows that fail
// the authoring gate are reported in the summary; valid rows are saved in
// one transaction so a database failure never leaves a partial import.
func (s *importExportService) importRows(ctx context.Context, rows [][]string, creatorID string) (*models.ImportSummary, error) {
	start := time.Now()

	if len(rows) < 2 {
		return nil, NewValidationError("file", "file must have a header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}

	for _, col := range []string{"passage_id", "kind", "text"} {
		if _, exists := headerMap[col]; !exists {
			return nil, NewValidationError("headers", fmt.Sprintf("missing required column: %s", col), col)
		}
	}

	summary := &models.ImportSummary{
		TotalRows: len(rows) - 1,
	}
	passageCache := make(map[uint]bool)

	var questions []*models.Question
	for rowIndex, row := range rows[1:] {
		rowNum := rowIndex + 2
		summary.ProcessedRows++

		question, rowErrors := s.parseRow(row, headerMap, rowNum, creatorID)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
			continue
		}

		exists, err := s.passageExists(ctx, passageCache, question.PassageID)
		if err != nil {
			return nil, err
		}
		if !exists {
			summary.Errors = append(summary.Errors, models.ImportValidationError{
				Row: rowNum, Column: "passage_id", Message: "passage does not exist",
				Value: strconv.FormatUint(uint64(question.PassageID), 10),
			})
			summary.ErrorCount++
			continue
		}

		if errs := s.validateImported(question, rowNum); len(errs) > 0 {
			summary.Errors = append(summary.Errors, errs...)
			summary.ErrorCount++
			continue
		}

		questions = append(questions, question)
		summary.SuccessCount++
	}

	if len(questions) > 0 {
		err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			return tx.Question().CreateBatch(ctx, questions)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to save imported questions: %w", err)
		}
		for _, q := range questions {
			summary.CreatedQuestions = append(summary.CreatedQuestions, q.ID)
		}
	}

	summary.ProcessingTime = time.Since(start)

	s.publishEvent(ctx, events.NewQuestionsImportedEvent(events.QuestionsImportedEvent{
		CreatorID:    creatorID,
		SuccessCount: summary.SuccessCount,
		ErrorCount:   summary.ErrorCount,
	}))

	s.logger.Info("Import completed",
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"error_count", summary.ErrorCount)

	return summary, nil
}

// parseRow maps one file row onto a question. The kind decides which
// columns carry the answer material; correct_answer holds either a plain
// value (choice, true/false/not-given) or a JSON document (indexed blanks,
// matching).
func (s *importExportService) parseRow(record []string, headerMap map[string]int, rowNum int, creatorID string) (*models.Question, []models.ImportValidationError) {
	var rowErrors []models.ImportValidationError

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}
	addError := func(column, message, value string) {
		rowErrors = append(rowErrors, models.ImportValidationError{
			Row: rowNum, Column: column, Message: message, Value: value,
		})
	}

	passageIDStr := getColumn("passage_id")
	passageID, err := strconv.ParseUint(passageIDStr, 10, 32)
	if err != nil || passageID == 0 {
		addError("passage_id", "must be a positive integer", passageIDStr)
	}

	kindStr := strings.ToLower(getColumn("kind"))
	kind := models.QuestionKind(kindStr)
	if !validKind(kind) {
		addError("kind", "unknown question kind", kindStr)
	}

	text := getColumn("text")
	if text == "" {
		addError("text", "required field", text)
	}

	score := 1.0
	if scoreStr := getColumn("score"); scoreStr != "" {
		if v, err := strconv.ParseFloat(scoreStr, 64); err == nil && v > 0 {
			score = v
		} else {
			addError("score", "must be a positive number", scoreStr)
		}
	}

	order := rowNum - 1
	if orderStr := getColumn("order"); orderStr != "" {
		if v, err := strconv.Atoi(orderStr); err == nil && v > 0 {
			order = v
		} else {
			addError("order", "must be a positive integer", orderStr)
		}
	}

	if len(rowErrors) > 0 {
		return nil, rowErrors
	}

	question := &models.Question{
		PassageID: uint(passageID),
		Title:     getColumn("title"),
		Kind:      kind,
		Text:      text,
		Score:     score,
		Order:     order,
		CreatedBy: creatorID,
	}

	correctAnswer := getColumn("correct_answer")

	switch kind {
	case models.SingleChoice:
		question.Options = datatypes.NewJSONSlice(splitList(getColumn("options")))
		question.CorrectAnswer = mustJSONString(correctAnswer)

	case models.MultiChoice:
		question.Options = datatypes.NewJSONSlice(splitList(getColumn("options")))
		question.CorrectAnswer = mustJSONValue(splitList(correctAnswer))

	case models.TrueFalseNotGiven:
		question.CorrectAnswer = mustJSONString(strings.ToLower(correctAnswer))

	case models.FillBlankSimple, models.ShortAnswer:
		answers := splitList(getColumn("acceptable_answers"))
		if len(answers) == 0 && correctAnswer != "" {
			answers = []string{correctAnswer}
		}
		question.AcceptableAnswers = datatypes.NewJSONSlice(answers)
		if limitStr := getColumn("word_limit"); limitStr != "" {
			if v, err := strconv.Atoi(limitStr); err == nil && v > 0 {
				question.WordLimit = v
			}
		}

	case models.FillBlankMultiple:
		question.BlankOptions = datatypes.NewJSONSlice(splitList(getColumn("blank_options")))
		if !json.Valid([]byte(correctAnswer)) {
			addError("correct_answer", "must be a JSON object mapping blank numbers to option indices", correctAnswer)
			return nil, rowErrors
		}
		question.CorrectAnswer = datatypes.JSON(correctAnswer)

	case models.FillBlankOneWordEach:
		question.OneWordAnswers = datatypes.NewJSONSlice(splitList(getColumn("one_word_answers")))
		question.WordLimits = datatypes.NewJSONSlice(splitInts(getColumn("word_limits")))

	case models.Matching:
		question.MatchingOptions = datatypes.NewJSONType(models.MatchingOptions{
			Headings:   splitList(getColumn("matching_headings")),
			Paragraphs: splitList(getColumn("matching_paragraphs")),
		})
		if !json.Valid([]byte(correctAnswer)) {
			addError("correct_answer", "must be a JSON matching answer with type and selections", correctAnswer)
			return nil, rowErrors
		}
		question.CorrectAnswer = datatypes.JSON(correctAnswer)
	}

	return question, nil
}

// validateImported runs the same authoring gate a created question goes
// through, with errors rewritten as per-row import errors.
func (s *importExportService) validateImported(question *models.Question, rowNum int) []models.ImportValidationError {
	var importErrors []models.ImportValidationError

	if err := question.BuildCorrectAnswer(); err != nil {
		importErrors = append(importErrors, models.ImportValidationError{
			Row: rowNum, Column: "correct_answer", Message: err.Error(),
		})
		return importErrors
	}

	for _, ve := range s.validator.Question().ValidateQuestion(question) {
		importErrors = append(importErrors, models.ImportValidationError{
			Row:     rowNum,
			Column:  ve.Field,
			Message: ve.Message,
			Value:   fmt.Sprintf("%v", ve.Value),
		})
	}
	return importErrors
}

func (s *importExportService) passageExists(ctx context.Context, cache map[uint]bool, id uint) (bool, error) {
	if exists, ok := cache[id]; ok {
		return exists, nil
	}
	_, err := s.repo.Passage().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cache[id] = false
			return false, nil
		}
		return false, fmt.Errorf("failed to check passage %d: %w", id, err)
	}
	cache[id] = true
	return true, nil
}

// ===== EXPORT OPERATIONS =====

var exportHeaders = []string{
	"passage_id", "kind", "title", "text", "options", "acceptable_answers",
	"blank_options", "one_word_answers", "word_limits", "matching_headings",
	"matching_paragraphs", "correct_answer", "word_limit", "score", "order",
}

func (s *importExportService) ExportQuestionsToCSV(ctx context.Context, questionIDs []uint) ([]byte, error) {
	questions, err := s.repo.Question().GetByIDs(ctx, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, question := range questions {
		if err := writer.Write(questionToRow(question)); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func (s *importExportService) ExportQuestionsToExcel(ctx context.Context, questionIDs []uint) ([]byte, error) {
	questions, err := s.repo.Question().GetByIDs(ctx, questionIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Questions"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, question := range questions {
		for colIndex, value := range questionToRow(question) {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportTestResults writes every attempt on the test, with scores and
// IELTS bands, to an Excel workbook. Only the test's creator may export.
func (s *importExportService) ExportTestResults(ctx context.Context, testID uint, userID string) (_ []byte, err error) {
	op := s.ops.WithOperation(ctx, "export_test_results", userID)
	defer func() { op.LogResult(testID, "test", err) }()

	test, err := s.repo.Test().GetByID(ctx, testID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}
	if test.CreatedBy != userID {
		return nil, NewPermissionError(userID, testID, "test", "export_results", "not the test creator")
	}

	attempts, _, err := s.repo.Attempt().List(ctx, repositories.AttemptFilters{
		TestID:    &testID,
		SortBy:    "started_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get test attempts: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "Results"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Attempt ID", "User ID", "Status", "Started At", "Completed At",
		"Score", "Total Possible", "Percentage", "IELTS Band", "Score /40",
		"Time Spent (minutes)",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		completedAt := ""
		if attempt.CompletedAt != nil {
			completedAt = attempt.CompletedAt.Format("2006-01-02 15:04:05")
		}

		row := []interface{}{
			attempt.ID,
			attempt.UserID,
			string(attempt.Status),
			attempt.StartedAt.Format("2006-01-02 15:04:05"),
			completedAt,
			attempt.Score,
			attempt.TotalPossibleScore,
			attempt.PercentageScore,
			attempt.IELTSScore,
			attempt.IELTSScore40,
			attempt.TimeSpentSeconds / 60,
		}
		for colIndex, value := range row {
			cell, _ := excelize.CoordinatesToCellName(colIndex+1, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return buf.Bytes(), nil
}

// ===== HELPER FUNCTIONS =====

func questionToRow(q *models.Question) []string {
	matching := q.MatchingOptions.Data()
	return []string{
		strconv.FormatUint(uint64(q.PassageID), 10),
		string(q.Kind),
		q.Title,
		q.Text,
		joinList(q.Options),
		joinList(q.AcceptableAnswers),
		joinList(q.BlankOptions),
		joinList(q.OneWordAnswers),
		joinInts(q.WordLimits),
		joinList(matching.Headings),
		joinList(matching.Paragraphs),
		string(q.CorrectAnswer),
		strconv.Itoa(q.WordLimit),
		strconv.FormatFloat(q.Score, 'f', -1, 64),
		strconv.Itoa(q.Order),
	}
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, listSeparator)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}

func splitInts(value string) []int {
	var result []int
	for _, p := range splitList(value) {
		if v, err := strconv.Atoi(p); err == nil {
			result = append(result, v)
		}
	}
	return result
}

func joinList(values []string) string {
	return strings.Join(values, listSeparator)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, listSeparator)
}

func validKind(kind models.QuestionKind) bool {
	for _, k := range models.AllQuestionKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func mustJSONString(value string) datatypes.JSON {
	b, _ := json.Marshal(value)
	return datatypes.JSON(b)
}

func mustJSONValue(value interface{}) datatypes.JSON {
	b, _ := json.Marshal(value)
	return datatypes.JSON(b)
}

func (s *importExportService) publishEvent(ctx context.Context, event *events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "error", err)
	}
}
