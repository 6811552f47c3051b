package models

import "time"

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type ImportSummary struct {
	TotalRows        int                     `json:"total_rows"`
	ProcessedRows    int                     `json:"processed_rows"`
	SuccessCount     int                     `json:"success_count"`
	ErrorCount       int                     `json:"error_count"`
	CreatedQuestions []uint                  `json:"created_questions"`
	Errors           []ImportValidationError `json:"errors"`
	ProcessingTime   time.Duration           `json:"processing_time"`
}

type ExportRequest struct {
	TestID        *uint          `json:"test_id"`
	Format        string         `json:"format" validate:"oneof=xlsx csv"`
	IncludeScores bool           `json:"include_scores"`
	QuestionKinds []QuestionKind `json:"question_kinds"`
	DateFrom      *time.Time     `json:"date_from"`
	DateTo        *time.Time     `json:"date_to"`
}
