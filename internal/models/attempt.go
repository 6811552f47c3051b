package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// AttemptAnswer is one graded answer inside an attempt. UserAnswer keeps
// the raw submitted value exactly as received; IsCorrect and Score are
// produced by the scoring engine and never hand-edited.
type AttemptAnswer struct {
	QuestionID uint           `json:"question_id"`
	UserAnswer datatypes.JSON `json:"user_answer"`
	IsCorrect  bool           `json:"is_correct"`
	Score      float64        `json:"score"`
}

// UserAttempt is one user's single pass at answering a test's questions.
// All score fields are derived from the per-answer results and recomputed
// whenever the answers change.
type UserAttempt struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"size:100;not null;index"`
	TestID uint   `json:"test_id" gorm:"not null;index"`

	Answers datatypes.JSONSlice[AttemptAnswer] `json:"answers" gorm:"type:jsonb"`

	Score              float64 `json:"score" gorm:"default:0"`
	TotalPossibleScore float64 `json:"total_possible_score" gorm:"default:0"`
	PercentageScore    float64 `json:"percentage_score" gorm:"default:0"`
	IELTSScore         float64 `json:"ielts_score" gorm:"default:0"`
	IELTSScore40       int     `json:"ielts_score_40" gorm:"default:0"`

	TimeSpentSeconds int           `json:"time_spent_seconds" gorm:"default:0"`
	Status           AttemptStatus `json:"status" gorm:"default:in_progress;index" validate:"omitempty,oneof=in_progress completed abandoned"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Test Test `json:"test" gorm:"foreignKey:TestID"`
}

func (UserAttempt) TableName() string {
	return "user_attempts"
}
