package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestPassage is one passage slot inside a test, with the ordered question
// IDs it presents.
type TestPassage struct {
	PassageID   uint   `json:"passage_id"`
	QuestionIDs []uint `json:"question_ids"`
}

type Test struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	// Restricts the test to one question kind; empty means all kinds.
	QuestionKindFilter QuestionKind `json:"question_kind_filter" gorm:"size:40" validate:"omitempty,question_kind"`

	// Time settings (minutes)
	TimeLimit        int  `json:"time_limit" gorm:"default:60" validate:"min=0,max=300"`
	AllowCustomTime  bool `json:"allow_custom_time" gorm:"default:false"`
	AllowNoTimeLimit bool `json:"allow_no_time_limit" gorm:"default:false"`

	Passages datatypes.JSONSlice[TestPassage] `json:"passages" gorm:"type:jsonb"`

	// Sum of question scores; recomputed whenever the question set changes.
	TotalScore float64 `json:"total_score" gorm:"default:0"`
	Active     bool    `json:"active" gorm:"default:true;index"`

	CreatedBy string         `json:"created_by" gorm:"size:100;not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
	AttemptCount  int `json:"attempt_count" gorm:"-"`
}

func (Test) TableName() string {
	return "tests"
}

// QuestionIDs returns every question ID the test presents, in passage order.
func (t *Test) QuestionIDs() []uint {
	var ids []uint
	for _, p := range t.Passages {
		ids = append(ids, p.QuestionIDs...)
	}
	return ids
}

// TestPoolCriteria describes how to draw a random test from the pool when
// it has no fixed test list.
type TestPoolCriteria struct {
	PassageCount  int            `json:"passage_count"`
	QuestionCount int            `json:"question_count"`
	QuestionKinds []QuestionKind `json:"question_kinds"`
}

// TestPool groups tests for random selection.
type TestPool struct {
	ID       uint                                 `json:"id" gorm:"primaryKey"`
	Name     string                               `json:"name" gorm:"not null;size:200" validate:"required"`
	TestIDs  datatypes.JSONSlice[uint]            `json:"test_ids" gorm:"type:jsonb"`
	Criteria datatypes.JSONType[TestPoolCriteria] `json:"criteria" gorm:"type:jsonb"`

	CreatedBy string    `json:"created_by" gorm:"size:100;not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (TestPool) TableName() string {
	return "test_pools"
}
