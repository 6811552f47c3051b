package models

import (
	"time"

	"gorm.io/gorm"
)

// ReadingPassage is a reading text that questions attach to.
type ReadingPassage struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	Title   string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Content string `json:"content" gorm:"type:text;not null" validate:"required"`

	CreatedBy string         `json:"created_by" gorm:"size:100;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question `json:"questions" gorm:"foreignKey:PassageID"`

	// Computed fields (not stored)
	QuestionCount int `json:"question_count" gorm:"-"`
}

func (ReadingPassage) TableName() string {
	return "reading_passages"
}
