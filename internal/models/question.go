package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionKind string

const (
	SingleChoice         QuestionKind = "single_choice"
	MultiChoice          QuestionKind = "multi_choice"
	FillBlankSimple      QuestionKind = "fill_blank_simple"
	FillBlankMultiple    QuestionKind = "fill_blank_multiple"
	FillBlankOneWordEach QuestionKind = "fill_blank_one_word_each"
	Matching             QuestionKind = "matching"
	TrueFalseNotGiven    QuestionKind = "true_false_not_given"
	ShortAnswer          QuestionKind = "short_answer"
)

// TrueFalseNotGiven canonical answer tokens.
const (
	AnswerTrue     = "true"
	AnswerFalse    = "false"
	AnswerNotGiven = "not_given"
)

// MatchingNotUsed is the sentinel a matching position stores when a
// paragraph intentionally has no heading.
const MatchingNotUsed = "not_used"

type MatchingSubType string

const (
	MatchingOneToOne   MatchingSubType = "one_to_one"
	MatchingManyToOne  MatchingSubType = "many_to_one"
	MatchingNotAllUsed MatchingSubType = "not_all_used"
)

// MatchingOptions holds the two lists a matching question pairs up.
type MatchingOptions struct {
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
}

// MatchingAnswer is the stored correct-answer wrapper for matching
// questions. Type records which matching sub-type was authored; scoring
// only ever consumes Selections.
type MatchingAnswer struct {
	Type       MatchingSubType   `json:"type"`
	Selections map[string]string `json:"selections"`
}

type Question struct {
	ID        uint         `json:"id" gorm:"primaryKey"`
	PassageID uint         `json:"passage_id" gorm:"not null;index" validate:"required"`
	Title     string       `json:"title" gorm:"size:200"`
	Kind      QuestionKind `json:"kind" gorm:"not null;index" validate:"required,question_kind"`
	Text      string       `json:"text" gorm:"type:text;not null" validate:"required"`

	// Choice kinds only
	Options datatypes.JSONSlice[string] `json:"options" gorm:"type:jsonb"`

	// Fill-blank-simple and short-answer: acceptable literal answers
	AcceptableAnswers datatypes.JSONSlice[string] `json:"acceptable_answers" gorm:"type:jsonb"`

	// Fill-blank-multiple: the shared option list the blank indices point into
	BlankOptions datatypes.JSONSlice[string] `json:"blank_options" gorm:"type:jsonb"`

	// Fill-blank-one-word-each: expected word(s) per blank, each possibly a
	// comma-separated alternative list, with a per-blank word limit
	OneWordAnswers datatypes.JSONSlice[string] `json:"one_word_answers" gorm:"type:jsonb"`
	WordLimits     datatypes.JSONSlice[int]    `json:"word_limits" gorm:"type:jsonb"`
	BlankNumbers   datatypes.JSONSlice[int]    `json:"blank_numbers" gorm:"type:jsonb"`

	// Matching only
	MatchingOptions datatypes.JSONType[MatchingOptions] `json:"matching_options" gorm:"type:jsonb"`

	// Short-answer only
	WordLimit int `json:"word_limit"`

	// Canonical correct-answer representation, shape depends on Kind.
	// Built once at authoring time by BuildCorrectAnswer and validated by
	// the question validator; the scorer assumes it is well-formed.
	CorrectAnswer datatypes.JSON `json:"correct_answer" gorm:"type:jsonb;not null"`

	Score float64 `json:"score" gorm:"not null" validate:"min=0"`
	Order int     `json:"order" gorm:"not null" validate:"min=1"`

	CreatedBy string         `json:"created_by" gorm:"size:100;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Passage ReadingPassage `json:"-" gorm:"foreignKey:PassageID"`
}

func (Question) TableName() string {
	return "questions"
}

// BuildCorrectAnswer derives the canonical stored correct-answer
// representation from the kind-specific authored fields. It runs once at
// authoring time, before validation; the scorer reads only the result.
// Kinds whose canonical form is authored directly (choice, matching,
// true/false/not-given, indexed blanks) are left untouched.
func (q *Question) BuildCorrectAnswer() error {
	switch q.Kind {
	case FillBlankSimple, ShortAnswer:
		return q.encodeCorrectAnswer([]string(q.AcceptableAnswers))
	case FillBlankOneWordEach:
		return q.encodeCorrectAnswer([]string(q.OneWordAnswers))
	default:
		return nil
	}
}

func (q *Question) encodeCorrectAnswer(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode correct answer: %w", err)
	}
	q.CorrectAnswer = datatypes.JSON(b)
	return nil
}

// AllQuestionKinds lists every kind the scorer understands, in authoring
// display order.
func AllQuestionKinds() []QuestionKind {
	return []QuestionKind{
		SingleChoice,
		MultiChoice,
		FillBlankSimple,
		FillBlankMultiple,
		FillBlankOneWordEach,
		Matching,
		TrueFalseNotGiven,
		ShortAnswer,
	}
}

// IsChoiceKind reports whether the kind presents a fixed option list.
func (k QuestionKind) IsChoiceKind() bool {
	return k == SingleChoice || k == MultiChoice
}
