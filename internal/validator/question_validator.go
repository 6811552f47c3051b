package validator

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ielts-practice/reading-service/internal/models"
)

// QuestionValidator enforces the kind-specific authoring rules a question
// must satisfy before it is saved. It assumes BuildCorrectAnswer already
// ran, so the canonical correct-answer representation is in place.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestion validates a complete question against its kind's rules.
func (v *QuestionValidator) ValidateQuestion(q *models.Question) ValidationErrors {
	var errs ValidationErrors

	if strings.TrimSpace(q.Text) == "" {
		errs = add(errs, "text", "question text is required", q.Text)
	}
	if q.Score <= 0 {
		errs = add(errs, "score", "score must be greater than zero", q.Score)
	}

	switch q.Kind {
	case models.SingleChoice:
		errs = append(errs, v.validateSingleChoice(q)...)
	case models.MultiChoice:
		errs = append(errs, v.validateMultiChoice(q)...)
	case models.FillBlankSimple:
		errs = append(errs, v.validateAcceptableAnswers(q, "acceptable_answers")...)
	case models.FillBlankMultiple:
		errs = append(errs, v.validateFillBlankMultiple(q)...)
	case models.FillBlankOneWordEach:
		errs = append(errs, v.validateFillBlankOneWordEach(q)...)
	case models.Matching:
		errs = append(errs, v.validateMatching(q)...)
	case models.TrueFalseNotGiven:
		errs = append(errs, v.validateTrueFalseNotGiven(q)...)
	case models.ShortAnswer:
		errs = append(errs, v.validateShortAnswer(q)...)
	default:
		errs = add(errs, "kind", fmt.Sprintf("unsupported question kind: %s", q.Kind), string(q.Kind))
	}

	return errs
}

// ValidateBatch validates multiple questions, prefixing each error field
// with the question's position in the batch.
func (v *QuestionValidator) ValidateBatch(questions []*models.Question) ValidationErrors {
	var errs ValidationErrors
	if len(questions) == 0 {
		return add(errs, "questions", "question batch cannot be empty", nil)
	}

	for i, q := range questions {
		for _, e := range v.ValidateQuestion(q) {
			e.Field = fmt.Sprintf("questions[%d].%s", i, e.Field)
			errs = append(errs, e)
		}
	}
	return errs
}

func (v *QuestionValidator) validateSingleChoice(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, v.validateOptions(q.Options)...)

	answer, ok := decodeString(q.CorrectAnswer)
	if !ok || strings.TrimSpace(answer) == "" {
		return add(errs, "correct_answer", "a correct option is required", nil)
	}
	if !optionExists(answer, q.Options) {
		errs = add(errs, "correct_answer", "correct answer does not match any option", answer)
	}
	return errs
}

func (v *QuestionValidator) validateMultiChoice(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	errs = append(errs, v.validateOptions(q.Options)...)

	answers, ok := decodeStrings(q.CorrectAnswer)
	if !ok || len(answers) == 0 {
		return add(errs, "correct_answer", "at least one correct option is required", nil)
	}

	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if seen[a] {
			errs = add(errs, "correct_answer", fmt.Sprintf("duplicate correct option: %s", a), a)
			continue
		}
		seen[a] = true
		if !optionExists(a, q.Options) {
			errs = add(errs, "correct_answer", fmt.Sprintf("correct answer does not match any option: %s", a), a)
		}
	}
	return errs
}

func (v *QuestionValidator) validateOptions(options []string) ValidationErrors {
	var errs ValidationErrors
	if len(options) < 2 {
		return add(errs, "options", "must have at least 2 options", len(options))
	}
	if len(options) > 10 {
		errs = add(errs, "options", "cannot have more than 10 options", len(options))
	}
	for i, opt := range options {
		if strings.TrimSpace(opt) == "" {
			errs = add(errs, "options", fmt.Sprintf("option %d cannot be empty", i+1), nil)
		}
	}
	return errs
}

// validateAcceptableAnswers covers the kinds graded by membership in a
// literal answer list.
func (v *QuestionValidator) validateAcceptableAnswers(q *models.Question, field string) ValidationErrors {
	var errs ValidationErrors
	answers, _ := decodeStrings(q.CorrectAnswer)
	if len(answers) == 0 {
		return add(errs, field, "at least one acceptable answer is required", nil)
	}
	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			errs = add(errs, field, fmt.Sprintf("acceptable answer %d cannot be empty", i+1), nil)
		} else if q.WordLimit > 0 && wordCount(a) > q.WordLimit {
			errs = add(errs, field, fmt.Sprintf("acceptable answer %d exceeds the %d-word limit", i+1, q.WordLimit), a)
		}
	}
	return errs
}

func (v *QuestionValidator) validateFillBlankMultiple(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	if len(q.BlankOptions) == 0 {
		errs = add(errs, "blank_options", "blank options are required", nil)
	}

	var positions map[string]int
	if err := json.Unmarshal(q.CorrectAnswer, &positions); err != nil || len(positions) == 0 {
		return add(errs, "correct_answer", "a blank-to-option index map is required", nil)
	}
	for key, idx := range positions {
		if idx < 0 || idx >= len(q.BlankOptions) {
			errs = add(errs, "correct_answer", fmt.Sprintf("blank %q points to option index %d, out of range", key, idx), idx)
		}
	}
	return errs
}

func (v *QuestionValidator) validateFillBlankOneWordEach(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	answers, _ := decodeStrings(q.CorrectAnswer)
	if len(answers) == 0 {
		return add(errs, "one_word_answers", "at least one blank answer is required", nil)
	}

	nonEmpty := 0
	for i, a := range answers {
		if strings.TrimSpace(a) == "" {
			continue
		}
		nonEmpty++

		limit := 1
		if i < len(q.WordLimits) && q.WordLimits[i] > 0 {
			limit = q.WordLimits[i]
		}
		for _, alt := range strings.Split(a, ",") {
			if strings.TrimSpace(alt) == "" {
				errs = add(errs, "one_word_answers", fmt.Sprintf("blank %d has an empty alternative", i+1), a)
			} else if wordCount(alt) > limit {
				errs = add(errs, "one_word_answers", fmt.Sprintf("blank %d answer %q exceeds the %d-word limit", i+1, strings.TrimSpace(alt), limit), alt)
			}
		}
	}
	if nonEmpty == 0 {
		errs = add(errs, "one_word_answers", "at least one blank answer must be non-empty", nil)
	}
	return errs
}

func (v *QuestionValidator) validateMatching(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	opts := q.MatchingOptions.Data()
	if len(opts.Headings) < 2 {
		errs = add(errs, "matching_options", "must have at least 2 headings", len(opts.Headings))
	}
	if len(opts.Paragraphs) < 2 {
		errs = add(errs, "matching_options", "must have at least 2 paragraphs", len(opts.Paragraphs))
	}

	var answer models.MatchingAnswer
	if err := json.Unmarshal(q.CorrectAnswer, &answer); err != nil || len(answer.Selections) == 0 {
		return add(errs, "correct_answer", "matching selections are required", nil)
	}

	switch answer.Type {
	case models.MatchingOneToOne, models.MatchingManyToOne, models.MatchingNotAllUsed:
	default:
		errs = add(errs, "correct_answer", fmt.Sprintf("invalid matching sub-type: %s", answer.Type), string(answer.Type))
	}

	usedHeadings := make(map[string]bool, len(answer.Selections))
	for key, sel := range answer.Selections {
		if idx, err := strconv.Atoi(key); err != nil || idx < 0 || idx >= len(opts.Paragraphs) {
			errs = add(errs, "correct_answer", fmt.Sprintf("selection key %q is not a valid paragraph index", key), key)
		}

		if sel == models.MatchingNotUsed {
			if answer.Type != models.MatchingNotAllUsed {
				errs = add(errs, "correct_answer", "not_used selections require the not_all_used sub-type", key)
			}
			continue
		}
		if idx, err := strconv.Atoi(sel); err != nil || idx < 0 || idx >= len(opts.Headings) {
			errs = add(errs, "correct_answer", fmt.Sprintf("selection %q is not a valid heading index", sel), sel)
			continue
		}
		if answer.Type == models.MatchingOneToOne && usedHeadings[sel] {
			errs = add(errs, "correct_answer", fmt.Sprintf("heading %s used more than once in a one_to_one matching", sel), sel)
		}
		usedHeadings[sel] = true
	}
	return errs
}

func (v *QuestionValidator) validateTrueFalseNotGiven(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	answer, ok := decodeString(q.CorrectAnswer)
	if !ok {
		return add(errs, "correct_answer", "a correct answer is required", nil)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case models.AnswerTrue, models.AnswerFalse, models.AnswerNotGiven, "not given":
		return errs
	default:
		return add(errs, "correct_answer", "must be true, false or not_given", answer)
	}
}

func (v *QuestionValidator) validateShortAnswer(q *models.Question) ValidationErrors {
	var errs ValidationErrors
	if q.WordLimit < 0 {
		errs = add(errs, "word_limit", "word limit cannot be negative", q.WordLimit)
	}
	return append(errs, v.validateAcceptableAnswers(q, "acceptable_answers")...)
}

func add(errs ValidationErrors, field, message string, value interface{}) ValidationErrors {
	return append(errs, ValidationError{Field: field, Message: message, Value: value})
}

// optionExists accepts the option text itself or its zero-based index.
func optionExists(answer string, options []string) bool {
	for i, opt := range options {
		if answer == opt || answer == strconv.Itoa(i) {
			return true
		}
	}
	return false
}

func decodeString(data []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeStrings(data []byte) ([]string, bool) {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func wordCount(s string) int {
	return len(strings.Fields(strings.TrimSpace(s)))
}
