package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ielts-practice/reading-service/internal/models"
)

// Validator combines struct-tag validation with question authoring rules.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation: struct tags first, then the
// kind-specific authoring rules when the value is a question.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		return err
	}

	if q, ok := s.(*models.Question); ok {
		if errs := v.questionValidator.ValidateQuestion(q); len(errs) > 0 {
			return errs
		}
	}

	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_kind", validateQuestionKind)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("attempt_status", validateAttemptStatus)
	validate.RegisterValidation("matching_sub_type", validateMatchingSubType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateQuestionKind(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, kind := range models.AllQuestionKinds() {
		if string(kind) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleUser,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validateAttemptStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.AttemptStatus{
		models.AttemptInProgress,
		models.AttemptCompleted,
		models.AttemptAbandoned,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validateMatchingSubType(fl validator.FieldLevel) bool {
	validTypes := []models.MatchingSubType{
		models.MatchingOneToOne,
		models.MatchingManyToOne,
		models.MatchingNotAllUsed,
	}

	value := fl.Field().String()
	for _, validType := range validTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}
