package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/remlyo/remlyo/internal/domain/plan"
)

// resourceIDPattern matches ailment and remedy identifiers (hex object ids, uuids, slugs)
var resourceIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Validator wraps go-playground validator
type Validator struct {
	validate *validator.Validate
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

// New creates a new validator instance
func New() *Validator {
	v := validator.New()

	// Register custom tag name function to use json tags
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("planname", func(fl validator.FieldLevel) bool {
		return plan.Name(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("resourceid", func(fl validator.FieldLevel) bool {
		return IsResourceID(fl.Field().String())
	})

	return &Validator{
		validate: v,
	}
}

// IsResourceID reports whether s is an acceptable ailment or remedy identifier
func IsResourceID(s string) bool {
	return resourceIDPattern.MatchString(s)
}

// Validate validates a struct
func (v *Validator) Validate(i interface{}) []ValidationError {
	var validationErrors []ValidationError

	err := v.validate.Struct(i)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, ValidationError{
				Field:   err.Field(),
				Tag:     err.Tag(),
				Value:   fmt.Sprintf("%v", err.Value()),
				Message: msgForTag(err),
			})
		}
	}

	return validationErrors
}

// ValidateVar validates a single variable
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// msgForTag returns a human-readable message for a validation tag
func msgForTag(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters long", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "alpha":
		return fmt.Sprintf("%s must contain only alphabetic characters", field)
	case "alphanum":
		return fmt.Sprintf("%s must contain only alphanumeric characters", field)
	case "numeric":
		return fmt.Sprintf("%s must be a valid numeric value", field)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "planname":
		return fmt.Sprintf("%s must be one of [free premium pay-per-remedy]", field)
	case "resourceid":
		return fmt.Sprintf("%s must be 1-64 letters, digits, dashes or underscores", field)
	default:
		return fmt.Sprintf("%s failed validation for tag: %s", field, fe.Tag())
	}
}

// Global validator instance
var globalValidator *Validator

// Init initializes the global validator
func Init() {
	globalValidator = New()
}

// Validate validates a struct using the global validator
func Validate(i interface{}) []ValidationError {
	if globalValidator == nil {
		Init()
	}
	return globalValidator.Validate(i)
}
