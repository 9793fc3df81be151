package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// FieldError describes one failed rule on one field, with a message ready to
// show to API clients.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects every failed rule for a payload.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Message
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct runs the registered rules against s and converts failures
// into client-facing messages keyed by the json field name.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, FieldError{
				Field:   fe.Field(),
				Message: messageFor(fe),
			})
		}
		return failures
	}

	return err
}

func messageFor(fe validator.FieldError) string {
	field := strings.ToLower(strings.ReplaceAll(fe.Field(), "_", " "))
	if field == "" {
		field = "field"
	}

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		if fe.Param() != "" {
			return fmt.Sprintf("%s failed validation: %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports the json tag name so validation messages match the
// wire payload rather than Go struct fields.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
