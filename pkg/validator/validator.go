// Package validator wraps go-playground/validator behind a lazily built
// shared instance that reports field names by their json tag.
package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// ValidationError describes one failed rule on one field.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors is the full set of failures for a payload.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	var sb strings.Builder
	for i, failure := range v {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(failure.Field)
		sb.WriteString(" failed on ")
		sb.WriteString(failure.Tag)
		if failure.Param != "" {
			sb.WriteString("=")
			sb.WriteString(failure.Param)
		}
	}
	return sb.String()
}

// ValidateStruct runs the shared validator over s and converts failures into
// ValidationErrors keyed by json field name.
func ValidateStruct(s interface{}) error {
	err := shared().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	failures := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		failures = append(failures, ValidationError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

// RegisterValidation adds a custom rule under the given tag.
func RegisterValidation(tag string, fn validator.Func) error {
	return shared().RegisterValidation(tag, fn)
}

func shared() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(jsonFieldName)
	})
	return validate
}

// jsonFieldName reports the field's json tag name, falling back to the Go
// field name when the tag is absent or suppressed.
func jsonFieldName(fld reflect.StructField) string {
	tag, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if tag == "" || tag == "-" {
		return fld.Name
	}
	return tag
}
