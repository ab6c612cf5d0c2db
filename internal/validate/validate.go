// Package validate wires go-playground/validator with the dashboard's own
// rules and turns its errors into field-scoped, human-readable messages.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/aanand-mishra/student-dashboard/internal/types"
	"github.com/go-playground/validator/v10"
)

// emailPattern accepts local@domain.tld with no whitespace and a single @.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the custom tags registered:
//
//	studentemail — matches emailPattern
//	coursename   — one of types.Courses
//
// Field names in errors are the json tag names, so they line up with form
// input names.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("studentemail", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("coursename", func(fl validator.FieldLevel) bool {
			return types.IsCourse(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// FieldErrors maps an input name to the message shown under it.
type FieldErrors map[string]string

// Error lists the failures ordered by field name.
func (fe FieldErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for field := range fe {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fe))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, fe[field]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field failed validation.
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// messages holds the per-field wording, keyed by "field.tag".
var messages = map[string]string{
	"id.required":             "Student ID is required",
	"name.required":           "Name is required",
	"email.required":          "Email is required",
	"email.studentemail":      "Email is not valid",
	"course.required":         "Please select a course",
	"course.coursename":       "Please select a course",
	"enrollmentDate.required": "Enrollment date is required",
	"enrollmentDate.datetime": "Enrollment date is not valid",
	"password.required":       "Password is required",
	"password.min":            "Password must be at least 6 characters",
	"studentName.required":    "Student name is required",
}

// Struct validates v and returns nil or a FieldErrors. Only the first
// failing rule of each field is kept.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}
	return Fields(verrs)
}

// Fields converts validator errors into FieldErrors.
func Fields(errs validator.ValidationErrors) FieldErrors {
	out := make(FieldErrors, len(errs))
	for _, e := range errs {
		field := e.Field()
		if _, seen := out[field]; seen {
			continue
		}
		if msg, ok := messages[field+"."+e.ActualTag()]; ok {
			out[field] = msg
			continue
		}
		switch e.ActualTag() {
		case "required":
			out[field] = fmt.Sprintf("field %s is required", field)
		default:
			out[field] = fmt.Sprintf("field %s is invalid", field)
		}
	}
	return out
}
