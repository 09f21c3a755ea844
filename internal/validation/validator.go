// Praetor - Route Authorization and Security Middleware for Content Platforms
// Copyright 2026 M. Castellan (praetor-sec)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praetor-sec/praetor

// Package validation provides struct validation using go-playground/validator v10.
// It exposes a thread-safe singleton validator with custom validators for
// route-configuration rules.
//
// Custom validators:
//   - routepattern: a /-rooted path template with balanced [param] brackets
//   - httpmethod: one of the standard HTTP verbs
//   - rlwindow: a rate-limit window string matching \d+[smhd]
//
// Example usage:
//
//	type ImportEntry struct {
//	    Pattern string   `validate:"required,routepattern"`
//	    Methods []string `validate:"dive,httpmethod"`
//	}
//
//	if err := validation.ValidateStruct(&entry); err != nil {
//	    // err.Errors() holds per-field failures
//	}
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// windowPattern matches rate-limit window strings such as "15m" or "1h".
var windowPattern = regexp.MustCompile(`^\d+[smhd]$`)

// standardMethods is the set of HTTP verbs accepted in route configs.
var standardMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// ValidationError represents a single field validation error.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the struct field name that failed validation.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the parameter for the validation tag (e.g. "0" for "gt=0").
func (e *ValidationError) Param() string { return e.param }

// Value returns the actual value that failed validation.
func (e *ValidationError) Value() interface{} { return e.value }

// Error returns a human-readable error message.
func (e *ValidationError) Error() string { return e.message }

// RequestValidationError is a collection of validation errors.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the slice of validation errors.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

// Error implements the error interface, returning a combined message.
func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, err.Error())
	}

	return strings.Join(messages, "; ")
}

// Messages returns one message per failed field, prefixed with the field name.
func (ve *RequestValidationError) Messages() []string {
	messages := make([]string, 0, len(ve.errors))
	for _, err := range ve.errors {
		messages = append(messages, fmt.Sprintf("%s: %s", err.field, err.message))
	}
	return messages
}

// validRoutePattern reports whether a pattern is a well-formed path template.
// Patterns must start with "/", contain no whitespace, and every "[" must be
// closed by a "]" within the same segment.
func validRoutePattern(pattern string) bool {
	if pattern == "" || !strings.HasPrefix(pattern, "/") {
		return false
	}
	if strings.ContainsAny(pattern, " \t\n") {
		return false
	}

	for _, segment := range strings.Split(pattern, "/") {
		opens := strings.Count(segment, "[")
		closes := strings.Count(segment, "]")
		if opens != closes {
			return false
		}
		if opens > 1 {
			return false
		}
		if opens == 1 {
			// Placeholder must span the whole segment: [name] or [...name]
			if !strings.HasPrefix(segment, "[") || !strings.HasSuffix(segment, "]") {
				return false
			}
			name := strings.TrimSuffix(strings.TrimPrefix(segment, "["), "]")
			name = strings.TrimPrefix(name, "...")
			if name == "" {
				return false
			}
		}
	}

	return true
}

// GetValidator returns the singleton validator instance.
// The validator is initialized once with the route-config custom validators.
// This function is thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Registration only fails for empty tags or nil funcs, which would
		// be a programming error here.
		//nolint:errcheck
		validate.RegisterValidation("rlwindow", func(fl validator.FieldLevel) bool {
			return windowPattern.MatchString(fl.Field().String())
		})
		//nolint:errcheck
		validate.RegisterValidation("httpmethod", func(fl validator.FieldLevel) bool {
			return standardMethods[strings.ToUpper(fl.Field().String())]
		})
		//nolint:errcheck
		validate.RegisterValidation("routepattern", func(fl validator.FieldLevel) bool {
			return validRoutePattern(fl.Field().String())
		})
	})

	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *RequestValidationError otherwise.
func ValidateStruct(s interface{}) *RequestValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &RequestValidationError{
			errors: []ValidationError{
				{field: "unknown", tag: "unknown", message: err.Error()},
			},
		}
	}

	fieldErrors := make([]ValidationError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = ValidationError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}

	return &RequestValidationError{errors: fieldErrors}
}

// errorMessageTemplates maps validation tags to message templates.
var errorMessageTemplates = map[string]string{
	"required":     "%s is required",
	"routepattern": "%s must be a /-rooted route pattern with well-formed placeholders",
	"httpmethod":   "%s must be a standard HTTP method",
	"rlwindow":     "%s must be a window string like 60s, 15m, 1h, or 1d",
}

// errorMessageWithParam maps validation tags to templates that include a param.
var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"gt":    "%s must be greater than %s",
	"lt":    "%s must be less than %s",
}

// translateError converts a validator.FieldError to a human-readable message.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	tag := fe.Tag()
	param := fe.Param()

	if template, ok := errorMessageTemplates[tag]; ok {
		return fmt.Sprintf(template, field)
	}

	if template, ok := errorMessageWithParam[tag]; ok {
		return fmt.Sprintf(template, field, param)
	}

	return fmt.Sprintf("%s failed validation (%s)", field, tag)
}
