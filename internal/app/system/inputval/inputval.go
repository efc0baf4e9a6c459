// internal/app/system/inputval/inputval.go
package inputval

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single human-readable validation failure.
type FieldError struct {
	Field   string
	Message string
}

// Result collects validation failures for one input struct.
type Result struct {
	Errors []FieldError
}

// HasErrors reports whether validation failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first message, or "" when valid.
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if l := f.Tag.Get("label"); l != "" {
				return l
			}
			return f.Name
		})
		mustRegister(v, "email", func(fl validator.FieldLevel) bool { return IsValidEmail(fl.Field().String()) })
		mustRegister(v, "objectid", func(fl validator.FieldLevel) bool { return IsValidObjectID(fl.Field().String()) })
		mustRegister(v, "username", func(fl validator.FieldLevel) bool { return IsValidUsername(fl.Field().String()) })
		mustRegister(v, "httpurl", func(fl validator.FieldLevel) bool { return IsValidHTTPURL(fl.Field().String()) })
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("inputval: register %q: %v", tag, err))
	}
}

// Validate runs struct-tag validation and converts failures into messages
// suitable for an API response.
func Validate(s any) Result {
	err := instance().Struct(s)
	if err == nil {
		return Result{}
	}
	ves, ok := err.(validator.ValidationErrors)
	if !ok {
		return Result{Errors: []FieldError{{Message: "Invalid input."}}}
	}
	out := Result{Errors: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Errors = append(out.Errors, FieldError{Field: fe.StructField(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	label := fe.Field()
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or greater.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less.", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s.", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "objectid":
		return label + " must be a valid ID."
	case "username":
		return label + " may only contain letters, numbers, dots, underscores and hyphens."
	case "httpurl":
		return label + " must be an http or https URL."
	default:
		return label + " is invalid."
	}
}
