// Package validation checks service inputs with struct tags from
// go-playground/validator and converts failures into apperror values.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/qa-forum/internal/apperror"
)

// Validator wraps go-playground/validator with domain error conversion.
// A single instance is safe for concurrent use; it caches struct metadata.
type Validator struct {
	v *validator.Validate
}

// New creates a validator that names fields by their `form` tag, so error
// messages use the same names as the HTML form inputs.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// notblank rejects strings that are only whitespace, which "required"
	// alone lets through.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return &Validator{v: v}
}

// Validate validates a struct and returns the first failing field as an
// *apperror.AppError wrapping apperror.ErrValidation.
func (v *Validator) Validate(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return fmt.Errorf("validation: %w", err)
	}

	first := validationErrs[0]
	return apperror.ValidationFailed(first.Field(), first.Field()+" "+friendlyMessage(first))
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s characters", e.Param())
	case "gt":
		return "must be greater than " + e.Param()
	default:
		return "is invalid"
	}
}
