package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
)

// Validator adapts validator/v10 to echo.Validator.  Field errors are named
// after the request parameter (path, query, JSON or form name) rather than
// the Go field.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns the validator installed on the echo instance.
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"param", "query", "json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{v: v}
}

// Validate checks i against its `validate` tags.
func (cv *Validator) Validate(i interface{}) error {
	if err := cv.v.Struct(i); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return apperr.Wrap(err, apperr.KindValidation, apperr.CodeBadRequest, "invalid request")
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = formatValidationError(fe)
	}
	return apperr.Validation(apperr.CodeBadRequest, "validation failed for one or more fields").WithFields(fields)
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "len":
		return "Must have length of " + fe.Param()
	case "numeric":
		return "Must contain digits only"
	case "max":
		return "Value is too long (maximum: " + fe.Param() + ")"
	case "min":
		return "Value is too short (minimum: " + fe.Param() + ")"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "alphanum":
		return "Must contain letters and digits only"
	default:
		return "Validation failed for tag: " + fe.Tag()
	}
}

// bindAndValidate binds path, query and body parameters into req and
// validates it.  Both failures are Validation errors.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, apperr.CodeBadRequest, "malformed request parameters")
	}
	return c.Validate(req)
}
