// Package validator adapts go-playground/validator to echo.Validator.
package validator

import (
	"reflect"
	"strconv"
	"strings"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"

	"github.com/go-playground/validator/v10"
)

// CustomValidator validates request DTOs tagged with `validate`.
type CustomValidator struct {
	validate *validator.Validate
}

// New returns a validator that reports fields by their JSON names.
func New() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}

		return name
	})
	// max counts runes; bcrypt limits bytes.
	_ = v.RegisterValidation("maxbytes", maxBytes)

	return &CustomValidator{validate: v}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}

	return len(fl.Field().String()) <= limit
}

// Validate implements echo.Validator. Field failures become ErrValidationFailed
// with one "field: rule" entry per failure in the details.
func (cv *CustomValidator) Validate(i any) error {
	err := cv.validate.Struct(i)
	if err == nil {
		return nil
	}

	validationErrs, ok := errors.AsType[validator.ValidationErrors](err)
	if !ok {
		return errors.Wrap(err, "failed to validate request")
	}

	details := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		rule := fieldErr.Tag()
		if fieldErr.Param() != "" {
			rule += "=" + fieldErr.Param()
		}
		details = append(details, fieldErr.Field()+": "+rule)
	}

	return domainerrors.ErrValidationFailed.WithDetails(strings.Join(details, "; "))
}
