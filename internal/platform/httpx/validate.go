package httpx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate runs struct validation and converts the first failing field into a
// user-facing validation error.
func Validate(v *validator.Validate, obj any) error {
	err := v.Struct(obj)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return NewError(ErrValidation, "invalid request")
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return NewError(ErrValidation, fmt.Sprintf("%s is required", field))
	case "gt":
		return NewError(ErrValidation, fmt.Sprintf("%s must be greater than %s", field, fe.Param()))
	case "gte", "min":
		return NewError(ErrValidation, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
	default:
		return NewError(ErrValidation, fmt.Sprintf("%s is invalid", field))
	}
}
