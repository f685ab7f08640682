package app

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateInput runs struct tag validation and reports the first failing
// field as a domain.ValidationError.
func validateInput(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &domain.ValidationError{Field: strings.ToLower(fe.Field()), Reason: reason}
	}
	return err
}
