package service

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/nhle/miledo/internal/model"
	"github.com/nhle/miledo/internal/schedule"
)

// validationError converts validator output into a *model.ValidationError
// naming the first offending field.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError("", "%v", err)
	}

	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "min":
		return model.NewValidationError(field, "must be at least %s characters", fe.Param())
	case "max":
		return model.NewValidationError(field, "must be at most %s characters", fe.Param())
	case "hexcolor":
		return model.NewValidationError(field, "must be a hex color such as #22c55e")
	case "oneof":
		return model.NewValidationError(field, "must be one of: %s", fe.Param())
	default:
		return model.NewValidationError(field, "failed %q check", fe.Tag())
	}
}

func validDate(date string) bool {
	_, err := time.Parse(schedule.DateLayout, date)
	return err == nil
}
