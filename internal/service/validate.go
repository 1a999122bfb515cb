package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/trip-planner/backend/internal/domain"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance is shared by every service.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError converts validator output into a domain.ErrValidation with
// a message naming the first offending field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s", domain.ErrValidation, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
}

// fieldPath drops the root struct name from a validator namespace and
// lower-cases the first letter of each segment, so untagged fields read like
// JSON names too, e.g. "NewTrip.days[0].items[1].type" becomes
// "days[0].items[1].type" and "TripPatch.StartAt" becomes "startAt".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

// checkTitle rejects blank titles. Whitespace-only counts as blank.
func checkTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	return nil
}

// checkRange rejects ranges that end before they start. Both dates are
// already known to be YYYY-MM-DD, which compare chronologically as strings.
func checkRange(startAt, endAt string) error {
	if endAt < startAt {
		return fmt.Errorf("%w: endAt must not be before startAt", domain.ErrValidation)
	}
	return nil
}

// daysPayload wraps a day list so the validator dives into it the same way
// it does for NewTrip.Days.
type daysPayload struct {
	Days []domain.Day `validate:"dive"`
}
