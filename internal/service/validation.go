package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/brightline-health/intake-api/internal/models"
)

// RegisterCustomValidators installs the domain validation rules on a shared
// validator instance.
func RegisterCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, _, err := models.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("tzname", func(fl validator.FieldLevel) bool {
		_, err := time.LoadLocation(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateOnly, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("recurring_pattern", func(fl validator.FieldLevel) bool {
		return models.RecurringPattern(fl.Field().String()).Valid()
	})
}

// ValidationMessages flattens validator errors into field-level strings for
// the API error payload.
func ValidationMessages(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fmt.Sprintf("%s: failed %s validation", fieldPath(fe), fe.Tag()))
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	// Trim the leading struct name so messages read as payload paths.
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
