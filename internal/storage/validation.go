// Package storage provides the per-user persistence layer for parcel
// attributes, color preferences, weather credentials and custom varieties.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/suito/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidVariety = errors.New("invalid variety")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateUserAndID(user, id string) error {
	if err := validateString(user, "user"); err != nil {
		return err
	}
	return validateString(id, "polygon_uuid")
}

// validateVariety checks a custom variety before it is created.
func validateVariety(v *model.Variety) error {
	if v == nil {
		return fmt.Errorf("%w: variety", ErrNilParameter)
	}
	name := strings.TrimSpace(v.Name)
	if name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVariety)
	}
	if model.IsBaseVariety(name) {
		return fmt.Errorf("%w: %q is a built-in variety", ErrInvalidVariety, name)
	}
	if !model.IsBaseVariety(v.BaseVariety) {
		return fmt.Errorf("%w: base variety %q is not one of %s",
			ErrInvalidVariety, v.BaseVariety, strings.Join(model.BaseVarieties(), ", "))
	}
	if v.RipeningAccumulatedTemp < 0 {
		return fmt.Errorf("%w: ripening accumulated temperature cannot be negative", ErrInvalidVariety)
	}
	return nil
}
