package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field paths using koanf keys instead of Go field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// Validate checks struct constraints on cfg and the observability section.
// Every violation is reported as a *ConfigError; several are joined.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}
		errs := make([]error, 0, len(validationErrors))
		for _, fe := range validationErrors {
			errs = append(errs, toConfigError(fe))
		}
		return errors.Join(errs...)
	}

	if err := cfg.Observability.Validate(); err != nil {
		return NewInvalidFieldError("observability", err.Error(), nil)
	}
	return nil
}

// toConfigError converts a validator field error into a ConfigError.
func toConfigError(fe validator.FieldError) *ConfigError {
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("'%v' is not supported", fe.Value()), strings.Fields(fe.Param()))
	case "min", "gte":
		return NewInvalidFieldError(field, fmt.Sprintf("must be at least %s, got %v", fe.Param(), fe.Value()), nil)
	case "gt":
		return NewInvalidFieldError(field, fmt.Sprintf("must be greater than %s, got %v", fe.Param(), fe.Value()), nil)
	case "url":
		return NewInvalidFieldError(field, fmt.Sprintf("'%v' is not a valid url", fe.Value()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s validation", fe.Tag()), nil)
	}
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}
