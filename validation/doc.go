// Package validation provides struct tag validation for featflow configuration.
//
// It wraps the validator library and converts field errors into the unified
// errors.AppError shape:
//
//	type Config struct {
//	    Provider string `json:"provider" validate:"required,oneof=local"`
//	}
//	err := validation.Validate(cfg)
package validation
