// Package validation validates configuration and option structs through
// struct tags (go-playground/validator) and reports failures as
// INVALID_INPUT AppErrors with per-field details.
//
//	type ConversionOptions struct {
//	    Channels *int `json:"channels,omitempty" validate:"omitempty,oneof=1 2"`
//	}
//	err := validation.Validate(opts)
package validation
