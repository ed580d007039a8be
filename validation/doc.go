// Package validation provides input validation for client parameters and
// file-based configuration.
//
// It supports both struct tag validation (using the validator library) and
// programmatic validation with error collection. Both return *Error, which
// lists every failing field.
//
// # Struct Tag Validation
//
//	type Limits struct {
//	    Throttle   int `mapstructure:"throttle" validate:"gte=0"`
//	    RetryLimit int `mapstructure:"retry_limit" validate:"gte=0,lte=100"`
//	}
//	err := validation.Validate(limits)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.AbsoluteURL("base_url", baseURL)
//	err := v.Validate()
package validation
