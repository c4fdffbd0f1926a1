package client

import "github.com/adamwoolhether/naett/internal/validate"

// FieldError is a single invalid request setting.
type FieldError = validate.FieldError

// FieldErrors is returned by [Client.Request] when the assembled settings
// are invalid.
type FieldErrors = validate.FieldErrors

func validateSettings(s *settings) error {
	return validate.Check(s)
}
