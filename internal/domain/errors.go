package domain

import (
	"errors"
	"fmt"
)

// Fatal calculation errors. Template errors are distinct from input errors so
// a caller can tell "bad request" from "misconfigured system".
var (
	ErrTemplateNotFound     = errors.New("pricing template not found")
	ErrTemplateInactive     = errors.New("pricing template is inactive")
	ErrInvalidTemplate      = errors.New("invalid pricing template")
	ErrClientConfigNotFound = errors.New("client configuration not found")
	ErrClientConfigInactive = errors.New("client configuration is inactive")
	ErrClientConfigMismatch = errors.New("client configuration references a different template")
)

// ValidationError reports malformed or out-of-range calculation input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
