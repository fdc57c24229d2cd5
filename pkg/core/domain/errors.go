package domain

import "errors"

var (
	// Validation
	ErrInvalidURL        = errors.New("invalid URL")
	ErrInvalidCustomCode = errors.New("invalid custom code")
	ErrInvalidExpiry     = errors.New("invalid expiration date")

	// Conflict
	ErrCodeInUse     = errors.New("custom code already in use")
	ErrDuplicateCode = errors.New("short code already exists")

	ErrNotFound            = errors.New("short URL not found")
	ErrExpired             = errors.New("short URL has expired")
	ErrGenerationExhausted = errors.New("could not generate a unique short code")
	ErrStore               = errors.New("database error")
)

// ValidationError carries a message meant for the caller of the API.
type ValidationError struct {
	Message string
	Err     error
}

func NewValidationError(err error, message string) *ValidationError {
	return &ValidationError{Message: message, Err: err}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is caused by malformed input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrInvalidCustomCode) ||
		errors.Is(err, ErrInvalidExpiry)
}

// IsConflict reports whether err is a short code uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCodeInUse) || errors.Is(err, ErrDuplicateCode)
}

// IsRetryable reports whether repeating the same request may succeed.
func IsRetryable(err error) bool { return errors.Is(err, ErrDuplicateCode) }

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsExpired(err error) bool { return errors.Is(err, ErrExpired) }
