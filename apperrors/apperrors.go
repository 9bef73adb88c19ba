package apperrors

import (
	"fmt"
	"time"
)

// AppError is the domain error carried from services up to the HTTP layer,
// where Code decides the status and the extra fields fill the response envelope.
type AppError struct {
	Code        Code      `json:"code"`
	Message     string    `json:"message"`
	Details     []string  `json:"details,omitempty"`
	Hint        string    `json:"hint,omitempty"`
	AvailableAt time.Time `json:"availableAt,omitempty"`
	Cause       error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// Validation carries every violated field, not just the first.
func Validation(details []string) *AppError {
	return &AppError{Code: CodeValidation, Message: "Validation failed", Details: details}
}

func NotFound(msg string) *AppError {
	return New(CodeNotFound, msg)
}

// NotAvailableYet is returned for scheduled messages whose date has not passed.
func NotAvailableYet(availableAt time.Time) *AppError {
	return &AppError{
		Code:        CodeNotAvailableYet,
		Message:     "Message is not yet available",
		AvailableAt: availableAt,
	}
}

// SecretRequired and InvalidSecret both carry the hint and nothing else, so a
// caller cannot learn more from one than from the other.
func SecretRequired(hint string) *AppError {
	return &AppError{Code: CodeSecretRequired, Message: "Password required", Hint: hint}
}

func InvalidSecret(hint string) *AppError {
	return &AppError{Code: CodeInvalidSecret, Message: "Incorrect password", Hint: hint}
}

func SpamRejected(msg string) *AppError {
	return New(CodeSpamRejected, msg)
}

func RateLimited(msg string) *AppError {
	return New(CodeRateLimited, msg)
}

func Internal(msg string, cause error) *AppError {
	return Wrap(CodeInternal, msg, cause)
}
