package apperrors

type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeNotFound        Code = "NOT_FOUND"
	CodeNotAvailableYet Code = "NOT_AVAILABLE_YET"
	CodeSecretRequired  Code = "SECRET_REQUIRED"
	CodeInvalidSecret   Code = "INVALID_SECRET"
	CodeRateLimited     Code = "RATE_LIMITED"
	CodeSpamRejected    Code = "SPAM_REJECTED"
	CodeInternal        Code = "INTERNAL"
)
