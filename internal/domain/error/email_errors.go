package error

import "errors"

// ErrInvalidTemplate marks a queued job whose template is unknown.
var ErrInvalidTemplate = errors.New("invalid email template")

// EmailErrorCode identifies an email queueing or delivery failure.
type EmailErrorCode string

const (
	ErrCodeEmailQueueFailed EmailErrorCode = "EMAIL-010001"

	// Delivery. Permanent failures are not retried.
	ErrCodePermanentEmailFailure EmailErrorCode = "EMAIL-020002"
	ErrCodeTemporaryEmailFailure EmailErrorCode = "EMAIL-020003"

	ErrCodeInvalidTemplate EmailErrorCode = "EMAIL-030001"
)

type EmailError = CodedError[EmailErrorCode]

func NewEmailError(code EmailErrorCode, message string, err error) *EmailError {
	return newCoded(code, message, err)
}
