package error

import "errors"

// Plan domain errors.
var (
	// ErrPlanNotFound is returned when a plan does not exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrPlanVersionNotFound is returned when a plan version does not exist.
	ErrPlanVersionNotFound = errors.New("plan version not found")

	// ErrUnauthorizedPlanAccess is returned when a user accesses a plan they do not own.
	ErrUnauthorizedPlanAccess = errors.New("unauthorized access to plan")

	// ErrInvalidNumber is returned when a numeric field is NaN or infinite.
	ErrInvalidNumber = errors.New("invalid numeric value")

	// ErrNegativeValue is returned when a price, cost or count is negative.
	ErrNegativeValue = errors.New("value must not be negative")

	// ErrInvertedRange is returned when a low bound exceeds its high bound.
	ErrInvertedRange = errors.New("range low bound exceeds high bound")

	// ErrInvalidRowIndex is returned when a projection row index is out of range.
	ErrInvalidRowIndex = errors.New("projection row index out of range")

	// ErrInvalidEnum is returned when an enum field holds an unknown value.
	ErrInvalidEnum = errors.New("invalid enum value")

	// ErrCompetitorNotFound is returned when a competitor is not part of the plan.
	ErrCompetitorNotFound = errors.New("competitor not found")

	// ErrPlanPersistence is returned when the storage collaborator rejects a load or save.
	ErrPlanPersistence = errors.New("plan persistence failed")
)

// PlanErrorCode defines error codes for plan errors.
// Format: PLN-XXYYYY where XX is category and YYYY is specific error.
type PlanErrorCode string

const (
	// Lookup errors (01XXXX)
	ErrCodePlanNotFound           PlanErrorCode = "PLN-010001"
	ErrCodePlanVersionNotFound    PlanErrorCode = "PLN-010002"
	ErrCodeUnauthorizedPlanAccess PlanErrorCode = "PLN-010003"
	ErrCodeCompetitorNotFound     PlanErrorCode = "PLN-010004"

	// Validation errors (02XXXX)
	ErrCodeInvalidNumber    PlanErrorCode = "PLN-020001"
	ErrCodeNegativeValue    PlanErrorCode = "PLN-020002"
	ErrCodeInvertedRange    PlanErrorCode = "PLN-020003"
	ErrCodeInvalidRowIndex  PlanErrorCode = "PLN-020004"
	ErrCodeInvalidEnum      PlanErrorCode = "PLN-020005"
	ErrCodeMissingPlanField PlanErrorCode = "PLN-020006"

	// Persistence errors (03XXXX)
	ErrCodePlanPersistence PlanErrorCode = "PLN-030001"

	// AI errors (04XXXX)
	ErrCodeAIUnavailable     PlanErrorCode = "PLN-040001"
	ErrCodeScanInProgress    PlanErrorCode = "PLN-040002"
	ErrCodeAnalysisFailed    PlanErrorCode = "PLN-040003"
	ErrCodeShareEmailFailure PlanErrorCode = "PLN-040004"
)

// PlanError is returned by plan, projection and competitor operations.
type PlanError = CodedError[PlanErrorCode]

// NewPlanError creates a PlanError.
func NewPlanError(code PlanErrorCode, message string, err error) *PlanError {
	return newCoded(code, message, err)
}

// IsValidationError reports whether err is a document validation failure.
func IsValidationError(err error) bool {
	var planErr *PlanError
	if !errors.As(err, &planErr) {
		return false
	}
	switch planErr.Code {
	case ErrCodeInvalidNumber, ErrCodeNegativeValue, ErrCodeInvertedRange,
		ErrCodeInvalidRowIndex, ErrCodeInvalidEnum, ErrCodeMissingPlanField:
		return true
	}
	return false
}
