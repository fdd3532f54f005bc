// Package competitor contains market research use cases: market scans,
// competitor deep dives and feature gap analysis.
package competitor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/business-planner/backend/internal/application/adapter"
)

// Error code constants for AI analysis failures.
const (
	ErrCodeAIServiceUnavailable = "AI_SERVICE_UNAVAILABLE"
	ErrCodeAIRateLimited        = "AI_RATE_LIMITED"
	ErrCodeAIAuthError          = "AI_AUTH_ERROR"
	ErrCodeAITimeout            = "AI_TIMEOUT"
	ErrCodeAIParseError         = "AI_PARSE_ERROR"
	ErrCodeAIUnknownError       = "AI_UNKNOWN_ERROR"
	ErrCodePlanUnavailable      = "PLAN_UNAVAILABLE"
)

var errorMessages = map[string]string{
	ErrCodeAIServiceUnavailable: "The AI service is temporarily unavailable. Try again later.",
	ErrCodeAIRateLimited:        "The AI request limit was reached. Wait a few minutes and try again.",
	ErrCodeAIAuthError:          "The AI service is misconfigured. Please contact support.",
	ErrCodeAITimeout:            "The analysis took longer than expected. Try again.",
	ErrCodeAIParseError:         "The AI response could not be read. Try again.",
	ErrCodeAIUnknownError:       "An unexpected error occurred during the analysis. Try again.",
	ErrCodePlanUnavailable:      "The plan was closed or deleted before the results could be merged.",
}

func newFailure(code string, retryable bool) *adapter.ScanFailure {
	return &adapter.ScanFailure{
		Code:      code,
		Message:   errorMessages[code],
		Retryable: retryable,
		Timestamp: time.Now(),
	}
}

// classifyError converts an AI call error to a ScanFailure with a code, a
// user-facing message and a retryable flag.
func classifyError(err error) *adapter.ScanFailure {
	errStr := strings.ToLower(err.Error())

	// Check for timeout/cancellation (context errors)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return newFailure(ErrCodeAITimeout, true)
	}

	if containsAny(errStr, "rate limit", "quota", "429", "resource exhausted") {
		return newFailure(ErrCodeAIRateLimited, true)
	}

	if containsAny(errStr, "401", "403", "invalid api key", "unauthorized", "authentication") {
		return newFailure(ErrCodeAIAuthError, false)
	}

	if containsAny(errStr, "connection", "network", "dial", "timeout", "unavailable", "503") {
		return newFailure(ErrCodeAIServiceUnavailable, true)
	}

	if containsAny(errStr, "parse", "json", "unmarshal", "decode") {
		return newFailure(ErrCodeAIParseError, true)
	}

	return newFailure(ErrCodeAIUnknownError, true)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
