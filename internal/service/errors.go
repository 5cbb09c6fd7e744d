package service

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrTranslationIncomplete is returned when translated prompts are
	// missing, empty or identical to their source.
	ErrTranslationIncomplete = errors.New("Translation incomplete")
	// ErrTranslationFailed is returned when the translator call fails after its retry.
	ErrTranslationFailed = errors.New("Translation failed")
	// ErrNoOperationsCompleted is returned when no (prompt, model) pair produced a response.
	ErrNoOperationsCompleted = errors.New("No operations were completed successfully.")
	// ErrCompanyNotFound is returned when a company id does not exist.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrAlreadyRunning is returned when collection is already in progress for a company.
	ErrAlreadyRunning = errors.New("data collection already running for company")
	// ErrStorageNotConfigured is returned by report export when no object storage is set up.
	ErrStorageNotConfigured = errors.New("object storage is not configured")
	// ErrInvalidRequest wraps onboarding request validation failures.
	ErrInvalidRequest = errors.New("invalid onboarding request")
	// ErrEmptyResponse is returned by model callers that got an empty answer.
	ErrEmptyResponse = errors.New("empty model response")
)

// APIError is a non-2xx answer from an upstream HTTP API.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned error: HTTP %d: %s", e.Service, e.StatusCode, e.Message)
}

// IsTimeout reports whether err is a timeout-class failure: a deadline, a
// network timeout, or a gateway timeout status from upstream.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 504, 524:
			return true
		}
	}
	return false
}
