package httpclient

import (
	"fmt"

	apperrors "github.com/kbukum/scribe/errors"
)

const maxErrorBody = 512

// NewTimeoutError wraps a request that ran past its deadline.
func NewTimeoutError(service string, err error) *apperrors.AppError {
	return apperrors.Timeout(service).WithCause(err)
}

// NewConnectionError wraps a transport-level failure (refused, DNS, reset).
func NewConnectionError(service string, err error) *apperrors.AppError {
	return apperrors.ConnectionFailed(service).WithCause(err)
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *apperrors.AppError {
	return apperrors.Validation("httpclient: " + msg)
}

// ClassifyStatusCode converts an HTTP status code into an AppError.
// Returns nil for 2xx status codes. 429 and 5xx are retryable.
func ClassifyStatusCode(service string, statusCode int, body []byte) *apperrors.AppError {
	var code apperrors.ErrorCode
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == 401 || statusCode == 403:
		code = apperrors.ErrCodeUnauthorized
	case statusCode == 404:
		code = apperrors.ErrCodeNotFound
	case statusCode == 429:
		code = apperrors.ErrCodeRateLimited
	case statusCode >= 400 && statusCode < 500:
		code = apperrors.ErrCodeInvalidInput
	default:
		code = apperrors.ErrCodeExternalService
	}
	e := apperrors.New(code, fmt.Sprintf("%s: HTTP %d", service, statusCode))
	e.Retryable = statusCode == 429 || statusCode >= 500
	e.WithDetail("service", service).WithDetail("status", statusCode)
	if len(body) > 0 {
		e.WithDetail("body", truncate(string(body), maxErrorBody))
	}
	return e
}

// StatusCode returns the HTTP status recorded on err, or 0.
func StatusCode(err error) int {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		return 0
	}
	status, _ := appErr.Details["status"].(int)
	return status
}

// IsNotFound checks if an error is a 404 response.
func IsNotFound(err error) bool { return StatusCode(err) == 404 }

// IsAuth checks if an error is a 401/403 response.
func IsAuth(err error) bool { return apperrors.IsCode(err, apperrors.ErrCodeUnauthorized) }

// IsRateLimit checks if an error is a 429 response.
func IsRateLimit(err error) bool { return StatusCode(err) == 429 }

// IsServerError checks if an error is a 5xx response.
func IsServerError(err error) bool { return StatusCode(err) >= 500 }

// IsTimeout checks if an error is a timeout.
func IsTimeout(err error) bool { return apperrors.IsCode(err, apperrors.ErrCodeTimeout) }

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	appErr, ok := apperrors.AsAppError(err)
	return ok && appErr.Retryable
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
