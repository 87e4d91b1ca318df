package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/maheshrc27/insights-pipeline/internal/transfer"
)

type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeCanceled    ErrorType = "canceled"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeClient      ErrorType = "client"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeParsing     ErrorType = "parsing"
)

// APIError describes a failed Graph API call. StatusCode is 0 when no HTTP
// response was received.
type APIError struct {
	Type       ErrorType
	StatusCode int
	Message    string
	// Body is the raw response body, kept for logging.
	Body string
	Err  error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("graph %s error: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("graph %s error (status %d): %s", e.Type, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport failure. HTTP status errors,
// 4xx and 5xx alike, are never retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Type == ErrorTypeNetwork
	}
	return false
}

func transportError(err error) *APIError {
	t := ErrorTypeNetwork
	if errors.Is(err, context.Canceled) {
		t = ErrorTypeCanceled
	}
	return &APIError{Type: t, Message: err.Error(), Err: err}
}

func statusError(status int, body []byte) *APIError {
	apiErr := &APIError{
		Type:       typeForStatus(status),
		StatusCode: status,
		Body:       string(body),
		Message:    http.StatusText(status),
	}

	var graphErr transfer.GraphErrorResponse
	if err := json.Unmarshal(body, &graphErr); err == nil && graphErr.Error.Message != "" {
		apiErr.Message = graphErr.Error.Message
	} else if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}

func typeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return ErrorTypeAuth
	case status == http.StatusNotFound:
		return ErrorTypeNotFound
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeClient
	}
}
