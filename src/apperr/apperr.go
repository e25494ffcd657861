// Package apperr is the typed error taxonomy shared by src/api and
// src/server: every error that can reach an HTTP response carries an
// ErrorCode, a message, and an optional details map, mirroring the
// python implementation's exceptions.py.
package apperr

import "fmt"

// ErrorCode is the closed set of machine-readable error identifiers
// returned in the API's error envelope.
type ErrorCode string

const (
	CodeInvalidSymbol     ErrorCode = "INVALID_SYMBOL"
	CodeInvalidTimeframe  ErrorCode = "INVALID_TIMEFRAME"
	CodeInvalidTimeRange  ErrorCode = "INVALID_TIME_RANGE"
	CodeInvalidExchange   ErrorCode = "INVALID_EXCHANGE"
	CodeBatchSizeExceeded ErrorCode = "BATCH_SIZE_EXCEEDED"
	CodeValidationError   ErrorCode = "VALIDATION_ERROR"
	CodeExchangeError     ErrorCode = "EXCHANGE_ERROR"
	CodeRateLimitError    ErrorCode = "RATE_LIMIT_ERROR"
	CodeDatabaseError     ErrorCode = "DATABASE_ERROR"
	CodeCacheError        ErrorCode = "CACHE_ERROR"
	CodeInternalError     ErrorCode = "INTERNAL_ERROR"
)

// Error is the common shape of every error this package produces. Kind
// distinguishes client-caused (400) from server-caused (500) failures;
// HTTPStatus maps Kind to a status, except that Code RATE_LIMIT_ERROR
// maps to 429.
type Error struct {
	Kind    Kind
	Code    ErrorCode
	Message string
	Details map[string]any
}

// Kind is the broad client/server split; RateLimitError narrows Server
// further with a retry hint.
type Kind int

const (
	KindClient Kind = iota
	KindServer
)

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ToDict renders the API error envelope from spec.md §6/§7.
func (e *Error) ToDict() map[string]any {
	details := e.Details
	if details == nil {
		details = map[string]any{}
	}
	return map[string]any{
		"error": map[string]any{
			"code":    string(e.Code),
			"message": e.Message,
			"details": details,
		},
	}
}

// NewClient builds a 400-class error.
func NewClient(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: KindClient, Code: code, Message: message, Details: details}
}

// NewServer builds a 500-class error.
func NewServer(code ErrorCode, message string, details map[string]any) *Error {
	return &Error{Kind: KindServer, Code: code, Message: message, Details: details}
}

// RateLimitError is a ServerError narrowing with a suggested retry delay,
// raised when an exchange adapter reports rate limiting (spec.md §4.3/§7).
// Err is the RATE_LIMIT_ERROR envelope that src/api hands to src/server.
type RateLimitError struct {
	Err           *Error
	Exchange      string
	RetryAfterSec int
}

func (e *RateLimitError) Error() string { return e.Err.Error() }

// NewRateLimit mirrors python's RateLimitError(exchange, retry_after).
func NewRateLimit(exchange string, retryAfterSec int) *RateLimitError {
	if retryAfterSec <= 0 {
		retryAfterSec = 60
	}
	return &RateLimitError{
		Err: &Error{
			Kind:    KindServer,
			Code:    CodeRateLimitError,
			Message: fmt.Sprintf("rate limit exceeded for %s", exchange),
			Details: map[string]any{
				"exchange":            exchange,
				"retry_after_seconds": retryAfterSec,
			},
		},
		Exchange:      exchange,
		RetryAfterSec: retryAfterSec,
	}
}

// HTTPStatus maps an error's kind/code to the HTTP status spec.md §7 requires.
func HTTPStatus(err error) int {
	var rl *RateLimitError
	if asRateLimit(err, &rl) {
		return 429
	}
	var e *Error
	if asError(err, &e) {
		if e.Code == CodeRateLimitError {
			return 429
		}
		if e.Kind == KindClient {
			return 400
		}
		return 500
	}
	return 500
}

func asError(err error, out **Error) bool {
	if e, ok := err.(*Error); ok {
		*out = e
		return true
	}
	return false
}

func asRateLimit(err error, out **RateLimitError) bool {
	if e, ok := err.(*RateLimitError); ok {
		*out = e
		return true
	}
	return false
}
