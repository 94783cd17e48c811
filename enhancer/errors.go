package enhancer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/openai/openai-go/v2"
)

// ErrEmptyCompletion indicates the backend returned no choices.
var ErrEmptyCompletion = errors.New("completion has no choices")

// ErrTimeout indicates a generator call exceeded its deadline.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the backend rejected the call with HTTP 429.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrAPI indicates a non-success HTTP response from the backend.
type ErrAPI struct {
	StatusCode int
	Err        error
}

func (e ErrAPI) Error() string {
	return fmt.Errorf("api status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrAPI) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network failure reaching the backend.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrInvalidJSON indicates the response held an object that failed to decode.
type ErrInvalidJSON struct {
	Err error
}

func (e ErrInvalidJSON) Error() string {
	return fmt.Errorf("invalid_json: %w", e.Err).Error()
}

func (e ErrInvalidJSON) Unwrap() error {
	return e.Err
}

// FailureLabel returns the metrics label for an enhancement failure.
func FailureLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, ErrNoJSON) {
		return "no_json"
	}
	var invalid ErrInvalidJSON
	if errors.As(err, &invalid) {
		return "invalid_json"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var apiErr ErrAPI
	if errors.As(err, &apiErr) {
		return "api"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "other"
}

// classifyError wraps raw generator errors into the typed errors above.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: err}
		case apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout:
			return ErrTimeout{Err: err}
		default:
			return ErrAPI{StatusCode: apiErr.StatusCode, Err: err}
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}
	return err
}

// retryable reports whether a classified error may succeed on another attempt.
func retryable(err error) bool {
	var timeout ErrTimeout
	var rateLimited ErrRateLimited
	var conn ErrConnection
	var apiErr ErrAPI
	switch {
	case errors.As(err, &timeout), errors.As(err, &rateLimited), errors.As(err, &conn):
		return true
	case errors.As(err, &apiErr):
		return apiErr.StatusCode >= http.StatusInternalServerError
	case errors.Is(err, ErrEmptyCompletion):
		return true
	default:
		return false
	}
}
