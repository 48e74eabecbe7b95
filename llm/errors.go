package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FailureKind classifies provider failures so callers can pick the right
// fallback without inspecting provider-specific errors.
type FailureKind int

const (
	FailureTimeout FailureKind = iota
	FailureRateLimited
	FailureInvalidResponse
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureRateLimited:
		return "rate_limited"
	case FailureInvalidResponse:
		return "invalid_response"
	default:
		return "unknown"
	}
}

// ProviderError is a typed, recoverable external-provider failure.
type ProviderError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: provider %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: provider %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Timeout wraps err as a provider timeout.
func Timeout(op string, err error) error {
	return &ProviderError{Kind: FailureTimeout, Op: op, Err: err}
}

// RateLimited wraps err as a provider rate-limit rejection.
func RateLimited(op string, err error) error {
	return &ProviderError{Kind: FailureRateLimited, Op: op, Err: err}
}

// InvalidResponse wraps err as a malformed provider response.
func InvalidResponse(op string, err error) error {
	return &ProviderError{Kind: FailureInvalidResponse, Op: op, Err: err}
}

// IsRetryable reports whether a failed provider call is worth retrying with
// backoff. Rate limits and timeouts are transient; a malformed response will
// not improve by asking again.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == FailureTimeout || pe.Kind == FailureRateLimited
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
