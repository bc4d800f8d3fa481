package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal server error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrExternal indicates an upstream service returned an error
	ErrExternal = errors.New("external service error")
)

// Agent loop errors

var (
	// ErrLoopBudgetExceeded indicates the reasoning/tool round-trip cap was reached
	ErrLoopBudgetExceeded = errors.New("agent loop budget exceeded")

	// ErrNoFinalAnswer indicates the agent loop ended without a usable answer
	ErrNoFinalAnswer = errors.New("no final answer produced")
)

// Market data errors

var (
	// ErrProviderUnavailable indicates the market data provider could not supply data
	ErrProviderUnavailable = errors.New("market data provider unavailable")

	// ErrUnknownSymbol indicates the provider has no data for a symbol
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrRateLimitExceeded indicates a provider rate limit was hit
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// Configuration errors

var (
	// ErrMissingConfig indicates required credentials or configuration are absent.
	// Unlike provider errors this is not recoverable per request.
	ErrMissingConfig = errors.New("missing required configuration")
)

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
