package errors

import (
	"errors"
	"fmt"
)

// Domain error types for the insights pipeline

var (
	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")
)

// Cache errors

var (
	// ErrCacheUnavailable indicates the cache connection could not be established
	// after the configured number of attempts
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrCacheNotPersisted indicates a computed result could not be written back
	ErrCacheNotPersisted = errors.New("cache write-back failed")
)

// Upstream market-data errors

var (
	// ErrFetchExhausted indicates market-data retries were exhausted.
	// Fatal to the current pipeline invocation.
	ErrFetchExhausted = errors.New("market data fetch attempts exhausted")

	// ErrDividendUnavailable indicates dividend data could not be fetched.
	// Never fatal: the pipeline degrades to an empty dividend set.
	ErrDividendUnavailable = errors.New("dividend data unavailable")

	// ErrUpstreamStatus indicates a non-2xx response from the market-data API
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
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
