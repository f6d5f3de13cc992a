package connector

import (
	"errors"
	"fmt"
)

// Error is a recoverable vendor fetch failure, carrying enough context to
// isolate it to one poll target or query facet.
type Error struct {
	Source string
	Op     string // "ticker", "orderbook", "trades", "markets"
	Symbol string // empty for source-level operations
	Err    error
}

func (e *Error) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Source, e.Op, e.Symbol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapErr wraps err as a connector Error unless it already is one.
func wrapErr(source, op, symbol string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Source: source, Op: op, Symbol: symbol, Err: err}
}

// HTTPError represents an error response from a vendor endpoint.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
