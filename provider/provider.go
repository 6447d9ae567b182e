// Package provider defines the market data fetch contract consumed by
// the refresh orchestrator. Implementations fetch one symbol at a time;
// no ordering is assumed between fetches.
package provider

import (
	"context"
	"errors"
	"fmt"

	"sectorview/database/types"
)

// ErrorKind classifies a fetch failure. The orchestrator retries
// KindRateLimited with backoff and skips the rest; no fetch failure is
// ever fatal to a whole refresh on its own.
type ErrorKind int

const (
	KindNetworkError ErrorKind = iota
	KindRateLimited
	KindParseError
	KindNotFound
)

// String returns the kind's name for logs
func (k ErrorKind) String() string {
	switch k {
	case KindNetworkError:
		return "NetworkError"
	case KindRateLimited:
		return "RateLimited"
	case KindParseError:
		return "ParseError"
	case KindNotFound:
		return "NotFound"
	default:
		return "Unknown"
	}
}

// Error is a typed fetch failure for one symbol
type Error struct {
	Kind   ErrorKind
	Symbol string
	Err    error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Symbol, e.Kind)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed fetch error
func NewError(kind ErrorKind, symbol string, err error) *Error {
	return &Error{Kind: kind, Symbol: symbol, Err: err}
}

// KindOf extracts the error kind; non-provider errors count as network
// failures.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindNetworkError
}

// Fetcher fetches one snapshot per symbol
type Fetcher interface {
	Fetch(ctx context.Context, symbol string) (*types.Snapshot, error)
}

// FetcherFunc is a function adapter for Fetcher
type FetcherFunc func(ctx context.Context, symbol string) (*types.Snapshot, error)

// Fetch implements Fetcher
func (f FetcherFunc) Fetch(ctx context.Context, symbol string) (*types.Snapshot, error) {
	return f(ctx, symbol)
}
