package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidDates = errors.New("checkOut must be after checkIn")

	ErrConfigAbsent = errors.New("provider not configured")
	ErrAuthFailed   = errors.New("provider authentication failed")
	ErrNoMatch      = errors.New("no match")
	ErrUpstream     = errors.New("upstream error")
)

type ErrorKind string

const (
	KindNone         ErrorKind = "ok"
	KindConfigAbsent ErrorKind = "config_absent"
	KindAuthFailed   ErrorKind = "auth_failed"
	KindNoMatch      ErrorKind = "no_match"
	KindUpstream     ErrorKind = "upstream"
	KindTimeout      ErrorKind = "timeout"
)

// ProviderError is what a provider client returns internally instead of an empty slice.
// The aggregator collapses it to zero listings after logging it.
type ProviderError struct {
	Provider Source
	Kind     ErrorKind
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrConfigAbsent:
		return e.Kind == KindConfigAbsent
	case ErrAuthFailed:
		return e.Kind == KindAuthFailed
	case ErrNoMatch:
		return e.Kind == KindNoMatch
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

// NewProviderError classifies err by the sentinel it wraps; unknown errors are upstream errors.
func NewProviderError(p Source, op string, err error) *ProviderError {
	return &ProviderError{Provider: p, Kind: KindOf(err), Op: op, Err: err}
}

// KindOf maps any error to its ErrorKind.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &pe):
		return pe.Kind
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrConfigAbsent):
		return KindConfigAbsent
	case errors.Is(err, ErrAuthFailed):
		return KindAuthFailed
	case errors.Is(err, ErrNoMatch):
		return KindNoMatch
	default:
		return KindUpstream
	}
}
