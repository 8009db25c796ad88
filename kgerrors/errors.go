// Package kgerrors defines the typed error taxonomy used at the external
// interface boundary (see server). Internal plumbing still uses wrapped
// sentinel errors (fmt.Errorf with %w); this package exists for errors that
// cross into a caller-facing result.
package kgerrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on it (HTTP
// status mapping, retry policy, and so on).
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConflict            Kind = "conflict"
	KindInvalidInput        Kind = "invalid_input"
	KindQuotaOrLimit        Kind = "quota_or_limit"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindFatal               Kind = "fatal"
	KindPartialSuccess      Kind = "partial_success"
)

// Error is the typed error carried across the external interface boundary.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newErr(kind Kind, msg string, cause error, details map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause, Details: details}
}

// NotFound builds a not_found error, optionally annotated with details
// (e.g. {"concept_id": id}).
func NotFound(msg string, details map[string]any) *Error {
	return newErr(KindNotFound, msg, nil, details)
}

// Conflict builds a conflict error (e.g. job already completed).
func Conflict(msg string, details map[string]any) *Error {
	return newErr(KindConflict, msg, nil, details)
}

// InvalidInput builds an invalid_input error for malformed caller input.
func InvalidInput(msg string, details map[string]any) *Error {
	return newErr(KindInvalidInput, msg, nil, details)
}

// QuotaOrLimit builds a quota_or_limit error (rate limit, vocab_emergency
// ceiling, storage quota).
func QuotaOrLimit(msg string, details map[string]any) *Error {
	return newErr(KindQuotaOrLimit, msg, nil, details)
}

// UpstreamUnavailable wraps a dependency failure (LLM, embedding provider,
// Postgres, NATS) that the caller may retry later.
func UpstreamUnavailable(msg string, cause error) *Error {
	return newErr(KindUpstreamUnavailable, msg, cause, nil)
}

// Fatal builds a non-retryable internal error.
func Fatal(msg string, cause error) *Error {
	return newErr(KindFatal, msg, cause, nil)
}

// PartialSuccess wraps a result that completed with some per-item failures
// (see ingest.Stats).
func PartialSuccess(msg string, details map[string]any) *Error {
	return newErr(KindPartialSuccess, msg, nil, details)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As extracts the *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
