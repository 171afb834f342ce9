// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes callers must tell apart. Concrete
// error types below wrap them so errors.Is works on either.
var (
	ErrValidation     = errors.New("validation failed")
	ErrRateLimited    = errors.New("rate limited")
	ErrUpstream       = errors.New("upstream error")
	ErrClassification = errors.New("classification failed")
)

// ValidationError reports a bad input term or filter. It is never retried.
// Suggestion, when set, offers terms the caller could search instead.
type ValidationError struct {
	Field      string
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("invalid %s: %s (try: %s)", e.Field, e.Reason, e.Suggestion)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UpstreamError reports a literature API call that failed after retries or
// returned a response that does not match the documented shape.
type UpstreamError struct {
	Op     string
	Status int
	Err    error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": upstream error"
	}
}

// Is lets errors.Is(err, ErrUpstream) match while Unwrap exposes the cause.
func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

func (e *UpstreamError) Unwrap() error { return e.Err }

// ClassificationError reports a failed classification for one study. The
// pipeline downgrades it to a neutral result.
type ClassificationError struct {
	StudyID string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classifying study %s: %v", e.StudyID, e.Err)
}

func (e *ClassificationError) Is(target error) bool { return target == ErrClassification }

func (e *ClassificationError) Unwrap() error { return e.Err }

// IsRetryable reports whether the caller may retry after backing off.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstream)
}
