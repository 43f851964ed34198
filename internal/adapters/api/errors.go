package api

import (
	"errors"
	"fmt"
	"time"
)

// Typed failures surfaced by the GitHub client. Transport failures are retried
// internally and only escalate as ErrNetwork after the retry budget is spent;
// the 4xx family is never retried.
var (
	ErrUnauthorized = errors.New("github: token is not valid")
	ErrNotFound     = errors.New("github: resource not found")
	ErrRateLimited  = errors.New("github: rate limit exceeded")
	ErrNetwork      = errors.New("github: network failure")
	ErrUnknown      = errors.New("github: unexpected response")
)

// RateLimitError carries the reset hint from the rate-limit headers. It
// matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s, resets at %s", ErrRateLimited.Error(), e.ResetAt.Format(time.RFC3339))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
