package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

const (
	exitFailure     = 1
	exitUsage       = 2
	exitRateLimited = 3
)

// RateLimitedError reports a scan refused because the session used up its window.
type RateLimitedError struct {
	ResetAt time.Time
	Now     time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit reached (%d scans per hour), try again in %s",
		ratelimit.Limit, ratelimit.FormatTimeRemaining(e.ResetAt, e.Now))
}

func (e *RateLimitedError) Unwrap() error { return sharedErrors.ErrRateLimitReached }

// InputError signals unusable command line input.
type InputError struct {
	Flag   string
	Reason string
}

func (e *InputError) Error() string {
	if e.Flag == "" {
		return e.Reason
	}
	return fmt.Sprintf("--%s: %s", e.Flag, e.Reason)
}

func exitCode(err error) int {
	var inputErr *InputError
	switch {
	case errors.Is(err, sharedErrors.ErrRateLimitReached):
		return exitRateLimited
	case errors.As(err, &inputErr),
		errors.Is(err, sharedErrors.ErrInvalidSnapshot),
		errors.Is(err, sharedErrors.ErrInvalidInput),
		errors.Is(err, sharedErrors.ErrEmptySessionID):
		return exitUsage
	default:
		return exitFailure
	}
}
