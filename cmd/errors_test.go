package cmd

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitedError(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	err := &RateLimitedError{ResetAt: now.Add(42 * time.Minute), Now: now}

	assert.Equal(t, "rate limit reached (10 scans per hour), try again in 42 mins", err.Error())
	assert.ErrorIs(t, err, sharedErrors.ErrRateLimitReached)

	wrapped := fmt.Errorf("scan: %w", err)
	var target *RateLimitedError
	assert.True(t, errors.As(wrapped, &target))
}

func TestInputError(t *testing.T) {
	assert.Equal(t, "--url: is required", (&InputError{Flag: "url", Reason: "is required"}).Error())
	assert.Equal(t, "pick one", (&InputError{Reason: "pick one"}).Error())
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "rate limited", err: &RateLimitedError{}, want: exitRateLimited},
		{name: "wrapped rate limit", err: fmt.Errorf("x: %w", sharedErrors.ErrRateLimitReached), want: exitRateLimited},
		{name: "input", err: &InputError{Flag: "file", Reason: "missing"}, want: exitUsage},
		{name: "snapshot", err: fmt.Errorf("scan failed: %w", sharedErrors.ErrInvalidSnapshot), want: exitUsage},
		{name: "invalid input", err: sharedErrors.ErrInvalidInput, want: exitUsage},
		{name: "empty session", err: sharedErrors.ErrEmptySessionID, want: exitUsage},
		{name: "other", err: errors.New("disk full"), want: exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
