package ratelimit

import (
	"context"
	"fmt"
	"time"
)

const (
	// Limit is the number of scans a session may record per window.
	Limit = 10
	// Window is the length of a fixed rate-limit window.
	Window = time.Hour
)

// WindowState tracks scans recorded by one session inside its current window.
type WindowState struct {
	ScanCount   int
	WindowStart time.Time
	ResetAt     time.Time
}

// Fresh opens an empty window starting at now.
func Fresh(now time.Time) WindowState {
	return WindowState{ScanCount: 0, WindowStart: now, ResetAt: now.Add(Window)}
}

// Current applies the lazy reset: an elapsed window reads as a fresh one.
func (w WindowState) Current(now time.Time) WindowState {
	if !now.Before(w.ResetAt) {
		return Fresh(now)
	}
	return w
}

// Status is the admission view of a window.
type Status struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	ScanCount int
}

// StatusOf derives the admission status of an already-current window.
func StatusOf(w WindowState) Status {
	remaining := Limit - w.ScanCount
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   w.ScanCount < Limit,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
		ScanCount: w.ScanCount,
	}
}

// Limiter admits scans per session under a fixed window.
type Limiter interface {
	// Status reports admission without modifying any state
	Status(ctx context.Context, sessionID string) (Status, error)

	// Record counts one scan against the session and never refuses
	Record(ctx context.Context, sessionID string) (Status, error)

	// Reset drops the session's window
	Reset(ctx context.Context, sessionID string) error
}

// FormatTimeRemaining renders the wait until resetAt as whole minutes,
// or seconds when less than a minute is left.
func FormatTimeRemaining(resetAt, now time.Time) string {
	remaining := resetAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	minutes := int(remaining / time.Minute)
	if minutes > 0 {
		return pluralize(minutes, "min")
	}
	return pluralize(int(remaining/time.Second), "sec")
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
