package kvstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

const rateLimitKeyPrefix = "ratelimit:"

type windowDTO struct {
	ScanCount   int   `json:"scanCount"`
	WindowStart int64 `json:"windowStart"`
	ResetAt     int64 `json:"resetAt"`
}

var _ ratelimit.Limiter = (*RateLimiter)(nil)

// RateLimiter implements ratelimit.Limiter over a kv.Store
type RateLimiter struct {
	store kv.Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewRateLimiter creates a limiter persisting windows to store
func NewRateLimiter(store kv.Store, opts ...Option) *RateLimiter {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &RateLimiter{store: store, now: o.now}
}

// Status reports admission for the session without persisting anything
func (l *RateLimiter) Status(ctx context.Context, sessionID string) (ratelimit.Status, error) {
	if sessionID == "" {
		return ratelimit.Status{}, sharedErrors.ErrEmptySessionID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, err := l.load(ctx, sessionID, now)
	if err != nil {
		return ratelimit.Status{}, err
	}
	return ratelimit.StatusOf(w.Current(now)), nil
}

// Record counts one scan for the session
func (l *RateLimiter) Record(ctx context.Context, sessionID string) (ratelimit.Status, error) {
	if sessionID == "" {
		return ratelimit.Status{}, sharedErrors.ErrEmptySessionID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, err := l.load(ctx, sessionID, now)
	if err != nil {
		return ratelimit.Status{}, err
	}
	w = w.Current(now)
	w.ScanCount++

	data, err := encode(windowDTO{
		ScanCount:   w.ScanCount,
		WindowStart: toMillis(w.WindowStart),
		ResetAt:     toMillis(w.ResetAt),
	})
	if err != nil {
		return ratelimit.Status{}, repoErr("encode rate limit", err)
	}
	if err := l.store.Set(ctx, rateLimitKey(sessionID), data); err != nil {
		return ratelimit.Status{}, repoErr("save rate limit", err)
	}
	return ratelimit.StatusOf(w), nil
}

// Reset drops the session's window
func (l *RateLimiter) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return sharedErrors.ErrEmptySessionID
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Delete(ctx, rateLimitKey(sessionID)); err != nil {
		return repoErr("reset rate limit", err)
	}
	return nil
}

func (l *RateLimiter) load(ctx context.Context, sessionID string, now time.Time) (ratelimit.WindowState, error) {
	data, err := l.store.Get(ctx, rateLimitKey(sessionID))
	if err != nil {
		if errors.Is(err, sharedErrors.ErrKeyNotFound) {
			return ratelimit.Fresh(now), nil
		}
		return ratelimit.WindowState{}, repoErr("load rate limit", err)
	}

	var dto windowDTO
	if err := decode(data, &dto); err != nil {
		return ratelimit.WindowState{}, repoErr("decode rate limit", err)
	}
	return ratelimit.WindowState{
		ScanCount:   dto.ScanCount,
		WindowStart: fromMillis(dto.WindowStart),
		ResetAt:     fromMillis(dto.ResetAt),
	}, nil
}

func rateLimitKey(sessionID string) string { return rateLimitKeyPrefix + sessionID }
