package kvstore

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sharedErrors.ErrSerializationFailed, err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", sharedErrors.ErrDeserializationFailed, err)
	}
	return nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func repoErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", sharedErrors.ErrRepositoryOperation, op, err)
}

// Option configures a repository or limiter.
type Option func(*options)

type options struct {
	now func() time.Time
}

func defaultOptions() options {
	return options{now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
