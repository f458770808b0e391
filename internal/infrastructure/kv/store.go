// Package kv provides the byte-oriented key/value backends that scans and
// rate-limit windows are persisted to.
//
// Three backends satisfy Store:
//   - Memory keeps entries in process, for tests and one-shot runs
//   - File keeps one JSON file per key under a data directory
//   - Postgres keeps entries in a single kv_entries table
//
// Backends do not serialize read-modify-write sequences across keys; the
// repositories built on top hold their own locks.
package kv

import (
	"context"
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

// Store is a flat key/value store. Get returns sharedErrors.ErrKeyNotFound
// for absent keys; Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key cannot be empty", sharedErrors.ErrInvalidInput)
	}
	return nil
}
