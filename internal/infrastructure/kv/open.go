package kv

import (
	"context"
	"fmt"
	"strings"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"go.uber.org/zap"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend     string
	DataDir     string
	PostgresDSN string
}

// Open builds the configured backend. An empty backend means file.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case "", BackendFile:
		return NewFile(cfg.DataDir)
	case BackendPostgres:
		return OpenPostgres(ctx, cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", sharedErrors.ErrInvalidInput, cfg.Backend)
	}
}
