package application

import (
	"context"
	"fmt"
	"time"

	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	"github.com/khanhnv2901/pagesentry/internal/detector"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/persistence/kvstore"
	"go.uber.org/zap"
)

// Config carries everything the container needs to wire the pipeline
type Config struct {
	Store           kv.Config
	Detectors       detector.Options
	DetectorTimeout time.Duration
	Parallel        bool
	MaxParallel     int
}

// Container holds all application services and repositories
// This is a simple dependency injection container
type Container struct {
	// Storage
	Store    kv.Store
	ScanRepo *kvstore.ScanRepository
	Limiter  ratelimit.Limiter
	Sessions *kvstore.SessionStore

	// Services
	Registry     *detector.Registry
	Orchestrator *scanapp.Orchestrator
	ScanService  *scanapp.Service
}

// NewContainer creates a new application service container
func NewContainer(ctx context.Context, cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Initialize storage
	store, err := kv.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", backendName(cfg.Store.Backend), err)
	}
	return NewContainerWithStore(store, cfg, logger), nil
}

// NewContainerWithStore wires the services over an already opened store
func NewContainerWithStore(store kv.Store, cfg Config, logger *zap.Logger) *Container {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanRepo := kvstore.NewScanRepository(store, logger)
	limiter := kvstore.NewRateLimiter(store)

	// Initialize services
	registry := detector.NewBuiltinRegistry(cfg.Detectors)
	orchestrator := scanapp.NewOrchestrator(registry, scanapp.OrchestratorConfig{
		DetectorTimeout: cfg.DetectorTimeout,
		Parallel:        cfg.Parallel,
		MaxParallel:     cfg.MaxParallel,
	}, logger)
	scanService := scanapp.NewService(orchestrator, scanRepo, limiter, logger)

	return &Container{
		Store:        store,
		ScanRepo:     scanRepo,
		Limiter:      limiter,
		Sessions:     kvstore.NewSessionStore(store),
		Registry:     registry,
		Orchestrator: orchestrator,
		ScanService:  scanService,
	}
}

// Repository exposes the scan store behind its domain interface
func (c *Container) Repository() scan.Repository { return c.ScanRepo }

// Close releases the underlying store
func (c *Container) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

func backendName(backend string) string {
	if backend == "" {
		return kv.BackendFile
	}
	return backend
}
