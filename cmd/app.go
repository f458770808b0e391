package cmd

import (
	"context"
	"fmt"

	"github.com/khanhnv2901/pagesentry/internal/application"
	"github.com/khanhnv2901/pagesentry/internal/detector"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AppContext carries the resolved configuration and services of one command run.
type AppContext struct {
	Logger    *zap.SugaredLogger
	SessionID string
	DataDir   string
	Config    *CLIConfig
	Services  *application.Container
}

// Close releases the services, if any were opened
func (a *AppContext) Close() error {
	if a == nil || a.Services == nil {
		return nil
	}
	return a.Services.Close()
}

type appContextKey struct{}

var globalAppContext *AppContext

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil && cmd.Context() != nil {
		if appCtx, ok := cmd.Context().Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	return globalAppContext
}

// containerConfig translates the CLI configuration for the service container
func containerConfig(cfg *CLIConfig, dataDir string) (application.Config, error) {
	opts := detector.Options{Disabled: cfg.Scan.DisabledDetectors}
	if cfg.Scan.SecretRulesFile != "" {
		rules, err := detector.LoadSecretRules(cfg.Scan.SecretRulesFile)
		if err != nil {
			return application.Config{}, fmt.Errorf("failed to load secret rules: %w", err)
		}
		opts.SecretRules = rules
	}

	return application.Config{
		Store: kv.Config{
			Backend:     cfg.Store.Backend,
			DataDir:     dataDir,
			PostgresDSN: cfg.Store.PostgresDSN,
		},
		Detectors:       opts,
		DetectorTimeout: cfg.Scan.DetectorTimeout,
		Parallel:        cfg.Scan.Parallel,
		MaxParallel:     cfg.Scan.MaxParallel,
	}, nil
}

func newAppContext(ctx context.Context, cfg *CLIConfig, base *zap.Logger) (*AppContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	containerCfg, err := containerConfig(cfg, dataDir)
	if err != nil {
		return nil, err
	}
	services, err := application.NewContainer(ctx, containerCfg, base)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID, err = services.Sessions.GuestID(ctx)
		if err != nil {
			_ = services.Close()
			return nil, fmt.Errorf("failed to resolve guest session: %w", err)
		}
	}

	return &AppContext{
		Logger:    base.Sugar(),
		SessionID: sessionID,
		DataDir:   dataDir,
		Config:    cfg,
		Services:  services,
	}, nil
}
