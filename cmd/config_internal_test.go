package cmd

import (
	"testing"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanConfig(t *testing.T) {
	t.Helper()
	original := cliConfig
	cliConfig = newCLIConfig()
	viper.Reset()
	t.Cleanup(func() {
		cliConfig = original
		viper.Reset()
	})
}

func newFlagCommand() *cobra.Command {
	c := &cobra.Command{Use: "test"}
	flags := c.Flags()
	flags.String("data-dir", "", "")
	flags.String("session", "", "")
	flags.String("store", kv.BackendFile, "")
	flags.String("log-level", "info", "")
	flags.Bool("telemetry", true, "")
	flags.Bool("parallel", false, "")
	flags.Duration("detector-timeout", 5*time.Second, "")
	flags.Int("max-parallel", 4, "")
	return c
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	assert.True(t, cfg.Telemetry)
	assert.Equal(t, kv.BackendFile, cfg.Store.Backend)
	assert.Positive(t, cfg.Scan.DetectorTimeout)
	assert.Positive(t, cfg.Scan.MaxParallel)
	assert.Positive(t, cfg.Sweep.Interval)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoadConfigFile(t *testing.T) {
	withCleanConfig(t)

	viper.Set("data_dir", "/srv/pagesentry")
	viper.Set("session_id", "analyst")
	viper.Set("telemetry", false)
	viper.Set("store.backend", "postgres")
	viper.Set("store.postgres_dsn", "postgres://localhost/pagesentry")
	viper.Set("scan.detector_timeout", "2s")
	viper.Set("scan.parallel", true)
	viper.Set("scan.max_parallel", 8)
	viper.Set("scan.disabled_detectors", []string{"cors", "clickjacking"})
	viper.Set("scan.secret_rules_file", "rules.yaml")
	viper.Set("sweep.interval", "30s")
	viper.Set("log.level", "debug")
	viper.Set("log.format", "console")
	viper.Set("log.file", "/var/log/pagesentry.log")
	viper.Set("log.max_size_mb", 50)
	viper.Set("log.compress", true)

	cfg := newCLIConfig()
	loadConfigFile(cfg)

	assert.Equal(t, "/srv/pagesentry", cfg.DataDir)
	assert.Equal(t, "analyst", cfg.SessionID)
	assert.False(t, cfg.Telemetry)
	assert.Equal(t, "postgres", cfg.Store.Backend)
	assert.Equal(t, "postgres://localhost/pagesentry", cfg.Store.PostgresDSN)
	assert.Equal(t, 2*time.Second, cfg.Scan.DetectorTimeout)
	assert.True(t, cfg.Scan.Parallel)
	assert.Equal(t, 8, cfg.Scan.MaxParallel)
	assert.Equal(t, []string{"cors", "clickjacking"}, cfg.Scan.DisabledDetectors)
	assert.Equal(t, "rules.yaml", cfg.Scan.SecretRulesFile)
	assert.Equal(t, 30*time.Second, cfg.Sweep.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "/var/log/pagesentry.log", cfg.Log.File)
	assert.Equal(t, 50, cfg.Log.MaxSizeMB)
	assert.True(t, cfg.Log.Compress)
}

func TestLoadConfigFileKeepsDefaultsForMissingKeys(t *testing.T) {
	withCleanConfig(t)

	cfg := newCLIConfig()
	loadConfigFile(cfg)
	assert.Equal(t, newCLIConfig(), cfg)
}

func TestApplyConfigDefaultsFlagsWin(t *testing.T) {
	withCleanConfig(t)

	viper.Set("session_id", "from-config")
	viper.Set("scan.max_parallel", 8)
	viper.Set("telemetry", true)

	c := newFlagCommand()
	require.NoError(t, c.ParseFlags([]string{
		"--session", "from-flag",
		"--telemetry=false",
		"--detector-timeout", "750ms",
		"--store", "memory",
	}))

	applyConfigDefaults(c)

	assert.Equal(t, "from-flag", cliConfig.SessionID)
	assert.False(t, cliConfig.Telemetry)
	assert.Equal(t, 750*time.Millisecond, cliConfig.Scan.DetectorTimeout)
	assert.Equal(t, "memory", cliConfig.Store.Backend)
	// not set on the command line, so the config file value stands
	assert.Equal(t, 8, cliConfig.Scan.MaxParallel)
}

func TestChangedFlag(t *testing.T) {
	c := newFlagCommand()
	require.NoError(t, c.ParseFlags([]string{"--parallel"}))

	assert.NotNil(t, changedFlag(c.Flags(), "parallel"))
	assert.Nil(t, changedFlag(c.Flags(), "session"))
	assert.Nil(t, changedFlag(c.Flags(), "missing"))
	assert.Nil(t, changedFlag(nil, "parallel"))
}
