package cmd

import (
	"time"

	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/persistence/kvstore"
	"github.com/khanhnv2901/pagesentry/internal/observability"
	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	DataDir   string
	SessionID string
	Telemetry bool
	Store     StoreConfig
	Scan      ScanRuntimeConfig
	Sweep     SweepConfig
	Log       observability.LoggerConfig
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend     string
	PostgresDSN string
}

// ScanRuntimeConfig consolidates detector orchestration settings.
type ScanRuntimeConfig struct {
	DetectorTimeout   time.Duration
	Parallel          bool
	MaxParallel       int
	DisabledDetectors []string
	SecretRulesFile   string
}

// SweepConfig controls the periodic expiry sweep of the API server.
type SweepConfig struct {
	Interval time.Duration
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		DataDir:   consts.DefaultDataDir,
		Telemetry: true,
		Store: StoreConfig{
			Backend: kv.BackendFile,
		},
		Scan: ScanRuntimeConfig{
			DetectorTimeout: scanapp.DefaultDetectorTimeout,
			MaxParallel:     scanapp.DefaultMaxParallel,
		},
		Sweep: SweepConfig{
			Interval: kvstore.DefaultSweepInterval,
		},
		Log: observability.DefaultLoggerConfig(),
	}
}

// loadConfigFile copies every key present in the config file or environment
// into cfg. Flags are applied afterwards by applyConfigDefaults.
func loadConfigFile(cfg *CLIConfig) {
	if viper.IsSet("data_dir") {
		cfg.DataDir = viper.GetString("data_dir")
	}
	if viper.IsSet("session_id") {
		cfg.SessionID = viper.GetString("session_id")
	}
	if viper.IsSet("telemetry") {
		cfg.Telemetry = viper.GetBool("telemetry")
	}

	if viper.IsSet("store.backend") {
		cfg.Store.Backend = viper.GetString("store.backend")
	}
	if viper.IsSet("store.postgres_dsn") {
		cfg.Store.PostgresDSN = viper.GetString("store.postgres_dsn")
	}

	if viper.IsSet("scan.detector_timeout") {
		cfg.Scan.DetectorTimeout = viper.GetDuration("scan.detector_timeout")
	}
	if viper.IsSet("scan.parallel") {
		cfg.Scan.Parallel = viper.GetBool("scan.parallel")
	}
	if viper.IsSet("scan.max_parallel") {
		cfg.Scan.MaxParallel = viper.GetInt("scan.max_parallel")
	}
	if viper.IsSet("scan.disabled_detectors") {
		cfg.Scan.DisabledDetectors = viper.GetStringSlice("scan.disabled_detectors")
	}
	if viper.IsSet("scan.secret_rules_file") {
		cfg.Scan.SecretRulesFile = viper.GetString("scan.secret_rules_file")
	}

	if viper.IsSet("sweep.interval") {
		cfg.Sweep.Interval = viper.GetDuration("sweep.interval")
	}

	if viper.IsSet("log.level") {
		cfg.Log.Level = viper.GetString("log.level")
	}
	if viper.IsSet("log.format") {
		cfg.Log.Format = viper.GetString("log.format")
	}
	if viper.IsSet("log.file") {
		cfg.Log.File = viper.GetString("log.file")
	}
	if viper.IsSet("log.max_size_mb") {
		cfg.Log.MaxSizeMB = viper.GetInt("log.max_size_mb")
	}
	if viper.IsSet("log.max_backups") {
		cfg.Log.MaxBackups = viper.GetInt("log.max_backups")
	}
	if viper.IsSet("log.max_age_days") {
		cfg.Log.MaxAgeDays = viper.GetInt("log.max_age_days")
	}
	if viper.IsSet("log.compress") {
		cfg.Log.Compress = viper.GetBool("log.compress")
	}
}

// applyConfigDefaults merges config file values into the runtime config, then
// lets explicitly set persistent flags win.
func applyConfigDefaults(cmd *cobra.Command) {
	loadConfigFile(cliConfig)

	flags := cmd.Flags()
	applyStringFlag(flags, "data-dir", func(v string) { cliConfig.DataDir = v })
	applyStringFlag(flags, "session", func(v string) { cliConfig.SessionID = v })
	applyStringFlag(flags, "store", func(v string) { cliConfig.Store.Backend = v })
	applyStringFlag(flags, "log-level", func(v string) { cliConfig.Log.Level = v })
	applyBoolFlag(flags, "telemetry", func(v bool) { cliConfig.Telemetry = v })
	applyBoolFlag(flags, "parallel", func(v bool) { cliConfig.Scan.Parallel = v })
	applyDurationFlag(flags, "detector-timeout", func(v time.Duration) { cliConfig.Scan.DetectorTimeout = v })
	applyIntFlag(flags, "max-parallel", func(v int) { cliConfig.Scan.MaxParallel = v })
}

func applyStringFlag(flags *pflag.FlagSet, name string, setter func(string)) {
	if flag := changedFlag(flags, name); flag != nil {
		setter(flag.Value.String())
	}
}

func applyBoolFlag(flags *pflag.FlagSet, name string, setter func(bool)) {
	if changedFlag(flags, name) == nil {
		return
	}
	if v, err := flags.GetBool(name); err == nil {
		setter(v)
	}
}

func applyIntFlag(flags *pflag.FlagSet, name string, setter func(int)) {
	if changedFlag(flags, name) == nil {
		return
	}
	if v, err := flags.GetInt(name); err == nil {
		setter(v)
	}
}

func applyDurationFlag(flags *pflag.FlagSet, name string, setter func(time.Duration)) {
	if changedFlag(flags, name) == nil {
		return
	}
	if v, err := flags.GetDuration(name); err == nil {
		setter(v)
	}
}

func changedFlag(flags *pflag.FlagSet, name string) *pflag.Flag {
	if flags == nil {
		return nil
	}
	flag := flags.Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	return flag
}
