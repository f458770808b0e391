package cmd

import (
	"fmt"
	"os"
	"strings"

	scanapp "github.com/khanhnv2901/pagesentry/internal/application/scan"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	"github.com/khanhnv2901/pagesentry/internal/observability"
	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var logger *zap.SugaredLogger

// annotationStandalone marks commands that never touch the store
const annotationStandalone = "pagesentry/standalone"

var rootCmd = &cobra.Command{
	Use:           consts.AppName,
	Short:         "Passive security scanner for loaded web pages",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initConfig()
		applyConfigDefaults(cmd)

		// init logger
		base := observability.NewLogger(cliConfig.Log, zapcore.Lock(os.Stderr))
		logger = base.Sugar()

		if cmd.Annotations[annotationStandalone] == "true" {
			storeAppContext(cmd, &AppContext{Logger: logger, Config: cliConfig})
			return nil
		}

		appCtx, err := newAppContext(cmd.Context(), cliConfig, base)
		if err != nil {
			return err
		}
		storeAppContext(cmd, appCtx)

		logger.Debugw("initialized", "session", appCtx.SessionID, "data_dir", appCtx.DataDir, "store", cliConfig.Store.Backend)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		if appCtx == nil {
			return nil
		}
		if err := appCtx.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
		if appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
		return nil
	},
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName("." + consts.AppName)
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix(consts.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, colorError("Error:"), err)
		os.Exit(exitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pagesentry.yaml)")
	flags.String("data-dir", consts.DefaultDataDir, "directory for the file store and telemetry")
	flags.String("session", "", "session ID to scan under (default: persisted guest session)")
	flags.String("store", kv.BackendFile, "store backend: memory, file or postgres")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("telemetry", true, "append scan telemetry to the data directory")
	flags.Bool("parallel", false, "run detectors concurrently")
	flags.Int("max-parallel", scanapp.DefaultMaxParallel, "maximum detectors running at once in parallel mode")
	flags.Duration("detector-timeout", scanapp.DefaultDetectorTimeout, "per-detector timeout")

	// add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(detectorsCmd)
	rootCmd.AddCommand(versionCmd)
}
