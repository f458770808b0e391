package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/khanhnv2901/pagesentry/cmd/testutil"
	"github.com/khanhnv2901/pagesentry/internal/application"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// setupTestAppContext installs an AppContext backed by an in-memory store.
func setupTestAppContext(t *testing.T) (*AppContext, *testutil.TestEnv) {
	t.Helper()

	env := testutil.NewTestEnv(t)
	cfg := newCLIConfig()
	cfg.DataDir = env.DataDir
	cfg.SessionID = env.SessionID

	appCtx := &AppContext{
		Logger:    zap.NewNop().Sugar(),
		SessionID: env.SessionID,
		DataDir:   env.DataDir,
		Config:    cfg,
		Services:  env.Container(application.Config{}),
	}

	original := globalAppContext
	globalAppContext = appCtx
	t.Cleanup(func() {
		globalAppContext = original
		env.Cleanup()
	})
	return appCtx, env
}

// runCommand executes c's RunE with args against appCtx and returns stdout.
// Flags start from their defaults on every call.
func runCommand(t *testing.T, c *cobra.Command, appCtx *AppContext, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(c.Flags())
	t.Cleanup(func() { resetFlags(c.Flags()) })

	if err := c.ParseFlags(args); err != nil {
		t.Fatalf("failed to parse flags %v: %v", args, err)
	}

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetIn(bytes.NewBufferString(stdin))
	c.SetContext(context.Background())
	original := globalAppContext
	storeAppContext(c, appCtx)
	t.Cleanup(func() {
		globalAppContext = original
		c.SetOut(nil)
		c.SetIn(nil)
	})

	err := c.RunE(c, c.Flags().Args())
	return out.String(), err
}

func resetFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}
