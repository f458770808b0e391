package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop this session's stored scans",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		resetWindow, _ := cmd.Flags().GetBool("rate-limit")

		if err := appCtx.Services.ScanService.Clear(cmd.Context(), appCtx.SessionID, resetWindow); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s Cleared scans for session %s\n", colorSuccess("✓"), appCtx.SessionID)
		if resetWindow {
			fmt.Fprintf(out, "%s Rate limit window reset\n", colorSuccess("✓"))
		}
		return nil
	},
}

func init() {
	clearCmd.Flags().Bool("rate-limit", false, "also reset the session's rate limit window")
}
