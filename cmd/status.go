package cmd

import (
	"fmt"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/api"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the scan rate limit of this session",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")

		st, err := appCtx.Services.ScanService.RateStatus(cmd.Context(), appCtx.SessionID)
		if err != nil {
			return fmt.Errorf("failed to read rate limit: %w", err)
		}

		now := time.Now()
		out := cmd.OutOrStdout()
		if asJSON {
			resp := api.NewRateLimitResponse(st)
			resp.TimeRemaining = ratelimit.FormatTimeRemaining(st.ResetAt, now)
			return writeJSONOutput(out, resp)
		}
		fmt.Fprintf(out, "Session:    %s\n", appCtx.SessionID)
		printRateStatus(out, st, now)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "print the status as JSON")
}
