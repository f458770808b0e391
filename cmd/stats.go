package cmd

import (
	"fmt"

	"github.com/khanhnv2901/pagesentry/internal/api"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize this session's scans from the last hour",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		asJSON, _ := cmd.Flags().GetBool("json")

		stats, err := appCtx.Services.ScanService.Stats(cmd.Context(), appCtx.SessionID)
		if err != nil {
			return fmt.Errorf("failed to compute stats: %w", err)
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return writeJSONOutput(out, api.StatsResponse{
				TotalScans:           stats.TotalScans,
				TotalVulnerabilities: stats.TotalVulnerabilities,
				AverageRiskScore:     stats.AverageRiskScore,
			})
		}
		printStats(out, stats)
		return nil
	},
}

func init() {
	statsCmd.Flags().Bool("json", false, "print the stats as JSON")
}
