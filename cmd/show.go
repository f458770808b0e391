package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/api"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the latest scan of a URL from the last hour",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		url, _ := cmd.Flags().GetString("url")
		asJSON, _ := cmd.Flags().GetBool("json")
		url = strings.TrimSpace(url)
		if url == "" {
			return &InputError{Flag: "url", Reason: "is required"}
		}

		current, err := appCtx.Services.ScanService.Current(cmd.Context(), appCtx.SessionID, url)
		if err != nil {
			return fmt.Errorf("failed to load scan: %w", err)
		}

		out := cmd.OutOrStdout()
		if current == nil {
			fmt.Fprintf(out, "No scan of %s in the last hour\n", url)
			return nil
		}
		if asJSON {
			return writeJSONOutput(out, api.NewScanResponse(current))
		}
		printScan(out, current, time.Now())
		return nil
	},
}

func init() {
	showCmd.Flags().String("url", "", "URL of the page (required)")
	showCmd.Flags().Bool("json", false, "print the scan as JSON")
}
