package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/khanhnv2901/pagesentry/internal/detector"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/spf13/cobra"
)

var detectorsCmd = &cobra.Command{
	Use:         "detectors",
	Short:       "List the registered detectors and the vulnerability catalog",
	Annotations: map[string]string{annotationStandalone: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		registry := detector.NewBuiltinRegistry(detector.Options{Disabled: appCtx.Config.Scan.DisabledDetectors})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Detectors (%d, in run order):\n", registry.Len())
		for _, name := range registry.Names() {
			fmt.Fprintf(out, "  %s\n", name)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, "Vulnerability catalog:")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  ID\tSEVERITY\tCATEGORY\tNAME")
		for _, vt := range finding.Catalog() {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", vt.ID, formatSeverityWithColor(vt.Severity), vt.Category, vt.Name)
		}
		return tw.Flush()
	},
}
