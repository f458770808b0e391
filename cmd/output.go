package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/risk"
)

// formatScanTime describes how long ago a scan was taken
func formatScanTime(scannedAt, now time.Time) string {
	elapsed := now.Sub(scannedAt)
	minutes := int(elapsed / time.Minute)
	switch {
	case minutes < 1:
		return "Scanned just now"
	case minutes < 60:
		return fmt.Sprintf("Scanned %d minute%s ago", minutes, plural(minutes))
	default:
		hours := minutes / 60
		return fmt.Sprintf("Scanned %d hour%s ago", hours, plural(hours))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func writeJSONOutput(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

func printScan(out io.Writer, s *scan.Scan, now time.Time) {
	score := s.RiskScore()
	counts := s.Counts()

	fmt.Fprintf(out, "%s %s\n", colorInfo("→"), s.URL())
	fmt.Fprintf(out, "  %s\n", colorMuted(formatScanTime(s.ScannedAt(), now)))
	fmt.Fprintf(out, "  Risk score: %d/%d (%s)\n", score, risk.MaxScore, formatLevelWithColor(risk.LevelOf(score)))
	fmt.Fprintf(out, "  %s\n", risk.Describe(score))
	fmt.Fprintf(out, "  Critical: %d  High: %d  Medium: %d  Low: %d  Total: %d\n",
		counts.Critical, counts.High, counts.Medium, counts.Low, counts.Total)

	findings := s.Findings()
	if len(findings) == 0 {
		fmt.Fprintf(out, "\n%s No vulnerabilities detected\n", colorSuccess("✓"))
		return
	}

	grouped := risk.GroupBySeverity(findings)
	for _, sev := range finding.Severities() {
		for _, f := range grouped[sev] {
			printFinding(out, f)
		}
	}
}

func printFinding(out io.Writer, f finding.Finding) {
	fmt.Fprintf(out, "\n  [%s] %s\n", formatSeverityWithColor(f.Severity), f.Title)
	if f.Description != "" {
		fmt.Fprintf(out, "    %s\n", f.Description)
	}
	if f.Location != "" {
		fmt.Fprintf(out, "    Location: %s\n", f.Location)
	}
	if f.Evidence != "" {
		fmt.Fprintf(out, "    Evidence: %s\n", strings.ReplaceAll(f.Evidence, "\n", " "))
	}
	if f.Recommendation != "" {
		fmt.Fprintf(out, "    Fix: %s\n", f.Recommendation)
	}
}

func printRateStatus(out io.Writer, st ratelimit.Status, now time.Time) {
	fmt.Fprintf(out, "Scans used: %d/%d\n", st.ScanCount, ratelimit.Limit)
	fmt.Fprintf(out, "Remaining:  %d\n", st.Remaining)
	fmt.Fprintf(out, "Resets in:  %s\n", ratelimit.FormatTimeRemaining(st.ResetAt, now))
	if !st.Allowed {
		fmt.Fprintf(out, "%s rate limit reached\n", colorWarn("!"))
	}
}

func printDenied(out io.Writer, st ratelimit.Status, now time.Time) {
	fmt.Fprintf(out, "%s Rate limit reached: %d scans per hour.\n", colorWarn("!"), ratelimit.Limit)
	fmt.Fprintf(out, "  Next scan available in %s\n", ratelimit.FormatTimeRemaining(st.ResetAt, now))
}

func printStats(out io.Writer, stats scan.Stats) {
	fmt.Fprintf(out, "Scans (last hour):      %d\n", stats.TotalScans)
	fmt.Fprintf(out, "Vulnerabilities found:  %d\n", stats.TotalVulnerabilities)
	fmt.Fprintf(out, "Average risk score:     %d\n", stats.AverageRiskScore)
}
