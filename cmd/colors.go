package cmd

import (
	"github.com/fatih/color"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/risk"
)

var (
	colorSuccess  = color.New(color.FgGreen).SprintFunc()
	colorInfo     = color.New(color.FgCyan).SprintFunc()
	colorWarn     = color.New(color.FgYellow).SprintFunc()
	colorError    = color.New(color.FgRed).SprintFunc()
	colorCritical = color.New(color.FgRed, color.Bold).SprintFunc()
	colorMuted    = color.New(color.FgHiBlack).SprintFunc()
)

func formatSeverityWithColor(sev finding.Severity) string {
	label := string(sev)
	switch sev {
	case finding.SeverityCritical:
		return colorCritical(label)
	case finding.SeverityHigh:
		return colorError(label)
	case finding.SeverityMedium:
		return colorWarn(label)
	case finding.SeverityLow:
		return colorInfo(label)
	default:
		return label
	}
}

func formatLevelWithColor(level risk.Level) string {
	label := string(level)
	switch level {
	case risk.LevelNone:
		return colorSuccess(label)
	case risk.LevelLow:
		return colorInfo(label)
	case risk.LevelMedium:
		return colorWarn(label)
	case risk.LevelHigh:
		return colorError(label)
	default:
		return colorCritical(label)
	}
}
