// Package risk folds a page's findings into a single score and severity
// breakdown.
package risk

import (
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
)

// MaxScore caps the aggregated risk score.
const MaxScore = 100

var weights = map[finding.Severity]int{
	finding.SeverityCritical: 25,
	finding.SeverityHigh:     15,
	finding.SeverityMedium:   8,
	finding.SeverityLow:      3,
}

// Weight is the score contribution of one finding of severity s.
// Unrecognized severities weigh nothing.
func Weight(s finding.Severity) int {
	return weights[s]
}

// Score sums finding weights, clamped to MaxScore.
func Score(findings []finding.Finding) int {
	total := 0
	for _, f := range findings {
		total += Weight(f.Severity)
		if total >= MaxScore {
			return MaxScore
		}
	}
	return total
}

// Count buckets findings by severity. Total is len(findings), so findings
// with unrecognized severity count toward Total but no bucket.
func Count(findings []finding.Finding) scan.SeverityCounts {
	counts := scan.SeverityCounts{Total: len(findings)}
	for _, f := range findings {
		switch f.Severity {
		case finding.SeverityCritical:
			counts.Critical++
		case finding.SeverityHigh:
			counts.High++
		case finding.SeverityMedium:
			counts.Medium++
		case finding.SeverityLow:
			counts.Low++
		}
	}
	return counts
}

// GroupBySeverity partitions findings into the four known buckets,
// preserving order within each. Unknown severities are dropped.
func GroupBySeverity(findings []finding.Finding) map[finding.Severity][]finding.Finding {
	grouped := make(map[finding.Severity][]finding.Finding, 4)
	for _, s := range finding.Severities() {
		grouped[s] = []finding.Finding{}
	}
	for _, f := range findings {
		if f.Severity.IsKnown() {
			grouped[f.Severity] = append(grouped[f.Severity], f)
		}
	}
	return grouped
}

// Assessment is the aggregated view of one set of findings.
type Assessment struct {
	Score  int
	Counts scan.SeverityCounts
}

// Assess computes Score and Count together.
func Assess(findings []finding.Finding) Assessment {
	return Assessment{Score: Score(findings), Counts: Count(findings)}
}

// Level is a coarse banding of the risk score.
type Level string

const (
	LevelNone     Level = "None"
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// LevelOf bands a score.
func LevelOf(score int) Level {
	switch {
	case score <= 0:
		return LevelNone
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelMedium
	case score < 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Describe renders a human description of a score.
func Describe(score int) string {
	switch LevelOf(score) {
	case LevelNone:
		return "No vulnerabilities detected"
	case LevelLow:
		return "Low risk - Minor issues detected"
	case LevelMedium:
		return "Medium risk - Several issues found"
	case LevelHigh:
		return "High risk - Significant vulnerabilities"
	default:
		return "Critical risk - Severe vulnerabilities detected"
	}
}
