package finding

import "strings"

// Severity ranks how serious a finding is.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Severities lists the known severities from most to least serious.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}
}

// IsKnown reports whether s is one of the four recognized severities.
// Findings submitted from outside may carry any string.
func (s Severity) IsKnown() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity accepts any casing of a known severity.
func ParseSeverity(value string) (Severity, bool) {
	for _, s := range Severities() {
		if strings.EqualFold(string(s), strings.TrimSpace(value)) {
			return s, true
		}
	}
	return Severity(value), false
}
