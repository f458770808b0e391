package finding

import "unicode/utf8"

// MaxEvidenceLength bounds the evidence excerpt carried by a finding.
const MaxEvidenceLength = 200

const ellipsis = "..."

// Finding is one detected weakness. Values are never mutated after a
// detector emits them; the With* helpers return modified copies.
type Finding struct {
	TypeID         TypeID   `json:"typeId"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Location       string   `json:"location"`
	Evidence       string   `json:"evidence"`
	Recommendation string   `json:"recommendation"`
	Severity       Severity `json:"severity"`
}

// New builds a finding whose severity comes from the catalog entry for id.
// Unknown ids produce a finding with an empty severity.
func New(id TypeID, title, description string) Finding {
	vt, _ := Lookup(id)
	return Finding{
		TypeID:      id,
		Title:       title,
		Description: description,
		Severity:    vt.Severity,
	}
}

// WithLocation returns a copy with the location set.
func (f Finding) WithLocation(location string) Finding {
	f.Location = location
	return f
}

// WithEvidence returns a copy carrying evidence truncated to MaxEvidenceLength.
func (f Finding) WithEvidence(evidence string) Finding {
	f.Evidence = Truncate(evidence, MaxEvidenceLength)
	return f
}

// WithRecommendation returns a copy with the recommendation set.
func (f Finding) WithRecommendation(recommendation string) Finding {
	f.Recommendation = recommendation
	return f
}

// Truncate cuts s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string([]rune(s)[:limit])
	}
	return string([]rune(s)[:limit-len(ellipsis)]) + ellipsis
}

// Excerpt keeps the first n runes of s and always appends an ellipsis,
// the way secret evidence is masked.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r) + ellipsis
}
