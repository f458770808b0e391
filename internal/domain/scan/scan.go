package scan

import (
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

// Retention is how long a scan stays retrievable after it was taken.
const Retention = time.Hour

// SeverityCounts buckets findings by severity. Total counts every finding,
// including ones whose severity is not recognized.
type SeverityCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Total    int
}

// Scan is the assessed result of inspecting one page for one session.
// It is immutable once built; a newer scan of the same page supersedes it.
type Scan struct {
	id        string
	sessionID string
	url       string
	scannedAt time.Time
	expiresAt time.Time
	findings  []finding.Finding
	counts    SeverityCounts
	riskScore int
}

// New creates a scan taken at scannedAt. Counts and riskScore must come from
// the risk aggregator applied to findings.
func New(sessionID, url string, findings []finding.Finding, counts SeverityCounts, riskScore int, scannedAt time.Time) (*Scan, error) {
	if sessionID == "" {
		return nil, sharedErrors.ErrEmptySessionID
	}
	if url == "" {
		return nil, sharedErrors.ErrEmptyURL
	}

	return &Scan{
		id:        uuid.NewString(),
		sessionID: sessionID,
		url:       url,
		scannedAt: scannedAt,
		expiresAt: scannedAt.Add(Retention),
		findings:  cloneFindings(findings),
		counts:    counts,
		riskScore: riskScore,
	}, nil
}

// Reconstruct creates a scan from persisted data
func Reconstruct(id, sessionID, url string, scannedAt, expiresAt time.Time,
	findings []finding.Finding, counts SeverityCounts, riskScore int) *Scan {
	return &Scan{
		id:        id,
		sessionID: sessionID,
		url:       url,
		scannedAt: scannedAt,
		expiresAt: expiresAt,
		findings:  cloneFindings(findings),
		counts:    counts,
		riskScore: riskScore,
	}
}

// IsExpired reports whether the scan is past its retention at now.
func (s *Scan) IsExpired(now time.Time) bool {
	return !now.Before(s.expiresAt)
}

// Supersedes reports whether s replaces other as the current scan of a page.
func (s *Scan) Supersedes(other *Scan) bool {
	return s.sessionID == other.sessionID && s.url == other.url
}

// Getters

func (s *Scan) ID() string { return s.id }
func (s *Scan) SessionID() string { return s.sessionID }
func (s *Scan) URL() string { return s.url }
func (s *Scan) ScannedAt() time.Time { return s.scannedAt }
func (s *Scan) ExpiresAt() time.Time { return s.expiresAt }
func (s *Scan) Counts() SeverityCounts { return s.counts }
func (s *Scan) RiskScore() int { return s.riskScore }
func (s *Scan) FindingCount() int { return len(s.findings) }
func (s *Scan) Findings() []finding.Finding { return cloneFindings(s.findings) }

func cloneFindings(in []finding.Finding) []finding.Finding {
	out := make([]finding.Finding, len(in))
	copy(out, in)
	return out
}
