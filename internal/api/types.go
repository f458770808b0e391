package api

import (
	"time"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/domain/ratelimit"
	"github.com/khanhnv2901/pagesentry/internal/domain/scan"
	"github.com/khanhnv2901/pagesentry/internal/page"
	"github.com/khanhnv2901/pagesentry/internal/risk"
)

type ScanRequest struct {
	SessionID    string `json:"session_id"`
	URL          string `json:"url"`
	HTML         string `json:"html"`
	Cookies      string `json:"cookies"`
	Framed       bool   `json:"framed"`
	ParentOrigin string `json:"parent_origin"`
}

// Input converts the request body into page input
func (r ScanRequest) Input() page.Input {
	return page.Input{
		URL:          r.URL,
		HTML:         r.HTML,
		Cookies:      r.Cookies,
		Framed:       r.Framed,
		ParentOrigin: r.ParentOrigin,
	}
}

type CountsResponse struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

type ScanResponse struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	URL         string            `json:"url"`
	ScannedAt   time.Time         `json:"scanned_at"`
	ExpiresAt   time.Time         `json:"expires_at"`
	Findings    []finding.Finding `json:"findings"`
	Counts      CountsResponse    `json:"counts"`
	RiskScore   int               `json:"risk_score"`
	RiskLevel   string            `json:"risk_level"`
	RiskSummary string            `json:"risk_summary"`
}

type RateLimitResponse struct {
	Allowed       bool      `json:"allowed"`
	Remaining     int       `json:"remaining"`
	ScanCount     int       `json:"scan_count"`
	Limit         int       `json:"limit"`
	ResetAt       time.Time `json:"reset_at"`
	TimeRemaining string    `json:"time_remaining,omitempty"`
}

type ScanSubmitResponse struct {
	Scan            ScanResponse      `json:"scan"`
	RateLimit       RateLimitResponse `json:"rate_limit"`
	FailedDetectors []string          `json:"failed_detectors,omitempty"`
}

type RateLimitExceededResponse struct {
	Error         string            `json:"error"`
	TimeRemaining string            `json:"time_remaining"`
	RateLimit     RateLimitResponse `json:"rate_limit"`
}

type StatsResponse struct {
	TotalScans           int `json:"total_scans"`
	TotalVulnerabilities int `json:"total_vulnerabilities"`
	AverageRiskScore     int `json:"average_risk_score"`
}

// NewScanResponse renders a scan with its risk banding
func NewScanResponse(s *scan.Scan) ScanResponse {
	c := s.Counts()
	return ScanResponse{
		ID:        s.ID(),
		SessionID: s.SessionID(),
		URL:       s.URL(),
		ScannedAt: s.ScannedAt(),
		ExpiresAt: s.ExpiresAt(),
		Findings:  s.Findings(),
		Counts: CountsResponse{
			Critical: c.Critical,
			High:     c.High,
			Medium:   c.Medium,
			Low:      c.Low,
			Total:    c.Total,
		},
		RiskScore:   s.RiskScore(),
		RiskLevel:   string(risk.LevelOf(s.RiskScore())),
		RiskSummary: risk.Describe(s.RiskScore()),
	}
}

// NewRateLimitResponse renders an admission status
func NewRateLimitResponse(st ratelimit.Status) RateLimitResponse {
	return RateLimitResponse{
		Allowed:   st.Allowed,
		Remaining: st.Remaining,
		ScanCount: st.ScanCount,
		Limit:     ratelimit.Limit,
		ResetAt:   st.ResetAt,
	}
}
