package detector

import (
	"context"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var frameBusting = regexp.MustCompile(`if\s*\(\s*top\s*[!=]=\s*self\s*\)|if\s*\(\s*window\s*[!=]=\s*top\s*\)|top\.location\s*=`)

// ClickjackingDetector checks for framing protection and active framing.
type ClickjackingDetector struct{}

func (ClickjackingDetector) Name() string { return "clickjacking" }

func (ClickjackingDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hasXFO := len(snap.MetaHTTPEquiv("X-Frame-Options")) > 0
	hasFrameAncestors := false
	for _, meta := range snap.MetaHTTPEquiv(cspHeader) {
		if strings.Contains(meta.AttrValue("content"), "frame-ancestors") {
			hasFrameAncestors = true
		}
	}
	protected := hasXFO || hasFrameAncestors

	var findings []finding.Finding
	if !protected {
		evidence := "No frame protection headers found"
		if snap.Framed() {
			evidence = "Page is currently framed"
		}
		findings = append(findings, finding.New(finding.TypeClickjacking,
			"Missing X-Frame-Options and CSP frame-ancestors",
			"No clickjacking protection detected. Site can be embedded in iframes by malicious sites.").
			WithLocation("HTTP Headers / CSP").
			WithEvidence(evidence).
			WithRecommendation(`Add X-Frame-Options header: "SAMEORIGIN" or "DENY". Or use CSP frame-ancestors directive: "frame-ancestors 'self'"`))
	}

	if snap.Framed() {
		parent := snap.ParentOrigin()
		switch {
		case parent == "":
			findings = append(findings, finding.New(finding.TypeClickjacking,
				"Page Framed by Cross-Origin Site",
				"This page is embedded in an iframe from a different origin (cross-origin), possible clickjacking").
				WithLocation("Current page context").
				WithEvidence("Cross-origin iframe detected").
				WithRecommendation("Implement X-Frame-Options: DENY or SAMEORIGIN to prevent cross-origin framing."))
		case !strings.EqualFold(parent, snap.Origin()):
			findings = append(findings, finding.New(finding.TypeClickjacking,
				"Page Currently Framed by Different Origin",
				"This page is embedded in an iframe from a different origin, potential clickjacking attack").
				WithLocation("Current page context").
				WithEvidence("Framed by: "+parent).
				WithRecommendation("Implement frame-busting code or X-Frame-Options header to prevent unauthorized framing."))
		}
	}

	if !protected && frameBusting.MatchString(snap.ScriptText()) {
		findings = append(findings, finding.New(finding.TypeClickjacking,
			"Relying on JavaScript Frame-Busting Only",
			"JavaScript frame-busting detected but no X-Frame-Options header. JS frame-busting can be bypassed.").
			WithLocation("JavaScript code").
			WithEvidence("Frame-busting code found in scripts").
			WithRecommendation("Use X-Frame-Options header or CSP frame-ancestors instead of JavaScript frame-busting."))
	}
	return findings, nil
}
