package detector

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

const (
	issueWildcardCORS     = "Wildcard CORS"
	issueCORSCredentials  = "CORS with credentials"
	issueFetchCredentials = "Fetch with credentials"
	issueXHRCredentials   = "XHR with credentials"
)

var corsPatterns = []struct {
	issue   string
	pattern *regexp.Regexp
}{
	{issueWildcardCORS, regexp.MustCompile(`(?i)Access-Control-Allow-Origin['"]?\s*:\s*['"]?\*['"]?`)},
	{issueCORSCredentials, regexp.MustCompile(`(?i)Access-Control-Allow-Credentials['"]?\s*:\s*['"]?true['"]?`)},
	{issueFetchCredentials, regexp.MustCompile(`(?i)credentials\s*:\s*['"]?include['"]?`)},
	{issueXHRCredentials, regexp.MustCompile(`(?i)withCredentials\s*=\s*true`)},
}

var crossOriginCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fetch\s*\(\s*['"]https?://([^'"]+)['"]`),
	regexp.MustCompile(`(?i)\.ajax\s*\(\s*[{]?[^}]*url\s*:\s*['"]https?://([^'"]+)['"]`),
	regexp.MustCompile(`(?i)XMLHttpRequest.*?open\s*\(\s*['"][^'"]*['"]\s*,\s*['"]https?://([^'"]+)['"]`),
}

var postMessageCall = regexp.MustCompile(`(?i)postMessage\s*\(`)

// CORSDetector looks for permissive cross-origin configuration and calls.
type CORSDetector struct{}

func (CORSDetector) Name() string { return "cors" }

func (CORSDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	for _, meta := range snap.Elements("meta") {
		equiv := meta.AttrValue("http-equiv")
		if !strings.Contains(equiv, "Access-Control-Allow-Origin") || meta.AttrValue("content") != "*" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeCORSMisconfiguration,
			"Wildcard CORS Policy",
			"Access-Control-Allow-Origin set to * (wildcard), allowing any domain to access resources").
			WithLocation("Meta tag").
			WithEvidence(equiv+": *").
			WithRecommendation("Restrict CORS to specific trusted domains. Never use * for APIs with sensitive data."))
	}

	scripts := snap.ScriptText()
	found := make(map[string]bool)
	var issues []string
	for _, p := range corsPatterns {
		if p.pattern.MatchString(scripts) {
			found[p.issue] = true
			issues = append(issues, p.issue)
		}
	}
	if found[issueWildcardCORS] {
		findings = append(findings, finding.New(finding.TypeCORSMisconfiguration,
			"CORS Wildcard Configuration in Code",
			"Found Access-Control-Allow-Origin: * configuration in JavaScript code").
			WithLocation("JavaScript code").
			WithEvidence("Wildcard CORS policy detected").
			WithRecommendation("Use specific origins instead of wildcard. Validate origins server-side."))
	}
	if found[issueCORSCredentials] || found[issueFetchCredentials] || found[issueXHRCredentials] {
		findings = append(findings, finding.New(finding.TypeCORSMisconfiguration,
			"CORS Requests with Credentials",
			"Cross-origin requests are configured to send credentials (cookies, auth headers)").
			WithLocation("JavaScript code").
			WithEvidence("Found: "+strings.Join(issues, ", ")).
			WithRecommendation("Ensure server validates Origin header when using credentials. Never combine credentials with wildcard CORS."))
	}

	var origins []string
	for _, p := range crossOriginCallPatterns {
		for _, m := range p.FindAllStringSubmatch(scripts, -1) {
			u, err := url.Parse("https://" + m[1])
			if err != nil || u.Host == "" {
				continue
			}
			if origin := page.Origin(u); origin != snap.Origin() {
				origins = append(origins, origin)
			}
		}
	}
	if origins = uniqueStrings(origins); len(origins) > 0 {
		findings = append(findings, finding.New(finding.TypeCORSMisconfiguration,
			"Cross-Origin API Calls Detected",
			fmt.Sprintf("Found %d different cross-origin API call(s). Ensure proper CORS configuration.", len(origins))).
			WithLocation("JavaScript API calls").
			WithEvidence(strings.Join(head(origins, 3), ", ")).
			WithRecommendation("Verify CORS configuration on all API endpoints. Use allowlist of trusted origins. Validate Origin header server-side."))
	}

	if postMessageCall.MatchString(scripts) {
		findings = append(findings, finding.New(finding.TypeCORSMisconfiguration,
			"postMessage Usage Detected",
			"Cross-window messaging detected. Ensure proper origin validation.").
			WithLocation("JavaScript code").
			WithEvidence("postMessage() calls found").
			WithRecommendation(`Always validate message origin in postMessage handlers: if (event.origin !== "https://trusted.com") return;`))
	}
	return findings, nil
}
