package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var redirectParams = []string{
	"redirect", "redirect_uri", "redirectUri", "redirect_url", "redirectUrl",
	"return", "returnUrl", "return_url", "returnTo", "return_to",
	"next", "nextUrl", "next_url",
	"url", "target", "dest", "destination",
	"continue", "continueTo", "goto", "go",
	"callback", "callbackUrl", "callback_url",
	"out", "view", "to", "redir",
}

var scriptRedirectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)window\.location\s*=\s*(?:urlParams|params|query|location\.search|document\.location\.search)`),
	regexp.MustCompile(`(?i)window\.location\.href\s*=\s*(?:urlParams|params|query|location\.search|document\.location\.search)`),
	regexp.MustCompile(`(?i)location\.replace\s*\(\s*(?:urlParams|params|query|location\.search|document\.location\.search)`),
	regexp.MustCompile(`(?i)window\.open\s*\(\s*(?:urlParams|params|query|location\.search|document\.location\.search)`),
}

func isAbsoluteTarget(v string) bool {
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") || strings.HasPrefix(v, "//")
}

// OpenRedirectDetector finds redirect targets an attacker could control.
type OpenRedirectDetector struct{}

func (OpenRedirectDetector) Name() string { return "open-redirect" }

func (OpenRedirectDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding

	query := snap.Query()
	for _, param := range redirectParams {
		value := query.Get(param)
		if value == "" || !(isAbsoluteTarget(value) || strings.Contains(value, ".")) {
			continue
		}
		findings = append(findings, finding.New(finding.TypeOpenRedirect,
			"Open Redirect Parameter Detected",
			fmt.Sprintf("URL parameter %q contains a redirect target, potential open redirect vulnerability", param)).
			WithLocation("URL parameter: "+param).
			WithEvidence(param+"="+value).
			WithRecommendation("Validate redirect URLs against allowlist of trusted domains. Use relative paths instead of absolute URLs. Never redirect to user-controlled URLs."))
	}

	var links []string
	for _, a := range snap.Elements("a") {
		href := a.AttrValue("href")
		if href == "" {
			continue
		}
		u, err := snap.Resolve(href)
		if err != nil {
			continue
		}
		params := u.Query()
		for _, param := range redirectParams {
			if isAbsoluteTarget(params.Get(param)) {
				links = append(links, href)
			}
		}
	}
	if links = uniqueStrings(links); len(links) > 0 {
		findings = append(findings, finding.New(finding.TypeOpenRedirect,
			"Links with Redirect Parameters",
			fmt.Sprintf("Found %d link(s) containing redirect parameters", len(links))).
			WithLocation("Page links").
			WithEvidence(strings.Join(head(links, 3), ", ")).
			WithRecommendation("Validate all redirect destinations. Implement allowlist of trusted redirect targets."))
	}

	scripts := snap.ScriptText()
	for _, p := range scriptRedirectPatterns {
		match := p.FindString(scripts)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeOpenRedirect,
			"JavaScript Redirect with User Input",
			"JavaScript code redirects to user-controlled URL without validation").
			WithLocation("JavaScript code").
			WithEvidence(match).
			WithRecommendation("Never redirect to user-controlled URLs. Validate against allowlist. Use indirect references (e.g., IDs) instead of URLs."))
	}

	for _, meta := range snap.MetaHTTPEquiv("refresh") {
		content := meta.AttrValue("content")
		if !strings.Contains(content, "url=") {
			continue
		}
		findings = append(findings, finding.New(finding.TypeOpenRedirect,
			"Meta Refresh Redirect",
			"Meta refresh tag used for redirection").
			WithLocation("Meta tag").
			WithEvidence(content).
			WithRecommendation("Use server-side redirects (HTTP 302/301) instead of meta refresh. Validate redirect destinations."))
	}
	return findings, nil
}
