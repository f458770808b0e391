package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

// MixedContentDetector reports HTTP subresources on HTTPS pages.
type MixedContentDetector struct{}

func (MixedContentDetector) Name() string { return "mixed-content" }

func (MixedContentDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !snap.IsHTTPS() {
		return nil, nil
	}

	insecure := func(tags []page.Element, attr string) []string {
		var out []string
		for _, el := range tags {
			raw, ok := el.Attr(attr)
			if !ok || raw == "" {
				continue
			}
			if abs := snap.ResolveString(raw); strings.HasPrefix(abs, "http://") {
				out = append(out, abs)
			}
		}
		return out
	}

	var stylesheets []page.Element
	for _, link := range snap.Elements("link") {
		if strings.EqualFold(strings.TrimSpace(link.AttrValue("rel")), "stylesheet") {
			stylesheets = append(stylesheets, link)
		}
	}

	scripts := insecure(snap.Scripts(), "src")
	styles := insecure(stylesheets, "href")
	images := insecure(snap.Elements("img"), "src")
	iframes := insecure(snap.Elements("iframe"), "src")
	videos := insecure(snap.Elements("video", "source"), "src")
	audios := insecure(snap.Elements("audio"), "src")

	var findings []finding.Finding
	if len(scripts) > 0 {
		findings = append(findings, finding.New(finding.TypeMixedContent,
			"Mixed Content: HTTP Scripts on HTTPS Page",
			fmt.Sprintf("Found %d script(s) loaded over HTTP, which can be intercepted and modified by attackers", len(scripts))).
			WithLocation("Script tags").
			WithEvidence(strings.Join(head(scripts, 3), ", ")).
			WithRecommendation("Change all script URLs to HTTPS. This is CRITICAL as scripts can be modified to inject malicious code."))
	}
	if len(styles) > 0 {
		findings = append(findings, finding.New(finding.TypeMixedContent,
			"Mixed Content: HTTP Stylesheets on HTTPS Page",
			fmt.Sprintf("Found %d stylesheet(s) loaded over HTTP", len(styles))).
			WithLocation("Link tags").
			WithEvidence(strings.Join(head(styles, 3), ", ")).
			WithRecommendation("Change all stylesheet URLs to HTTPS. HTTP stylesheets can be modified to steal data or inject content."))
	}
	if len(images) > 0 {
		findings = append(findings, finding.New(finding.TypeMixedContent,
			"Mixed Content: HTTP Images on HTTPS Page",
			fmt.Sprintf("Found %d image(s) loaded over HTTP", len(images))).
			WithLocation("Image tags").
			WithEvidence(fmt.Sprintf("%d HTTP images", len(images))).
			WithRecommendation("Change all image URLs to HTTPS or use protocol-relative URLs (//). HTTP images can leak information."))
	}
	if len(iframes) > 0 {
		findings = append(findings, finding.New(finding.TypeMixedContent,
			"Mixed Content: HTTP Iframes on HTTPS Page",
			fmt.Sprintf("Found %d iframe(s) loaded over HTTP", len(iframes))).
			WithLocation("Iframe tags").
			WithEvidence(strings.Join(head(iframes, 3), ", ")).
			WithRecommendation("Change all iframe URLs to HTTPS. HTTP iframes can compromise page security."))
	}
	if media := len(videos) + len(audios); media > 0 {
		findings = append(findings, finding.New(finding.TypeMixedContent,
			"Mixed Content: HTTP Media on HTTPS Page",
			fmt.Sprintf("Found %d audio/video resource(s) loaded over HTTP", media)).
			WithLocation("Media tags").
			WithEvidence(fmt.Sprintf("%d videos, %d audio files", len(videos), len(audios))).
			WithRecommendation("Change all media URLs to HTTPS to prevent content interception."))
	}
	return findings, nil
}

var httpCallPatterns = []*regexp.Regexp{
	regexp.MustCompile(`fetch\s*\(\s*['"]http://`),
	regexp.MustCompile(`\.ajax\s*\(\s*[{]?[^}]*url\s*:\s*['"]http://`),
	regexp.MustCompile(`XMLHttpRequest.*?open\s*\(\s*['"][^'"]*['"]\s*,\s*['"]http://`),
}

// InsecureFormDetector reports data submitted from HTTPS pages to HTTP endpoints.
type InsecureFormDetector struct{}

func (InsecureFormDetector) Name() string { return "insecure-form" }

func (InsecureFormDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !snap.IsHTTPS() {
		return nil, nil
	}

	var findings []finding.Finding
	for _, form := range snap.Elements("form") {
		action := form.AttrValue("action")
		if !strings.HasPrefix(action, "http://") {
			continue
		}
		method := strings.ToLower(form.AttrValue("method"))
		if method == "" {
			method = "get"
		}
		findings = append(findings, finding.New(finding.TypeInsecureFormEndpoint,
			"Form Submits to HTTP Endpoint",
			"Form on HTTPS page submits to insecure HTTP endpoint: "+action).
			WithLocation(fmt.Sprintf("Form with action=%q", action)).
			WithEvidence(fmt.Sprintf("Method: %s, Action: %s", strings.ToUpper(method), action)).
			WithRecommendation("Change form action to HTTPS to protect submitted data from interception. Ensure the receiving endpoint supports HTTPS."))

		passwords := 0
		for _, input := range form.Descendants("input") {
			if strings.EqualFold(input.AttrValue("type"), "password") {
				passwords++
			}
		}
		if passwords > 0 {
			findings = append(findings, finding.New(finding.TypeInsecureFormEndpoint,
				"Password Field Submits Over HTTP",
				"Form contains password field(s) but submits to HTTP endpoint").
				WithLocation(fmt.Sprintf("Form with %d password field(s)", passwords)).
				WithEvidence("Password fields submitting to: "+action).
				WithRecommendation("CRITICAL: Change form action to HTTPS immediately. Passwords should never be transmitted over unencrypted connections."))
		}
	}

	scripts := snap.ScriptText()
	for _, p := range httpCallPatterns {
		match := p.FindString(scripts)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeInsecureFormEndpoint,
			"AJAX Request to HTTP from HTTPS",
			"JavaScript makes HTTP requests from HTTPS page, exposing data to interception").
			WithLocation("JavaScript code").
			WithEvidence(prefix(match, 100)).
			WithRecommendation("Change all API endpoints to HTTPS. Enable HSTS on the backend server."))
	}
	return findings, nil
}
