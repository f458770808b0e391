package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

// XSSDetector flags script patterns that commonly lead to cross-site scripting.
type XSSDetector struct{}

func (XSSDetector) Name() string { return "xss" }

func (XSSDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding

	if handlers := snap.ElementsWithAttr("onclick", "onerror", "onload", "onmouseover"); len(handlers) > 0 {
		samples := make([]string, 0, 3)
		for _, el := range head(handlers, 3) {
			samples = append(samples, prefix(el.OuterHTML(), 100))
		}
		findings = append(findings, finding.New(finding.TypeXSSIndicators,
			"Inline Event Handlers Detected",
			fmt.Sprintf("Found %d element(s) with inline event handlers (onclick, onerror, etc.)", len(handlers))).
			WithLocation(fmt.Sprintf("%d element(s) in DOM", len(handlers))).
			WithEvidence(strings.Join(samples, ", ")).
			WithRecommendation("Use addEventListener() instead of inline event handlers. Implement Content Security Policy to prevent inline scripts."))
	}

	inline := snap.InlineScripts()
	texts := make([]string, 0, len(inline))
	for _, script := range inline {
		text := script.Text()
		texts = append(texts, text)
		if strings.Contains(text, "eval(") {
			findings = append(findings, finding.New(finding.TypeXSSIndicators,
				"eval() Usage Detected",
				"Found eval() function in inline script which can execute arbitrary code").
				WithLocation("Inline script tag").
				WithEvidence(prefix(text, 200)).
				WithRecommendation("Avoid using eval(). Use JSON.parse() for JSON data or refactor code to eliminate eval()."))
		}
	}
	joined := strings.Join(texts, " ")

	if strings.Contains(joined, "innerHTML") {
		findings = append(findings, finding.New(finding.TypeXSSIndicators,
			"innerHTML Usage Detected",
			"Found innerHTML usage which can lead to XSS if used with unsanitized user input").
			WithLocation("JavaScript code").
			WithEvidence("innerHTML detected in scripts").
			WithRecommendation("Use textContent, setAttribute(), or createElement() instead of innerHTML. If HTML is required, use DOMPurify library."))
	}

	if strings.Contains(joined, "document.write") {
		findings = append(findings, finding.New(finding.TypeXSSIndicators,
			"document.write() Usage Detected",
			"Found document.write() which can introduce XSS vulnerabilities").
			WithLocation("JavaScript code").
			WithEvidence("document.write() detected in scripts").
			WithRecommendation("Use DOM manipulation methods like appendChild() instead of document.write()."))
	}

	var jsLinks []string
	for _, a := range snap.Elements("a") {
		if href := a.AttrValue("href"); strings.HasPrefix(href, "javascript:") {
			jsLinks = append(jsLinks, href)
		}
	}
	if len(jsLinks) > 0 {
		findings = append(findings, finding.New(finding.TypeXSSIndicators,
			"javascript: Protocol in Links",
			fmt.Sprintf("Found %d link(s) using javascript: protocol", len(jsLinks))).
			WithLocation(fmt.Sprintf("%d anchor element(s)", len(jsLinks))).
			WithEvidence(strings.Join(head(jsLinks, 3), ", ")).
			WithRecommendation("Replace javascript: URLs with proper event handlers or use # with event.preventDefault()."))
	}
	return findings, nil
}
