package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

const cspHeader = "Content-Security-Policy"

// CSPDetector flags pages that carry inline content but no CSP meta tag.
type CSPDetector struct{}

func (CSPDetector) Name() string { return "csp" }

func (CSPDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(snap.MetaHTTPEquiv(cspHeader)) > 0 {
		return nil, nil
	}

	scripts := len(snap.InlineScripts())
	styles := len(snap.Elements("style"))
	handlers := len(snap.ElementsWithAttr("onclick", "onerror", "onload"))
	if scripts == 0 && styles == 0 && handlers == 0 {
		return nil, nil
	}

	return []finding.Finding{
		finding.New(finding.TypeMissingCSP,
			"Content Security Policy Not Implemented",
			"No CSP meta tag found and inline content is present. CSP helps prevent XSS and injection attacks.").
			WithLocation("HTTP Headers / Meta tags").
			WithEvidence(fmt.Sprintf("Found %d inline scripts, %d inline styles, %d inline event handlers", scripts, styles, handlers)).
			WithRecommendation(`Implement Content-Security-Policy header: "default-src 'self'; script-src 'self'; style-src 'self'; object-src 'none';"`),
	}, nil
}

var (
	scriptSrcWildcard  = regexp.MustCompile(`script-src[^;]*\*`)
	scriptSrcData      = regexp.MustCompile(`script-src[^;]*data:`)
	defaultSrcWildcard = regexp.MustCompile(`default-src[^;]*\*`)
)

// weakCSPCheck is one rule applied to a CSP meta value.
type weakCSPCheck struct {
	title          string
	description    string
	recommendation string
	weak           func(policy string) bool
}

var weakCSPChecks = []weakCSPCheck{
	{
		title:          "CSP Contains unsafe-inline",
		description:    "Content Security Policy uses unsafe-inline directive, which defeats the purpose of CSP by allowing inline scripts",
		recommendation: "Remove unsafe-inline from CSP. Use nonces or hashes for inline scripts. Move inline scripts to external files.",
		weak:           func(p string) bool { return strings.Contains(p, "'unsafe-inline'") },
	},
	{
		title:          "CSP Contains unsafe-eval",
		description:    "Content Security Policy uses unsafe-eval directive, allowing eval() and similar dangerous functions",
		recommendation: "Remove unsafe-eval from CSP. Refactor code to eliminate eval() usage. Use JSON.parse() for JSON data.",
		weak:           func(p string) bool { return strings.Contains(p, "'unsafe-eval'") },
	},
	{
		title:          "CSP Uses Wildcard in script-src",
		description:    "Content Security Policy uses wildcard (*) in script-src, allowing scripts from any domain",
		recommendation: "Replace wildcard with specific trusted domains. Use strict allowlist of script sources.",
		weak:           scriptSrcWildcard.MatchString,
	},
	{
		title:          "CSP Allows data: URLs in Scripts",
		description:    "Content Security Policy allows data: URLs in script-src, which can be exploited for XSS",
		recommendation: "Remove data: from script-src. Use external script files or nonces/hashes for inline scripts.",
		weak:           scriptSrcData.MatchString,
	},
	{
		title:          "Weak default-src Directive",
		description:    "Content Security Policy has overly permissive default-src with wildcard or unsafe-inline",
		recommendation: "Set default-src to 'self' and specify individual directives for each resource type.",
		weak: func(p string) bool {
			return defaultSrcWildcard.MatchString(p) || strings.Contains(p, "default-src 'unsafe-inline'")
		},
	},
	{
		title:          "CSP Missing object-src Restriction",
		description:    "Content Security Policy does not restrict object-src, allowing potentially dangerous plugins",
		recommendation: "Add object-src 'none' to CSP to prevent Flash and other plugin-based attacks.",
		weak: func(p string) bool {
			return !strings.Contains(p, "object-src 'none'") && !strings.Contains(p, "object-src'none'")
		},
	},
}

// WeakCSPDetector audits every CSP meta tag for permissive directives.
type WeakCSPDetector struct{}

func (WeakCSPDetector) Name() string { return "weak-csp" }

func (WeakCSPDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	for _, meta := range snap.MetaHTTPEquiv(cspHeader) {
		policy := meta.AttrValue("content")
		for _, check := range weakCSPChecks {
			if !check.weak(policy) {
				continue
			}
			findings = append(findings, finding.New(finding.TypeWeakCSP, check.title, check.description).
				WithLocation("CSP meta tag").
				WithEvidence(policy).
				WithRecommendation(check.recommendation))
		}
	}
	return findings, nil
}
