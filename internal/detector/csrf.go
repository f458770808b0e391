package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var csrfTokenNames = []string{
	"csrf", "csrf_token", "csrftoken", "_csrf", "_csrf_token",
	"authenticity_token", "_token", "token", "__requestverificationtoken",
	"anti_csrf", "xsrf", "xsrf_token", "_xsrf",
}

var stateChangingAjax = []*regexp.Regexp{
	regexp.MustCompile(`(?i)fetch\s*\(\s*['"][^'"]*['"]\s*,\s*\{[^}]*method\s*:\s*['"](?:POST|PUT|PATCH|DELETE)['"]`),
	regexp.MustCompile(`(?i)\.ajax\s*\(\s*\{[^}]*type\s*:\s*['"](?:POST|PUT|PATCH|DELETE)['"]`),
	regexp.MustCompile(`(?i)\.post\s*\(`),
	regexp.MustCompile(`(?i)XMLHttpRequest.*?open\s*\(\s*['"](?:POST|PUT|PATCH|DELETE)['"]`),
}

var csrfHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)X-CSRF-Token`),
	regexp.MustCompile(`(?i)X-XSRF-Token`),
	regexp.MustCompile(`(?i)X-CSRFToken`),
	regexp.MustCompile(`(?i)X-RequestVerificationToken`),
	regexp.MustCompile(`(?i)csrf[_-]?token`),
}

var stateChangingKeywords = []string{"delete", "remove", "update", "edit", "create", "add", "save"}

// CSRFDetector finds state-changing requests that carry no anti-forgery token.
type CSRFDetector struct{}

func (CSRFDetector) Name() string { return "csrf" }

func (CSRFDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	forms := snap.Elements("form")

	unprotected := 0
	for _, form := range forms {
		method := strings.ToLower(form.AttrValue("method"))
		if method == "" {
			method = "get"
		}
		if method == "get" || formHasCSRFToken(form) {
			continue
		}
		unprotected++
		action := form.AttrValue("action")
		if action == "" {
			action = "current page"
		}
		findings = append(findings, finding.New(finding.TypeCSRF,
			"Form Without CSRF Token",
			fmt.Sprintf("%s form without CSRF protection token detected", strings.ToUpper(method))).
			WithLocation(fmt.Sprintf("Form with action=%q", action)).
			WithEvidence(fmt.Sprintf("Method: %s, Action: %s", strings.ToUpper(method), action)).
			WithRecommendation("Add CSRF token to all state-changing forms. Use synchronizer token pattern or double-submit cookie. Enable SameSite cookie attribute."))
	}

	scripts := snap.ScriptText()
	hasAjax := false
	for _, p := range stateChangingAjax {
		if p.MatchString(scripts) {
			hasAjax = true
			break
		}
	}
	if hasAjax && !anyMatch(csrfHeaderPatterns, scripts) {
		findings = append(findings, finding.New(finding.TypeCSRF,
			"AJAX Requests Without CSRF Protection",
			"State-changing AJAX requests detected without CSRF token headers").
			WithLocation("JavaScript AJAX calls").
			WithEvidence("POST/PUT/PATCH/DELETE requests without CSRF headers").
			WithRecommendation("Add CSRF token to AJAX request headers: X-CSRF-Token. Read token from meta tag or cookie."))
	}

	hasMeta := false
	for _, meta := range snap.Elements("meta") {
		if name := meta.AttrValue("name"); containsAny(name, "csrf", "token") {
			hasMeta = true
			break
		}
	}
	if (unprotected > 0 || hasAjax) && !hasMeta {
		findings = append(findings, finding.New(finding.TypeCSRF,
			"No CSRF Token Meta Tag Found",
			"Site has state-changing operations but no CSRF token meta tag detected").
			WithLocation("HTML head").
			WithEvidence(`No <meta name="csrf-token"> found`).
			WithRecommendation(`Add CSRF token to page: <meta name="csrf-token" content="token_value">. Include in all state-changing requests.`))
	}

	var dangerous []string
	for _, form := range forms {
		method, ok := form.Attr("method")
		if ok && !strings.EqualFold(method, "get") {
			continue
		}
		action := strings.ToLower(form.AttrValue("action"))
		if getFormChangesState(form, action) {
			if action == "" {
				action = "current page"
			}
			dangerous = append(dangerous, action)
		}
	}
	if len(dangerous) > 0 {
		findings = append(findings, finding.New(finding.TypeCSRF,
			"State-Changing GET Requests",
			fmt.Sprintf("Found %d GET form(s) that appear to change state, making them vulnerable to CSRF", len(dangerous))).
			WithLocation("GET forms").
			WithEvidence(strings.Join(head(dangerous, 3), ", ")).
			WithRecommendation("Use POST, PUT, PATCH, or DELETE for state-changing operations. Never use GET for actions that modify data."))
	}
	return findings, nil
}

func formHasCSRFToken(form page.Element) bool {
	for _, input := range form.Descendants("input") {
		if !input.HasAttr("name") && !strings.EqualFold(input.AttrValue("type"), "hidden") {
			continue
		}
		name := strings.ToLower(input.AttrValue("name"))
		if containsAny(name, csrfTokenNames...) {
			return true
		}
	}
	return false
}

func getFormChangesState(form page.Element, action string) bool {
	names := make([]string, 0)
	for _, input := range form.Descendants("input") {
		names = append(names, strings.ToLower(input.AttrValue("name")))
	}
	for _, kw := range stateChangingKeywords {
		if strings.Contains(action, kw) {
			return true
		}
		for _, n := range names {
			if strings.Contains(n, kw) {
				return true
			}
		}
	}
	return false
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
