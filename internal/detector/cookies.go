package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var cookieAssignment = regexp.MustCompile(`document\.cookie\s*=`)

var sessionCookieHints = []string{"session", "sess", "token", "auth", "login", "user"}

// CookieDetector infers weak cookie attributes from what scripts can read.
// Attributes themselves are invisible to page scripts, so every check here
// works from names and counts.
type CookieDetector struct{}

func (CookieDetector) Name() string { return "cookies" }

func (CookieDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cookies := snap.Cookies()
	if len(cookies) == 0 {
		return nil, nil
	}

	names := make([]string, len(cookies))
	var sessionNames []string
	for i, c := range cookies {
		names[i] = c.Name
		if containsAny(strings.ToLower(c.Name), sessionCookieHints...) {
			sessionNames = append(sessionNames, c.Name)
		}
	}

	var findings []finding.Finding
	if snap.IsHTTPS() {
		findings = append(findings, finding.New(finding.TypeInsecureCookies,
			"Cookies Accessible to JavaScript",
			fmt.Sprintf("Found %d cookie(s) accessible to JavaScript. These cookies likely lack HttpOnly flag.", len(cookies))).
			WithLocation("document.cookie").
			WithEvidence(fmt.Sprintf("%d cookies found: %s", len(cookies), strings.Join(head(names, 3), ", "))).
			WithRecommendation("Set HttpOnly flag on sensitive cookies to prevent XSS attacks from stealing them. Use Secure flag on HTTPS sites."))
	}

	if len(sessionNames) > 0 {
		findings = append(findings, finding.New(finding.TypeInsecureCookies,
			"Session Cookies Accessible to JavaScript",
			fmt.Sprintf("Found %d session/authentication cookie(s) accessible via JavaScript", len(sessionNames))).
			WithLocation("document.cookie").
			WithEvidence("Session cookies: "+strings.Join(head(sessionNames, 3), ", ")).
			WithRecommendation("CRITICAL: Set HttpOnly flag on all session cookies. Set Secure flag on HTTPS. Set SameSite=Strict or Lax."))
	}

	if snap.IsHTTPS() {
		findings = append(findings, finding.New(finding.TypeInsecureCookies,
			"Cookies May Lack Secure Flag",
			"Cookies found on HTTPS site. Verify all cookies have Secure flag to prevent transmission over HTTP.").
			WithLocation("document.cookie").
			WithEvidence(fmt.Sprintf("%d cookies on HTTPS site", len(cookies))).
			WithRecommendation("Set Secure flag on all cookies for HTTPS sites: Set-Cookie: name=value; Secure; HttpOnly; SameSite=Strict"))
	}

	if cookieAssignment.MatchString(snap.ScriptText()) {
		findings = append(findings, finding.New(finding.TypeInsecureCookies,
			"Cookies Set via JavaScript",
			"Cookies being set through document.cookie in JavaScript, which cannot set HttpOnly flag").
			WithLocation("JavaScript code").
			WithEvidence("document.cookie assignment found in scripts").
			WithRecommendation("Set cookies on the server-side with proper security flags (Secure, HttpOnly, SameSite)."))
	}

	postForms := 0
	for _, form := range snap.Elements("form") {
		if strings.EqualFold(form.AttrValue("method"), "post") {
			postForms++
		}
	}
	if postForms > 0 && len(sessionNames) > 0 {
		findings = append(findings, finding.New(finding.TypeInsecureCookies,
			"POST Forms with Session Cookies",
			"Site has POST forms and session cookies. Ensure cookies have SameSite attribute to prevent CSRF.").
			WithLocation(fmt.Sprintf("%d POST form(s)", postForms)).
			WithEvidence(fmt.Sprintf("Session cookies present with %d POST forms", postForms)).
			WithRecommendation("Set SameSite=Strict or SameSite=Lax on all cookies to prevent CSRF attacks."))
	}
	return findings, nil
}
