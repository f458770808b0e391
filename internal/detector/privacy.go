package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var trackerDomains = []string{
	"google-analytics.com", "googletagmanager.com", "doubleclick.net",
	"facebook.net", "connect.facebook.net", "facebook.com/tr",
	"analytics.twitter.com", "static.ads-twitter.com",
	"linkedin.com/px", "snap.licdn.com",
	"hotjar.com", "static.hotjar.com",
	"mouseflow.com", "cdn.mouseflow.com",
	"crazyegg.com", "script.crazyegg.com",
	"mixpanel.com", "cdn.mxpnl.com",
	"segment.com", "cdn.segment.com",
	"amplitude.com", "cdn.amplitude.com",
	"fullstory.com", "cdn.fullstory.com",
	"quantserve.com", "pixel.quantserve.com",
	"scorecardresearch.com", "sb.scorecardresearch.com",
	"pinterest.com/ct", "ct.pinterest.com",
	"adsrvr.org", "match.adsrvr.org",
	"adnxs.com", "ib.adnxs.com",
	"amazon-adsystem.com", "aax.amazon-adsystem.com",
	"chartbeat.com", "static.chartbeat.com",
	"inspectlet.com", "cdn.inspectlet.com",
	"clarity.ms", "www.clarity.ms",
	"o2.mouseflow.com",
}

var highRiskTrackers = []string{
	"doubleclick.net",
	"facebook.com/tr",
	"connect.facebook.net",
	"hotjar.com",
	"mouseflow.com",
	"fullstory.com",
	"inspectlet.com",
	"crazyegg.com",
}

var fingerprintingIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)navigator\.plugins`),
	regexp.MustCompile(`(?i)screen\.width.*screen\.height`),
	regexp.MustCompile(`(?i)canvas\.toDataURL`),
	regexp.MustCompile(`(?i)getContext\(['"]2d['"]\)`),
	regexp.MustCompile(`(?i)AudioContext|webkitAudioContext`),
}

const (
	excessiveTrackerThreshold = 5
	consentTrackerThreshold   = 3
)

// TrackersDetector reports third-party tracking, fingerprinting and missing consent.
type TrackersDetector struct{}

func (TrackersDetector) Name() string { return "trackers" }

func (TrackersDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trackerFor := func(src string) string {
		u, err := snap.Resolve(src)
		if err != nil {
			return ""
		}
		host := u.Hostname()
		for _, domain := range trackerDomains {
			if strings.Contains(host, domain) {
				return domain
			}
		}
		return ""
	}

	var scripts []string
	var domains []string
	perDomain := make(map[string]int)
	for _, script := range snap.ExternalScripts() {
		src := script.AttrValue("src")
		if src == "" {
			continue
		}
		domain := trackerFor(src)
		if domain == "" {
			continue
		}
		scripts = append(scripts, src)
		if perDomain[domain] == 0 {
			domains = append(domains, domain)
		}
		perDomain[domain]++
	}

	pixels := 0
	for _, el := range snap.Elements("img", "iframe") {
		if src := el.AttrValue("src"); src != "" && trackerFor(src) != "" {
			pixels++
		}
	}
	total := len(scripts) + pixels

	var findings []finding.Finding
	if total >= excessiveTrackerThreshold {
		parts := make([]string, 0, len(domains))
		for _, d := range head(domains, 5) {
			parts = append(parts, fmt.Sprintf("%s (%d)", d, perDomain[d]))
		}
		findings = append(findings, finding.New(finding.TypeExcessiveTrackers,
			"Excessive Third-Party Trackers",
			fmt.Sprintf("Found %d tracking script(s)/pixel(s) from %d different tracking service(s)", total, len(domains))).
			WithLocation("External scripts and pixels").
			WithEvidence(strings.Join(parts, ", ")).
			WithRecommendation("Minimize third-party trackers to protect user privacy. Consider using privacy-focused alternatives. Implement consent management."))
	}

	var invasive []string
	for _, domain := range highRiskTrackers {
		for _, src := range scripts {
			if strings.Contains(src, domain) {
				invasive = append(invasive, domain)
				break
			}
		}
	}
	if len(invasive) > 0 {
		findings = append(findings, finding.New(finding.TypeExcessiveTrackers,
			"Privacy-Invasive Tracking Services",
			fmt.Sprintf("Found %d privacy-invasive tracking service(s) that may record user behavior", len(invasive))).
			WithLocation("External tracking scripts").
			WithEvidence(strings.Join(invasive, ", ")).
			WithRecommendation("Review necessity of session recording and behavioral tracking. Ensure GDPR/privacy compliance. Implement proper user consent."))
	}

	if anyMatch(fingerprintingIndicators, snap.ScriptText()) {
		findings = append(findings, finding.New(finding.TypeExcessiveTrackers,
			"Browser Fingerprinting Detected",
			"Code detected that may be used for browser fingerprinting").
			WithLocation("JavaScript code").
			WithEvidence("Fingerprinting techniques detected (canvas, audio, plugins)").
			WithRecommendation("Disclose fingerprinting in privacy policy. Consider less invasive tracking methods. Obtain user consent."))
	}

	text := strings.ToLower(snap.BodyText())
	hasConsent := strings.Contains(text, "cookie") && containsAny(text, "consent", "accept", "agree")
	if total >= consentTrackerThreshold && !hasConsent {
		findings = append(findings, finding.New(finding.TypeExcessiveTrackers,
			"No Cookie Consent Banner with Trackers",
			"Multiple tracking services detected but no cookie consent mechanism found").
			WithLocation("Page content").
			WithEvidence(fmt.Sprintf("%d trackers but no consent banner", total)).
			WithRecommendation("Implement cookie consent banner compliant with GDPR/CCPA. Allow users to opt-out of tracking."))
	}
	return findings, nil
}

var deprecatedElements = []struct {
	tag    string
	reason string
}{
	{"applet", "Use object or embed instead"},
	{"basefont", "Use CSS for font styling"},
	{"center", "Use CSS text-align instead"},
	{"dir", "Use ul instead"},
	{"font", "Use CSS for text styling"},
	{"frame", "Use iframe or modern layouts"},
	{"frameset", "Use modern layouts instead"},
	{"isindex", "Use form elements instead"},
	{"marquee", "Use CSS animations instead"},
	{"menu", "Use ul or nav instead"},
	{"noframes", "Frames are deprecated"},
	{"s", "Use del or CSS text-decoration"},
	{"strike", "Use del or CSS text-decoration"},
	{"tt", "Use code or CSS font-family"},
	{"u", "Use CSS text-decoration instead"},
	{"big", "Use CSS font-size instead"},
	{"blink", "Use CSS animations instead"},
}

var deprecatedAttributes = []struct {
	attr     string
	elements []string
	reason   string
}{
	{"align", nil, "Use CSS text-align or flexbox"},
	{"bgcolor", nil, "Use CSS background-color"},
	{"border", []string{"img", "table"}, "Use CSS border"},
	{"height", []string{"img", "td", "th"}, "Use CSS height (except img)"},
	{"width", []string{"img", "td", "th", "table"}, "Use CSS width (except img)"},
	{"name", []string{"a"}, "Use id instead"},
	{"hspace", []string{"img"}, "Use CSS margin"},
	{"vspace", []string{"img"}, "Use CSS margin"},
}

// inlineStyleThreshold is how many styled elements a page may carry before
// it is reported.
const inlineStyleThreshold = 10

// DeprecatedHTMLDetector reports obsolete markup.
type DeprecatedHTMLDetector struct{}

func (DeprecatedHTMLDetector) Name() string { return "deprecated-html" }

func (DeprecatedHTMLDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	for _, d := range deprecatedElements {
		count := len(snap.Elements(d.tag))
		if count == 0 {
			continue
		}
		findings = append(findings, finding.New(finding.TypeDeprecatedHTML,
			fmt.Sprintf("Deprecated <%s> Element Used", d.tag),
			fmt.Sprintf("Found %d deprecated <%s> element(s). %s", count, d.tag, d.reason)).
			WithLocation(fmt.Sprintf("%d <%s> element(s)", count, d.tag)).
			WithEvidence(fmt.Sprintf("<%s> is deprecated in HTML5", d.tag)).
			WithRecommendation(d.reason))
	}

	for _, d := range deprecatedAttributes {
		candidates := snap.Elements(d.elements...)
		count := 0
		for _, el := range candidates {
			if el.HasAttr(d.attr) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		scope := "*"
		if len(d.elements) > 0 {
			scope = strings.Join(d.elements, ", ")
		}
		findings = append(findings, finding.New(finding.TypeDeprecatedHTML,
			fmt.Sprintf("Deprecated %q Attribute Used", d.attr),
			fmt.Sprintf("Found %d element(s) using deprecated %q attribute on %s", count, d.attr, scope)).
			WithLocation(fmt.Sprintf("%d element(s) with %s attribute", count, d.attr)).
			WithEvidence(d.attr+" attribute is deprecated in HTML5").
			WithRecommendation(d.reason))
	}

	if styled := len(snap.ElementsWithAttr("style")); styled > inlineStyleThreshold {
		findings = append(findings, finding.New(finding.TypeDeprecatedHTML,
			"Excessive Inline Styles",
			fmt.Sprintf("Found %d element(s) with inline style attributes", styled)).
			WithLocation(fmt.Sprintf("%d elements", styled)).
			WithEvidence("Excessive use of inline styles").
			WithRecommendation("Move styles to external CSS files for better maintainability and security (CSP compliance)."))
	}

	if dt, ok := snap.Doctype(); ok && (!strings.EqualFold(dt.Name, "html") || dt.PublicID != "" || dt.SystemID != "") {
		decl := "<!DOCTYPE " + dt.Name
		if dt.PublicID != "" {
			decl += ` PUBLIC "` + dt.PublicID + `"`
		}
		if dt.SystemID != "" {
			decl += ` "` + dt.SystemID + `"`
		}
		decl += ">"
		findings = append(findings, finding.New(finding.TypeDeprecatedHTML,
			"Deprecated DOCTYPE",
			"Page uses deprecated DOCTYPE instead of HTML5 DOCTYPE").
			WithLocation("Document type declaration").
			WithEvidence(prefix(decl, 100)).
			WithRecommendation("Use HTML5 DOCTYPE: <!DOCTYPE html>"))
	}
	return findings, nil
}
