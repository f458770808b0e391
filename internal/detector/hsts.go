package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

// HSTSDetector looks for missing transport hardening on HTTPS pages.
type HSTSDetector struct{}

func (HSTSDetector) Name() string { return "hsts" }

func (HSTSDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !snap.IsHTTPS() {
		return nil, nil
	}

	var findings []finding.Finding
	if len(snap.MetaHTTPEquiv("Strict-Transport-Security")) == 0 {
		findings = append(findings, finding.New(finding.TypeMissingHSTS,
			"Strict-Transport-Security Header Likely Missing",
			"No HSTS implementation detected. Site may be vulnerable to SSL stripping and downgrade attacks.").
			WithLocation("HTTP Headers").
			WithEvidence("No HSTS meta tag found (HSTS should be in HTTP headers)").
			WithRecommendation(`Implement HSTS header: "Strict-Transport-Security: max-age=31536000; includeSubDomains; preload". Consider HSTS preloading.`))
	}

	var sameHost []string
	for _, a := range snap.Elements("a") {
		href := a.AttrValue("href")
		if !strings.HasPrefix(href, "http://") {
			continue
		}
		u, err := snap.Resolve(href)
		if err != nil || u.Hostname() != snap.Hostname() {
			continue
		}
		sameHost = append(sameHost, u.String())
	}
	if len(sameHost) > 0 {
		findings = append(findings, finding.New(finding.TypeMissingHSTS,
			"HTTP Links to Same Domain on HTTPS Site",
			fmt.Sprintf("Found %d HTTP link(s) pointing to the same domain. HSTS would prevent these.", len(sameHost))).
			WithLocation("Page links").
			WithEvidence(strings.Join(head(sameHost, 3), ", ")).
			WithRecommendation("Change all same-domain links to HTTPS. Implement HSTS to force HTTPS for all connections."))
	}
	return findings, nil
}
