package detector

import (
	"context"
	"fmt"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var commonCDNs = []string{
	"cdn.jsdelivr.net",
	"cdnjs.cloudflare.com",
	"unpkg.com",
	"code.jquery.com",
	"maxcdn.bootstrapcdn.com",
	"stackpath.bootstrapcdn.com",
	"ajax.googleapis.com",
	"cdn.bootcss.com",
}

// SRIDetector reports cross-origin subresources loaded without an integrity hash.
type SRIDetector struct{}

func (SRIDetector) Name() string { return "sri" }

func (SRIDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	crossOrigin := func(ref string) bool {
		u, err := snap.Resolve(ref)
		return err == nil && page.Origin(u) != snap.Origin()
	}

	var scripts, cdnScripts []string
	for _, script := range snap.ExternalScripts() {
		src := script.AttrValue("src")
		if script.AttrValue("integrity") != "" {
			continue
		}
		if crossOrigin(src) {
			scripts = append(scripts, src)
		}
		if containsAny(src, commonCDNs...) {
			cdnScripts = append(cdnScripts, src)
		}
	}

	var styles []string
	for _, link := range snap.Elements("link") {
		href, ok := link.Attr("href")
		if !ok || !strings.EqualFold(strings.TrimSpace(link.AttrValue("rel")), "stylesheet") {
			continue
		}
		if link.AttrValue("integrity") == "" && crossOrigin(href) {
			styles = append(styles, href)
		}
	}

	var findings []finding.Finding
	if len(scripts) > 0 {
		findings = append(findings, finding.New(finding.TypeMissingSRI,
			"External Scripts Without Subresource Integrity",
			fmt.Sprintf("Found %d external script(s) loaded without integrity attribute", len(scripts))).
			WithLocation("Script tags").
			WithEvidence(strings.Join(head(scripts, 3), ", ")).
			WithRecommendation(`Add integrity attribute to all external scripts: <script src="..." integrity="sha384-..." crossorigin="anonymous">. Use SRI Hash Generator tools.`))
	}
	if len(styles) > 0 {
		findings = append(findings, finding.New(finding.TypeMissingSRI,
			"External Stylesheets Without Subresource Integrity",
			fmt.Sprintf("Found %d external stylesheet(s) loaded without integrity attribute", len(styles))).
			WithLocation("Link tags").
			WithEvidence(strings.Join(head(styles, 3), ", ")).
			WithRecommendation(`Add integrity attribute to all external stylesheets: <link rel="stylesheet" href="..." integrity="sha384-..." crossorigin="anonymous">`))
	}
	if len(cdnScripts) > 0 {
		findings = append(findings, finding.New(finding.TypeMissingSRI,
			"CDN Scripts Without SRI",
			fmt.Sprintf("Found %d CDN-hosted script(s) without integrity checks", len(cdnScripts))).
			WithLocation("CDN script tags").
			WithEvidence(strings.Join(head(cdnScripts, 3), ", ")).
			WithRecommendation("CRITICAL: Add SRI to all CDN resources to protect against CDN compromise. Most CDNs provide SRI hashes."))
	}
	return findings, nil
}
