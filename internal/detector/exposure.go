package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var sensitiveFilePatterns = []struct {
	name    string
	risk    string
	pattern *regexp.Regexp
}{
	{".git directory", "Exposes source code and history", regexp.MustCompile(`\.git/`)},
	{".svn directory", "Exposes source code and history", regexp.MustCompile(`\.svn/`)},
	{".env file", "Contains sensitive configuration and secrets", regexp.MustCompile(`\.env`)},
	{".htaccess file", "Exposes server configuration", regexp.MustCompile(`\.htaccess`)},
	{".htpasswd file", "Contains password hashes", regexp.MustCompile(`\.htpasswd`)},
	{"web.config file", "Exposes server configuration", regexp.MustCompile(`web\.config`)},
	{"config.php file", "May contain database credentials", regexp.MustCompile(`config\.php`)},
	{"database.yml file", "Contains database configuration", regexp.MustCompile(`database\.yml`)},
	{"SQL dump files", "May contain sensitive data", regexp.MustCompile(`\.sql`)},
	{"Backup files", "May contain sensitive data", regexp.MustCompile(`\.bak`)},
	{"Editor backup files", "May contain sensitive data", regexp.MustCompile(`~$`)},
	{"Backup files", "May contain sensitive data", regexp.MustCompile(`\.backup`)},
	{"Old files", "May contain outdated vulnerable code", regexp.MustCompile(`\.old`)},
	{"Log files", "May contain sensitive information", regexp.MustCompile(`\.log`)},
	{"phpinfo file", "Exposes PHP configuration", regexp.MustCompile(`phpinfo\.php`)},
	{"composer.json file", "Exposes dependencies", regexp.MustCompile(`composer\.json`)},
	{"package.json file", "Exposes dependencies", regexp.MustCompile(`package\.json`)},
	{"yarn.lock file", "Exposes exact dependency versions", regexp.MustCompile(`yarn\.lock`)},
	{"Gemfile", "Exposes Ruby dependencies", regexp.MustCompile(`Gemfile`)},
	{".DS_Store file", "Exposes directory structure (macOS)", regexp.MustCompile(`\.DS_Store`)},
	{"SSH private key", "CRITICAL: Exposes private SSH keys", regexp.MustCompile(`id_rsa`)},
	{"SSH private key", "CRITICAL: Exposes private SSH keys", regexp.MustCompile(`id_dsa`)},
}

var adminPanels = []struct {
	path string
	name string
}{
	{"/admin", "Admin panel"},
	{"/administrator", "Administrator panel"},
	{"/phpmyadmin", "phpMyAdmin"},
	{"/wp-admin", "WordPress admin"},
	{"/cpanel", "cPanel"},
	{"/config", "Configuration panel"},
}

// SensitiveFilesDetector reports references to files and panels that should
// never be public.
type SensitiveFilesDetector struct{}

func (SensitiveFilesDetector) Name() string { return "sensitive-files" }

func (SensitiveFilesDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	urls := resourceURLs(snap)
	content := snap.HTML()

	var findings []finding.Finding
	for _, p := range sensitiveFilePatterns {
		var matched []string
		for _, u := range urls {
			if p.pattern.MatchString(u) {
				matched = append(matched, u)
			}
		}
		if len(matched) > 0 {
			findings = append(findings, finding.New(finding.TypeSensitiveFiles,
				"Reference to "+p.name,
				fmt.Sprintf("Found reference to %s. %s", p.name, p.risk)).
				WithLocation("Page resources").
				WithEvidence(strings.Join(head(matched, 3), ", ")).
				WithRecommendation(fmt.Sprintf("Ensure %s is not publicly accessible. Configure web server to deny access to sensitive files. Remove references from public code.", p.name)))
			continue
		}
		if hits := p.pattern.FindAllStringIndex(content, -1); len(hits) > 0 {
			findings = append(findings, finding.New(finding.TypeSensitiveFiles,
				fmt.Sprintf("Reference to %s in Code", p.name),
				fmt.Sprintf("Found %s mentioned in page source. %s", p.name, p.risk)).
				WithLocation("HTML/JavaScript content").
				WithEvidence(fmt.Sprintf("Found %d reference(s)", len(hits))).
				WithRecommendation(fmt.Sprintf("Verify %s is not accessible. Remove sensitive file references from client-side code.", p.name)))
		}
	}

	for _, panel := range adminPanels {
		for _, u := range urls {
			if !strings.Contains(u, panel.path) {
				continue
			}
			findings = append(findings, finding.New(finding.TypeSensitiveFiles,
				"Reference to "+panel.name,
				fmt.Sprintf("Found reference to %s which should not be publicly accessible", panel.name)).
				WithLocation("Page links").
				WithEvidence("Link to "+panel.path).
				WithRecommendation(fmt.Sprintf("Ensure %s is protected with authentication and not indexed by search engines.", panel.name)))
			break
		}
	}
	return findings, nil
}

// resourceURLs returns the absolute URLs of links and embedded resources.
func resourceURLs(snap *page.Snapshot) []string {
	var urls []string
	for _, el := range snap.Elements("a", "link", "script", "img", "source") {
		attr := "src"
		if el.Tag() == "a" || el.Tag() == "link" {
			attr = "href"
		}
		if raw, ok := el.Attr(attr); ok && raw != "" {
			urls = append(urls, snap.ResolveString(raw))
		}
	}
	return urls
}

var debugPaths = []string{
	"/debug", "/debug/", "/_debug",
	"/test", "/test/", "/_test",
	"/dev", "/dev/", "/_dev",
	"/admin", "/admin/", "/administrator",
	"/console", "/console/", "/_console",
	"/phpinfo.php", "/info.php",
	"/server-status", "/server-info",
	"/.env", "/config", "/configuration",
	"/swagger", "/swagger-ui", "/api-docs",
	"/graphql", "/graphiql",
	"/actuator", "/actuator/health",
	"/metrics", "/health", "/status",
	"/wp-admin", "/wp-login.php",
	"/phpmyadmin", "/pma",
	"/adminer", "/adminer.php",
}

var debugIndicators = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"Debug mode enabled", regexp.MustCompile(`(?i)debug\s*mode\s*:\s*true`)},
	{"Development mode", regexp.MustCompile(`(?i)development\s*mode`)},
	{"Debug flag set", regexp.MustCompile(`(?i)DEBUG\s*=\s*True`)},
	{"App debug enabled", regexp.MustCompile(`(?i)APP_DEBUG\s*=\s*true`)},
	{"Development environment", regexp.MustCompile(`(?i)environment\s*:\s*['"]development['"]`)},
	{"Dev environment", regexp.MustCompile(`(?i)ENVIRONMENT\s*=\s*['"]dev['"]`)},
}

var errorDetailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Stack trace:`),
	regexp.MustCompile(`(?i)Error in file .* on line \d+`),
	regexp.MustCompile(`(?i)Fatal error:`),
	regexp.MustCompile(`(?i)Warning: `),
	regexp.MustCompile(`(?i)Notice: `),
	regexp.MustCompile(`(?i)Exception: `),
	regexp.MustCompile(`(?i)Traceback \(most recent call last\):`),
}

// maxDebugComments caps how many debug comments are collected.
const maxDebugComments = 3

// DebugPagesDetector reports debug endpoints, debug flags and leaked errors.
type DebugPagesDetector struct{}

func (DebugPagesDetector) Name() string { return "debug-pages" }

func (DebugPagesDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding

	var links []string
	for _, a := range snap.Elements("a") {
		href := a.AttrValue("href")
		if href != "" && containsAny(href, debugPaths...) {
			links = append(links, href)
		}
	}
	if links = uniqueStrings(links); len(links) > 0 {
		findings = append(findings, finding.New(finding.TypeDebugPages,
			"Links to Debug/Admin Pages Found",
			fmt.Sprintf("Found %d link(s) to potential debug or admin pages", len(links))).
			WithLocation("Page links").
			WithEvidence(strings.Join(head(links, 5), ", ")).
			WithRecommendation("Remove links to debug/admin pages from production. Protect admin areas with authentication. Disable debug mode in production."))
	}

	if path := strings.ToLower(snap.Path()); containsAny(path, debugPaths...) {
		findings = append(findings, finding.New(finding.TypeDebugPages,
			"Currently on Debug/Admin Page",
			"Current page appears to be a debug or admin page: "+path).
			WithLocation("Current URL").
			WithEvidence("Path: "+path).
			WithRecommendation("Ensure this page is protected with strong authentication and not accessible to unauthorized users."))
	}

	content := snap.HTML()
	for _, ind := range debugIndicators {
		match := ind.pattern.FindString(content)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeDebugPages,
			ind.name+" Detected",
			fmt.Sprintf("Found indication that %s in page source", strings.ToLower(ind.name))).
			WithLocation("Page content").
			WithEvidence(match).
			WithRecommendation("Disable debug mode in production. Remove debug output from client-side code."))
	}

	text := snap.BodyText()
	for _, p := range errorDetailPatterns {
		match := p.FindString(text)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeDebugPages,
			"Detailed Error Messages Exposed",
			"Detailed error messages or stack traces visible in page content").
			WithLocation("Page content").
			WithEvidence(match).
			WithRecommendation("Suppress detailed error messages in production. Log errors server-side instead of displaying them."))
		break
	}

	var comments []string
	for _, c := range snap.Comments() {
		if len(comments) >= maxDebugComments {
			break
		}
		if containsAny(strings.ToLower(c), "debug", "todo", "fixme", "hack") {
			comments = append(comments, prefix(c, 100))
		}
	}
	if len(comments) > 0 {
		findings = append(findings, finding.New(finding.TypeDebugPages,
			"Debug Comments in Source Code",
			fmt.Sprintf("Found %d HTML comment(s) containing debug-related text", len(comments))).
			WithLocation("HTML comments").
			WithEvidence(comments[0]).
			WithRecommendation("Remove debug comments from production code. Use build process to strip comments."))
	}
	return findings, nil
}
