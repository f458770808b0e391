package detector

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

// SecretRule describes one recognizable credential format.
type SecretRule struct {
	Name    string
	Service string
	Pattern *regexp.Regexp
}

var builtinSecretRules = []SecretRule{
	{"Google API Key", "Google", regexp.MustCompile(`AIza[0-9A-Za-z_-]{35}`)},
	{"AWS Access Key ID", "AWS", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"AWS Secret Key", "AWS", regexp.MustCompile(`(?:aws_secret_access_key|aws_secret_key)\s*[=:]\s*['"]?([A-Za-z0-9/+=]{40})['"]?`)},
	{"Firebase API Key", "Firebase", regexp.MustCompile(`(?i)firebase[_-]?api[_-]?key\s*[=:]\s*['"]?([A-Za-z0-9_-]{39})['"]?`)},
	{"Stripe Publishable Key", "Stripe", regexp.MustCompile(`pk_live_[0-9a-zA-Z]{24,}`)},
	{"Stripe Secret Key", "Stripe", regexp.MustCompile(`sk_live_[0-9a-zA-Z]{24,}`)},
	{"Stripe Restricted Key", "Stripe", regexp.MustCompile(`rk_live_[0-9a-zA-Z]{24,}`)},
	{"SendGrid API Key", "SendGrid", regexp.MustCompile(`SG\.[a-zA-Z0-9_-]{22}\.[a-zA-Z0-9_-]{43}`)},
	{"Twilio API Key", "Twilio", regexp.MustCompile(`SK[a-z0-9]{32}`)},
	{"Slack Token", "Slack", regexp.MustCompile(`xox[baprs]-[0-9]{10,13}-[0-9]{10,13}-[a-zA-Z0-9]{24,}`)},
	{"GitHub Token", "GitHub", regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`)},
	{"Mailgun API Key", "Mailgun", regexp.MustCompile(`key-[0-9a-zA-Z]{32}`)},
	{"Square Access Token", "Square", regexp.MustCompile(`sq0atp-[0-9A-Za-z_-]{22}`)},
	{"PayPal Braintree Access Token", "PayPal", regexp.MustCompile(`access_token\$production\$[0-9a-z]{16}\$[0-9a-f]{32}`)},
	{"Generic API Key", "Generic", regexp.MustCompile(`(?i)api[_-]?key\s*[=:]\s*['"]([A-Za-z0-9_-]{20,})['"]?`)},
	{"Generic Secret", "Generic", regexp.MustCompile(`(?i)secret\s*[=:]\s*['"]([A-Za-z0-9_-]{20,})['"]?`)},
}

var secretConfigPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)apiKey\s*:\s*['"][^'"]{20,}['"]`),
	regexp.MustCompile(`(?i)api_key\s*:\s*['"][^'"]{20,}['"]`),
	regexp.MustCompile(`(?i)clientSecret\s*:\s*['"][^'"]{20,}['"]`),
	regexp.MustCompile(`(?i)client_secret\s*:\s*['"][^'"]{20,}['"]`),
	regexp.MustCompile(`(?i)accessToken\s*:\s*['"][^'"]{20,}['"]`),
	regexp.MustCompile(`(?i)access_token\s*:\s*['"][^'"]{20,}['"]`),
}

var jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]*`)

// maxReportedTokens bounds the JWT findings produced for one page.
const maxReportedTokens = 3

// APIKeyDetector finds credentials embedded in page source.
type APIKeyDetector struct {
	rules []SecretRule
}

// NewAPIKeyDetector builds the detector with the built-in rules followed by extra.
func NewAPIKeyDetector(extra ...SecretRule) *APIKeyDetector {
	rules := make([]SecretRule, 0, len(builtinSecretRules)+len(extra))
	rules = append(rules, builtinSecretRules...)
	for _, r := range extra {
		if r.Pattern != nil {
			rules = append(rules, r)
		}
	}
	return &APIKeyDetector{rules: rules}
}

func (d *APIKeyDetector) Name() string { return "api-key" }

func (d *APIKeyDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scripts := snap.ScriptText()
	content := scripts + "\n" + snap.HTML()

	var findings []finding.Finding
	for _, rule := range d.rules {
		match := rule.Pattern.FindString(content)
		if match == "" {
			continue
		}
		location := "HTML content"
		if rule.Pattern.MatchString(scripts) {
			location = "JavaScript code"
		}
		findings = append(findings, finding.New(finding.TypeAPIKeyExposure,
			rule.Name+" Exposed",
			fmt.Sprintf("Found hardcoded %s for %s in client-side code", rule.Name, rule.Service)).
			WithLocation(location).
			WithEvidence(finding.Excerpt(match, 50)).
			WithRecommendation(fmt.Sprintf("Move %s API keys to backend environment variables. Never expose sensitive keys in client-side code. Use backend proxy for API calls.", rule.Service)))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, pattern := range secretConfigPatterns {
		match := pattern.FindString(content)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeAPIKeyExposure,
			"Potential API Key in Configuration",
			"Found configuration object with potential API key or secret").
			WithLocation("JavaScript configuration").
			WithEvidence(match).
			WithRecommendation("Store API keys and secrets on the server. Use environment variables. Implement backend proxy for sensitive API calls."))
	}

	findings = append(findings, tokenFindings(content)...)
	return findings, nil
}

// tokenFindings reports JSON Web Tokens embedded in content. Tokens are
// decoded without verification only to describe what they carry.
func tokenFindings(content string) []finding.Finding {
	var findings []finding.Finding
	parser := jwt.NewParser()
	for _, raw := range head(uniqueStrings(jwtPattern.FindAllString(content, -1)), maxReportedTokens) {
		claims := jwt.MapClaims{}
		token, _, err := parser.ParseUnverified(raw, claims)
		if err != nil {
			continue
		}

		keys := make([]string, 0, len(claims))
		for k := range claims {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		alg, _ := token.Header["alg"].(string)
		desc := fmt.Sprintf("Found a JSON Web Token signed with %s in client-side code", strings.ToUpper(alg))
		if exp, err := claims.GetExpirationTime(); err == nil && exp == nil {
			desc += " that never expires"
		}
		findings = append(findings, finding.New(finding.TypeAPIKeyExposure, "JSON Web Token Exposed", desc).
			WithLocation("Page source").
			WithEvidence(finding.Excerpt(raw, 50)+" claims: "+strings.Join(keys, ", ")).
			WithRecommendation("Do not embed bearer tokens in page markup or scripts. Issue short-lived tokens at runtime and keep them in HttpOnly cookies."))
	}
	return findings
}
