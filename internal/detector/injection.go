package detector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/khanhnv2901/pagesentry/internal/domain/finding"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

var sqlErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)SQL syntax.*?MySQL`),
	regexp.MustCompile(`(?i)Warning.*?mysqli`),
	regexp.MustCompile(`(?i)MySQLSyntaxErrorException`),
	regexp.MustCompile(`(?i)valid MySQL result`),
	regexp.MustCompile(`(?i)PostgreSQL.*?ERROR`),
	regexp.MustCompile(`(?i)Warning.*?pg_`),
	regexp.MustCompile(`(?i)valid PostgreSQL result`),
	regexp.MustCompile(`(?i)Npgsql\.`),
	regexp.MustCompile(`(?i)Driver.*?SQL Server`),
	regexp.MustCompile(`(?i)OLE DB.*?SQL Server`),
	regexp.MustCompile(`(?i)SQLServer JDBC Driver`),
	regexp.MustCompile(`(?i)SqlException`),
	regexp.MustCompile(`(?i)Oracle error`),
	regexp.MustCompile(`(?i)Oracle.*?Driver`),
	regexp.MustCompile(`(?i)Warning.*?oci_`),
	regexp.MustCompile(`(?i)SQLite/JDBCDriver`),
	regexp.MustCompile(`(?i)SQLite.Exception`),
	regexp.MustCompile(`(?i)System.Data.SQLite.SQLiteException`),
	regexp.MustCompile(`(?i)Warning.*?sqlite_`),
	regexp.MustCompile(`(?i)SQLSTATE\[`),
	regexp.MustCompile(`(?i)syntax error.*?near`),
	regexp.MustCompile(`(?i)Incorrect syntax near`),
}

var sqlInCommentPattern = regexp.MustCompile(`(?i)SELECT|INSERT|UPDATE|DELETE|FROM|WHERE`)

// suspiciousSQLInputThreshold is the number of query-like inputs a page may
// carry before it is reported.
const suspiciousSQLInputThreshold = 5

// SQLInjectionDetector looks for leaked database errors and query hints.
type SQLInjectionDetector struct{}

func (SQLInjectionDetector) Name() string { return "sql-injection" }

func (SQLInjectionDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	text := snap.BodyText()
	for _, p := range sqlErrorPatterns {
		match := p.FindString(text)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeSQLInjection,
			"SQL Error Message Detected in Page",
			"SQL database error message visible in page content, indicating potential SQL injection vulnerability").
			WithLocation("Page content").
			WithEvidence(match).
			WithRecommendation("Suppress error messages in production. Use parameterized queries or prepared statements. Never concatenate user input into SQL queries."))
	}

	var suspicious []string
	for _, input := range snap.Elements("input") {
		name, ok := input.Attr("name")
		if ok && containsAny(name, "sql", "query", "id", "search") {
			suspicious = append(suspicious, name)
		}
	}
	if len(suspicious) > suspiciousSQLInputThreshold {
		findings = append(findings, finding.New(finding.TypeSQLInjection,
			"Multiple Database Query Input Fields",
			fmt.Sprintf("Found %d input fields that may be vulnerable to SQL injection", len(suspicious))).
			WithLocation("Form inputs").
			WithEvidence("Fields: "+strings.Join(head(suspicious, 5), ", ")).
			WithRecommendation("Ensure all inputs are validated and sanitized. Use parameterized queries or ORM frameworks."))
	}

	for _, comment := range snap.Comments() {
		if !sqlInCommentPattern.MatchString(comment) {
			continue
		}
		findings = append(findings, finding.New(finding.TypeSQLInjection,
			"SQL Query in HTML Comment",
			"Found SQL query in HTML comment, which may expose database structure").
			WithLocation("HTML comment").
			WithEvidence(prefix(comment, 150)).
			WithRecommendation("Remove SQL queries and sensitive comments from production code."))
		break
	}
	return findings, nil
}

var commandErrorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sh: .*?: command not found`),
	regexp.MustCompile(`(?i)bash: .*?: command not found`),
	regexp.MustCompile(`(?i)cannot execute binary file`),
	regexp.MustCompile(`(?i)Permission denied.*?/bin/`),
	regexp.MustCompile(`(?i)system\(\) has been disabled`),
	regexp.MustCompile(`(?i)exec\(\) has been disabled`),
	regexp.MustCompile(`(?i)shell_exec\(\) has been disabled`),
	regexp.MustCompile(`(?i)Warning.*?shell_exec`),
	regexp.MustCompile(`(?i)Warning.*?system`),
	regexp.MustCompile(`(?i)Warning.*?passthru`),
	regexp.MustCompile(`(?i)Fatal error.*?proc_open`),
}

var pathParams = []string{"file", "path", "dir", "folder", "include", "page", "doc"}

// CommandInjectionDetector looks for shell errors and command-shaped inputs.
type CommandInjectionDetector struct{}

func (CommandInjectionDetector) Name() string { return "command-injection" }

func (CommandInjectionDetector) Scan(ctx context.Context, snap *page.Snapshot) ([]finding.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var findings []finding.Finding
	text := snap.BodyText()
	for _, p := range commandErrorPatterns {
		match := p.FindString(text)
		if match == "" {
			continue
		}
		findings = append(findings, finding.New(finding.TypeCommandInjection,
			"Command Execution Error Detected",
			"System command error message visible in page, indicating potential command injection vulnerability").
			WithLocation("Page content").
			WithEvidence(match).
			WithRecommendation("Suppress error messages. Never pass user input directly to system commands. Use allowlists for allowed commands."))
	}

	inputs := snap.Elements("input")
	files := 0
	var commandFields []string
	for _, input := range inputs {
		if strings.EqualFold(input.AttrValue("type"), "file") {
			files++
		}
		if name, ok := input.Attr("name"); ok && containsAny(name, "ping", "trace", "host", "cmd", "command") {
			commandFields = append(commandFields, name)
		}
	}
	if files > 0 {
		findings = append(findings, finding.New(finding.TypeCommandInjection,
			"File Upload Functionality Detected",
			fmt.Sprintf("Found %d file upload field(s) that may be vulnerable to command injection via filenames", files)).
			WithLocation(fmt.Sprintf("%d file input(s)", files)).
			WithEvidence("File upload fields present").
			WithRecommendation("Validate and sanitize uploaded filenames. Store files with generated names. Disable script execution in upload directories."))
	}
	if len(commandFields) > 0 {
		findings = append(findings, finding.New(finding.TypeCommandInjection,
			"Potential Command Execution Input Fields",
			fmt.Sprintf("Found %d input field(s) that may execute system commands", len(commandFields))).
			WithLocation("Form inputs").
			WithEvidence("Fields: "+strings.Join(commandFields, ", ")).
			WithRecommendation("Use allowlists to restrict allowed inputs. Sanitize all user input. Consider using APIs instead of system commands."))
	}

	query := snap.Query()
	for _, param := range pathParams {
		value := query.Get(param)
		if value == "" || !containsAny(value, "../", `..\`, "%2e%2e") {
			continue
		}
		findings = append(findings, finding.New(finding.TypeCommandInjection,
			"Path Traversal Pattern in URL",
			fmt.Sprintf("URL parameter %q contains path traversal sequences that may lead to command injection", param)).
			WithLocation("URL parameter: "+param).
			WithEvidence(param+"="+value).
			WithRecommendation("Validate and sanitize file paths. Use allowlists for allowed files. Never pass user input directly to file operations."))
	}
	return findings, nil
}
