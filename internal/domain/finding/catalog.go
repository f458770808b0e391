package finding

// TypeID identifies an entry of the vulnerability catalog.
type TypeID string

const (
	TypeAPIKeyExposure       TypeID = "API_KEY_EXPOSURE"
	TypeSQLInjection         TypeID = "SQL_INJECTION"
	TypeCommandInjection     TypeID = "COMMAND_INJECTION"
	TypeXSSIndicators        TypeID = "XSS_INDICATORS"
	TypeCSRF                 TypeID = "CSRF_VULNERABILITY"
	TypeMixedContent         TypeID = "MIXED_CONTENT"
	TypeInsecureFormEndpoint TypeID = "INSECURE_FORM_ENDPOINT"
	TypeSensitiveFiles       TypeID = "SENSITIVE_FILES_EXPOSED"
	TypeMissingCSP           TypeID = "MISSING_CSP"
	TypeWeakCSP              TypeID = "WEAK_CSP"
	TypeMissingHSTS          TypeID = "MISSING_HSTS"
	TypeClickjacking         TypeID = "CLICKJACKING"
	TypeOpenRedirect         TypeID = "OPEN_REDIRECT"
	TypeInsecureCookies      TypeID = "INSECURE_COOKIES"
	TypeMissingSRI           TypeID = "MISSING_SRI"
	TypeCORSMisconfiguration TypeID = "CORS_MISCONFIGURATION"
	TypeDebugPages           TypeID = "EXPOSED_DEBUG_PAGES"
	TypeExcessiveTrackers    TypeID = "EXCESSIVE_TRACKERS"
	TypeDeprecatedHTML       TypeID = "DEPRECATED_HTML"
)

// Category groups vulnerability types for display.
type Category string

const (
	CategoryInjection     Category = "Injection"
	CategoryDataExposure  Category = "Data Exposure"
	CategoryConfiguration Category = "Security Configuration"
	CategoryTransport     Category = "Transport Security"
	CategoryPrivacy       Category = "Privacy"
	CategoryBestPractice  Category = "Best Practice"
)

// VulnerabilityType is a static catalog entry shared by every finding of that type.
type VulnerabilityType struct {
	ID       TypeID   `json:"id"`
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Category Category `json:"category"`
}

var catalog = []VulnerabilityType{
	{ID: TypeAPIKeyExposure, Name: "Exposed API Keys", Severity: SeverityCritical, Category: CategoryDataExposure},
	{ID: TypeSQLInjection, Name: "SQL Injection Indicators", Severity: SeverityCritical, Category: CategoryInjection},
	{ID: TypeCommandInjection, Name: "Command Injection Indicators", Severity: SeverityCritical, Category: CategoryInjection},
	{ID: TypeXSSIndicators, Name: "Cross-Site Scripting Indicators", Severity: SeverityHigh, Category: CategoryInjection},
	{ID: TypeCSRF, Name: "Cross-Site Request Forgery", Severity: SeverityHigh, Category: CategoryConfiguration},
	{ID: TypeMixedContent, Name: "Mixed Content", Severity: SeverityHigh, Category: CategoryTransport},
	{ID: TypeInsecureFormEndpoint, Name: "Insecure Form Endpoint", Severity: SeverityHigh, Category: CategoryTransport},
	{ID: TypeSensitiveFiles, Name: "Sensitive Files Exposed", Severity: SeverityHigh, Category: CategoryDataExposure},
	{ID: TypeMissingCSP, Name: "Missing Content Security Policy", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeWeakCSP, Name: "Weak Content Security Policy", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeMissingHSTS, Name: "Missing HTTP Strict Transport Security", Severity: SeverityMedium, Category: CategoryTransport},
	{ID: TypeClickjacking, Name: "Clickjacking", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeOpenRedirect, Name: "Open Redirect", Severity: SeverityMedium, Category: CategoryInjection},
	{ID: TypeInsecureCookies, Name: "Insecure Cookies", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeMissingSRI, Name: "Missing Subresource Integrity", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeCORSMisconfiguration, Name: "CORS Misconfiguration", Severity: SeverityMedium, Category: CategoryConfiguration},
	{ID: TypeDebugPages, Name: "Exposed Debug Pages", Severity: SeverityMedium, Category: CategoryDataExposure},
	{ID: TypeExcessiveTrackers, Name: "Excessive Third-Party Trackers", Severity: SeverityLow, Category: CategoryPrivacy},
	{ID: TypeDeprecatedHTML, Name: "Deprecated HTML", Severity: SeverityLow, Category: CategoryBestPractice},
}

var catalogIndex = func() map[TypeID]VulnerabilityType {
	idx := make(map[TypeID]VulnerabilityType, len(catalog))
	for _, vt := range catalog {
		idx[vt.ID] = vt
	}
	return idx
}()

// Catalog returns a copy of every known vulnerability type.
func Catalog() []VulnerabilityType {
	out := make([]VulnerabilityType, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id TypeID) (VulnerabilityType, bool) {
	vt, ok := catalogIndex[id]
	return vt, ok
}
