package detector

import "strings"

// Options tunes the built-in detector set.
type Options struct {
	// Disabled lists detector names to leave out.
	Disabled []string
	// SecretRules extends the api-key detector with extra credential formats.
	SecretRules []SecretRule
}

// Builtin returns every built-in detector not disabled by opts, in a stable order.
func Builtin(opts Options) []Detector {
	all := []Detector{
		NewAPIKeyDetector(opts.SecretRules...),
		CSPDetector{},
		WeakCSPDetector{},
		HSTSDetector{},
		ClickjackingDetector{},
		XSSDetector{},
		CSRFDetector{},
		SQLInjectionDetector{},
		CommandInjectionDetector{},
		OpenRedirectDetector{},
		CookieDetector{},
		MixedContentDetector{},
		InsecureFormDetector{},
		SRIDetector{},
		CORSDetector{},
		SensitiveFilesDetector{},
		DebugPagesDetector{},
		TrackersDetector{},
		DeprecatedHTMLDetector{},
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, name := range opts.Disabled {
		disabled[strings.ToLower(strings.TrimSpace(name))] = true
	}
	out := make([]Detector, 0, len(all))
	for _, d := range all {
		if !disabled[d.Name()] {
			out = append(out, d)
		}
	}
	return out
}

// NewBuiltinRegistry is shorthand for NewRegistry(Builtin(opts)...).
func NewBuiltinRegistry(opts Options) *Registry {
	return NewRegistry(Builtin(opts)...)
}
