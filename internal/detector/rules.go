package detector

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// secretRulesFile is the on-disk shape of a secret rules file:
//
//	rules:
//	  - name: Acme Deploy Token
//	    service: Acme
//	    pattern: 'acme_[a-z0-9]{32}'
type secretRulesFile struct {
	Rules []struct {
		Name    string `yaml:"name"`
		Service string `yaml:"service"`
		Pattern string `yaml:"pattern"`
	} `yaml:"rules"`
}

// LoadSecretRules reads additional secret formats from a YAML file. A
// leading ~ in path is expanded to the user's home directory.
func LoadSecretRules(path string) ([]SecretRule, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand rules path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret rules: %w", err)
	}
	return ParseSecretRules(data)
}

// ParseSecretRules decodes and compiles a YAML rules document.
func ParseSecretRules(data []byte) ([]SecretRule, error) {
	var file secretRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}

	rules := make([]SecretRule, 0, len(file.Rules))
	for i, r := range file.Rules {
		name := strings.TrimSpace(r.Name)
		if name == "" || strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("%w: rule %d needs a name and a pattern", sharedErrors.ErrMissingRequired, i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", sharedErrors.ErrInvalidInput, name, err)
		}
		service := strings.TrimSpace(r.Service)
		if service == "" {
			service = "Custom"
		}
		rules = append(rules, SecretRule{Name: name, Service: service, Pattern: re})
	}
	return rules, nil
}
