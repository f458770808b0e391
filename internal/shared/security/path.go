// Package security keeps file system access for persisted state inside the
// configured data directory.
package security

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	sharedErrors "github.com/khanhnv2901/pagesentry/internal/shared/errors"
)

// ErrPathEscape indicates the resolved path would leave the data directory.
var ErrPathEscape = errors.New("path escapes base directory")

// ResolveWithin joins elems under base and returns the absolute result,
// refusing anything that lands outside base.
func ResolveWithin(base string, elems ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: base directory", sharedErrors.ErrMissingRequired)
	}

	root, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base path: %w", err)
	}

	target := filepath.Join(append([]string{root}, elems...)...)
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("failed to relativize path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, target)
	}
	return target, nil
}

// EncodeName maps an arbitrary store key onto a single path element.
func EncodeName(key string) string {
	return url.QueryEscape(key)
}

// DecodeName reverses EncodeName. Names that were not produced by
// EncodeName report ok false.
func DecodeName(name string) (key string, ok bool) {
	key, err := url.QueryUnescape(name)
	if err != nil || EncodeName(key) != name {
		return "", false
	}
	return key, true
}
