package cmd

import (
	"fmt"
	"io"
	"os"

	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
	"github.com/khanhnv2901/pagesentry/internal/shared/security"
	"github.com/mitchellh/go-homedir"
)

// maxPageFileBytes bounds HTML read from --file
const maxPageFileBytes = 10 << 20

// resolveDataDir expands ~ and creates the directory
func resolveDataDir(dir string) (string, error) {
	if dir == "" {
		dir = consts.DefaultDataDir
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand data directory: %w", err)
	}
	if err := os.MkdirAll(expanded, consts.DefaultDirPerm); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return expanded, nil
}

// telemetryPath returns the telemetry file inside the data directory
func telemetryPath(dataDir string) (string, error) {
	return security.ResolveWithin(dataDir, consts.TelemetryFileName)
}

// readPageFile loads saved HTML from path, or from stdin when path is "-"
func readPageFile(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		return readLimited(stdin)
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", &InputError{Flag: "file", Reason: err.Error()}
	}
	f, err := os.Open(expanded) // #nosec G304 -- operator-supplied input file, read only.
	if err != nil {
		return "", &InputError{Flag: "file", Reason: err.Error()}
	}
	defer f.Close()
	return readLimited(f)
}

func readLimited(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxPageFileBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read page: %w", err)
	}
	if len(data) > maxPageFileBytes {
		return "", &InputError{Flag: "file", Reason: fmt.Sprintf("page exceeds %d bytes", maxPageFileBytes)}
	}
	return string(data), nil
}
