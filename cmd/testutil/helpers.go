// Package testutil provides isolated environments for command tests: a
// temporary data directory, a fixed session and an in-memory service
// container.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/khanhnv2901/pagesentry/internal/application"
	"github.com/khanhnv2901/pagesentry/internal/infrastructure/kv"
	consts "github.com/khanhnv2901/pagesentry/internal/shared/constants"
	"github.com/khanhnv2901/pagesentry/internal/shared/security"
	"go.uber.org/zap"
)

// TestEnv holds test environment configuration and cleanup functions.
type TestEnv struct {
	TmpDir    string
	DataDir   string
	SessionID string
	Store     *kv.Memory

	cleanupFuncs []func()
	t            *testing.T
}

// NewTestEnv creates a new test environment with automatic cleanup.
// Usage:
//
//	env := testutil.NewTestEnv(t)
//	defer env.Cleanup()
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	env := &TestEnv{
		TmpDir:       tmpDir,
		DataDir:      filepath.Join(tmpDir, "data"),
		SessionID:    "test-session",
		Store:        kv.NewMemory(),
		t:            t,
		cleanupFuncs: []func(){},
	}

	if err := os.MkdirAll(env.DataDir, consts.DefaultDirPerm); err != nil {
		t.Fatalf("Failed to create test data directory: %v", err)
	}

	return env
}

// WithSessionID sets a custom session ID.
func (e *TestEnv) WithSessionID(id string) *TestEnv {
	e.SessionID = id
	return e
}

// Container wires the application services over the in-memory store.
func (e *TestEnv) Container(cfg application.Config) *application.Container {
	e.t.Helper()
	cfg.Store.DataDir = e.DataDir
	return application.NewContainerWithStore(e.Store, cfg, zap.NewNop())
}

// AddCleanup adds a cleanup function to be called when Cleanup() is called.
// Cleanup functions are called in reverse order (LIFO).
func (e *TestEnv) AddCleanup(fn func()) {
	e.cleanupFuncs = append([]func(){fn}, e.cleanupFuncs...)
}

// Cleanup runs all registered cleanup functions.
// Typically called with defer: defer env.Cleanup()
func (e *TestEnv) Cleanup() {
	for _, fn := range e.cleanupFuncs {
		fn()
	}
	e.cleanupFuncs = nil
}

// CreateFile creates a file in the test environment with the given content.
// The file path is relative to the test's temporary directory.
func (e *TestEnv) CreateFile(relativePath string, content []byte) string {
	e.t.Helper()

	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	dir := filepath.Dir(fullPath)

	if err := os.MkdirAll(dir, consts.DefaultDirPerm); err != nil {
		e.t.Fatalf("Failed to create directory %s: %v", dir, err)
	}

	if err := os.WriteFile(fullPath, content, consts.DefaultFilePerm); err != nil {
		e.t.Fatalf("Failed to create file %s: %v", fullPath, err)
	}

	return fullPath
}

// ReadFile reads a file from the test environment.
// The file path is relative to the test's temporary directory.
func (e *TestEnv) ReadFile(relativePath string) []byte {
	e.t.Helper()

	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	content, err := os.ReadFile(fullPath) // #nosec G304 -- resolved inside the test directory.
	if err != nil {
		e.t.Fatalf("Failed to read file %s: %v", fullPath, err)
	}

	return content
}

// FileExists checks if a file exists in the test environment.
func (e *TestEnv) FileExists(relativePath string) bool {
	fullPath := resolveTmpPath(e.TmpDir, relativePath, e.t)
	_, err := os.Stat(fullPath)
	return err == nil
}

// MustExist fails the test if the file does not exist.
func (e *TestEnv) MustExist(relativePath string) {
	e.t.Helper()
	if !e.FileExists(relativePath) {
		e.t.Fatalf("File %s should exist but does not", relativePath)
	}
}

// MustNotExist fails the test if the file exists.
func (e *TestEnv) MustNotExist(relativePath string) {
	e.t.Helper()
	if e.FileExists(relativePath) {
		e.t.Fatalf("File %s should not exist but does", relativePath)
	}
}

func resolveTmpPath(baseDir, relativePath string, t *testing.T) string {
	t.Helper()
	path, err := security.ResolveWithin(baseDir, relativePath)
	if err != nil {
		t.Fatalf("invalid test path %s: %v", relativePath, err)
	}
	return path
}
