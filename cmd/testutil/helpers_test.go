package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/khanhnv2901/pagesentry/internal/application"
	"github.com/khanhnv2901/pagesentry/internal/page"
)

func TestNewTestEnv(t *testing.T) {
	env := NewTestEnv(t)
	defer env.Cleanup()

	if env.TmpDir == "" {
		t.Error("TmpDir should not be empty")
	}
	if env.SessionID != "test-session" {
		t.Errorf("Expected session 'test-session', got %s", env.SessionID)
	}
	if env.Store == nil {
		t.Fatal("Store should not be nil")
	}
	if _, err := os.Stat(env.DataDir); os.IsNotExist(err) {
		t.Error("Data directory should exist")
	}
}

func TestTestEnv_WithSessionID(t *testing.T) {
	env := NewTestEnv(t).WithSessionID("alice")
	defer env.Cleanup()

	if env.SessionID != "alice" {
		t.Errorf("Expected session alice, got %s", env.SessionID)
	}
}

func TestTestEnv_ContainerSharesStore(t *testing.T) {
	env := NewTestEnv(t)
	defer env.Cleanup()

	ctx := context.Background()
	first := env.Container(application.Config{})
	res, err := first.ScanService.Submit(ctx, env.SessionID, page.Input{URL: "https://example.com/", HTML: "<p>hi</p>"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	second := env.Container(application.Config{})
	got, err := second.ScanService.Get(ctx, env.SessionID, res.Scan.ID())
	if err != nil {
		t.Fatalf("scan should be visible through a second container: %v", err)
	}
	if got.ID() != res.Scan.ID() {
		t.Errorf("Expected scan %s, got %s", res.Scan.ID(), got.ID())
	}
}

func TestTestEnv_CreateFile(t *testing.T) {
	env := NewTestEnv(t)
	defer env.Cleanup()

	content := []byte("<html></html>")
	relativePath := "pages/index.html"

	filePath := env.CreateFile(relativePath, content)

	if !env.FileExists(relativePath) {
		t.Error("File should exist")
	}
	if got := env.ReadFile(relativePath); string(got) != string(content) {
		t.Errorf("Expected content %s, got %s", content, got)
	}
	if expected := filepath.Join(env.TmpDir, relativePath); filePath != expected {
		t.Errorf("Expected path %s, got %s", expected, filePath)
	}
}

func TestTestEnv_FileExists(t *testing.T) {
	env := NewTestEnv(t)
	defer env.Cleanup()

	if env.FileExists("nonexistent.txt") {
		t.Error("Non-existent file should return false")
	}
	env.CreateFile("exists.txt", []byte("content"))
	env.MustExist("exists.txt")
	env.MustNotExist("nonexistent.txt")
}

func TestTestEnv_AddCleanup_LIFO(t *testing.T) {
	env := NewTestEnv(t)

	order := []int{}
	env.AddCleanup(func() { order = append(order, 1) })
	env.AddCleanup(func() { order = append(order, 2) })
	env.AddCleanup(func() { order = append(order, 3) })

	env.Cleanup()
	env.Cleanup()

	expectedOrder := []int{3, 2, 1}
	if len(order) != len(expectedOrder) {
		t.Fatalf("Expected %d cleanup calls, got %d", len(expectedOrder), len(order))
	}
	for i, expected := range expectedOrder {
		if order[i] != expected {
			t.Errorf("Cleanup order[%d]: expected %d, got %d", i, expected, order[i])
		}
	}
}
