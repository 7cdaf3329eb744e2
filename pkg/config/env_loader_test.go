package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := `# local overrides
PUSHNOTIFY_TEST_ONLY_A=from-file
PUSHNOTIFY_TEST_ONLY_B="quoted value"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("PUSHNOTIFY_TEST_ONLY_A", "from-process")
	t.Cleanup(func() { _ = os.Unsetenv("PUSHNOTIFY_TEST_ONLY_B") })

	loaded, err := LoadEnvFiles("", filepath.Join(dir, "missing.env"), path)
	if err != nil {
		t.Fatalf("LoadEnvFiles failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0] != path {
		t.Errorf("Expected only %s to be loaded, got %v", path, loaded)
	}
	if got := os.Getenv("PUSHNOTIFY_TEST_ONLY_A"); got != "from-process" {
		t.Errorf("Expected existing variable to win, got %q", got)
	}
	if got := os.Getenv("PUSHNOTIFY_TEST_ONLY_B"); got != "quoted value" {
		t.Errorf("Expected quoted value to be unquoted, got %q", got)
	}
}

func TestLoadEnvFiles_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PUSHNOTIFY_BROKEN='unterminated\n"), 0644); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	if _, err := LoadEnvFiles(path); err == nil {
		t.Error("Expected an error for a malformed env file")
	}
}
