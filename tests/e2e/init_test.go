//go:build e2e

package e2e

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestE2E_InitCreatesConfig(t *testing.T) {
	dir := t.TempDir()
	_, _, code := RunHoneycomb(t, dir, nil, "init")
	if code != 0 {
		t.Fatalf("honeycomb init exited %d", code)
	}
	configPath := filepath.Join(dir, "honeycomb.config.yaml")
	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	body := string(content)
	for _, section := range []string{"server:", "llm:", "agent:", "callback:", "session:"} {
		if !strings.Contains(body, section) {
			t.Errorf("expected section %q in generated config, got: %s", section, body)
		}
	}
}

func TestE2E_InitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, _, code := RunHoneycomb(t, dir, nil, "init"); code != 0 {
		t.Fatalf("first honeycomb init exited %d", code)
	}
	_, stderr, code := RunHoneycomb(t, dir, nil, "init")
	if code == 0 {
		t.Fatal("second honeycomb init should refuse to overwrite, exited 0")
	}
	if !strings.Contains(stderr, "already exists") {
		t.Errorf("expected 'already exists' on stderr, got: %s", stderr)
	}
	if _, _, code := RunHoneycomb(t, dir, nil, "init", "--force"); code != 0 {
		t.Fatalf("honeycomb init --force exited %d", code)
	}
}
