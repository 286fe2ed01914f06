package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  file-secret \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := Load(Source{Name: "api key", File: path, Value: "ignored"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "file-secret" {
		t.Errorf("expected trimmed file secret, got %q", got)
	}
}

func TestLoadFromValue(t *testing.T) {
	got, err := Load(Source{Name: "api key", Value: " inline "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "inline" {
		t.Errorf("expected inline value, got %q", got)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCREENER_TEST_SECRET", "from-env")

	got, err := Load(Source{Name: "api key", Env: "SCREENER_TEST_SECRET"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "from-env" {
		t.Errorf("expected env value, got %q", got)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(Source{Name: "api key"}); err == nil {
		t.Error("expected error for empty source")
	}

	if _, err := Load(Source{Name: "api key", File: "/no/such/file"}); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(empty, []byte("  \n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(Source{Name: "api key", File: empty}); err == nil {
		t.Error("expected error for empty file")
	}
}
