package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWithoutPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Endpoint("baemin").BaseURL == "" {
		t.Fatal("expected default baemin endpoint")
	}
	if cfg.Endpoint("coupangeats").TokenURL == "" {
		t.Fatal("expected default coupangeats token url")
	}
}

func TestLoadConfigOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adapters.yaml")
	raw := []byte("platforms:\n  baemin:\n    base_url: http://localhost:9001\n    timeout: 3s\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	ep := cfg.Endpoint("baemin")
	if ep.BaseURL != "http://localhost:9001" {
		t.Fatalf("override not applied: %q", ep.BaseURL)
	}
	if time.Duration(ep.Timeout) != 3*time.Second {
		t.Fatalf("timeout override not applied: %v", ep.Timeout)
	}
	// Untouched platforms keep their defaults.
	if cfg.Endpoint("yogiyo").BaseURL == "" {
		t.Fatal("expected yogiyo default to survive")
	}
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adapters.yaml")
	if err := os.WriteFile(path, []byte("platforms: ["), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEndpointFallbackTimeout(t *testing.T) {
	if (EndpointConfig{}).timeout() <= 0 {
		t.Fatal("expected a positive fallback timeout")
	}
}
