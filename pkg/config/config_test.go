package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Review.AmountThreshold != 10000 {
		t.Errorf("Review.AmountThreshold = %g, want 10000", cfg.Review.AmountThreshold)
	}
	if len(cfg.Review.Markers) == 0 {
		t.Error("Review.Markers is empty, want defaults")
	}
	if !cfg.Monitoring.Prometheus.Enabled {
		t.Error("Monitoring.Prometheus.Enabled = false, want true")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9090
  host: 127.0.0.1
review:
  amount_threshold: 500
providers:
  default_timeout: 5s
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Review.AmountThreshold != 500 {
		t.Errorf("Review.AmountThreshold = %g, want 500", cfg.Review.AmountThreshold)
	}
	if got := cfg.Providers.Timeout().Seconds(); got != 5 {
		t.Errorf("Providers.Timeout() = %gs, want 5s", got)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for port 0")
	}
}

func TestProviderCredentialsConfigured(t *testing.T) {
	if (ProviderCredentials{}).Configured() {
		t.Error("empty credentials report configured")
	}
	if !(ProviderCredentials{APIKey: "sk-test"}).Configured() {
		t.Error("credentials with key report unconfigured")
	}
}

func TestTimeoutFallsBackOnGarbage(t *testing.T) {
	p := ProvidersConfig{DefaultTimeout: "soon"}
	if got := p.Timeout().Seconds(); got != 30 {
		t.Errorf("Timeout() = %gs, want 30s fallback", got)
	}
}
