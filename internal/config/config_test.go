package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LISTEN_ADDR", "LOG_LEVEL", "GRAPH_TENANT_ID", "GRAPH_CLIENT_ID", "GRAPH_CLIENT_SECRET", "GRAPH_BASE_URL", "DATAVERSE_URL", "HTTP_TIMEOUT", "CONFIG_FILE"} {
		t.Setenv(k, "")
	}
	// Keep a stray .env in the package directory from leaking in.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != "127.0.0.1:8080" || cfg.LogLevel != "info" || cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected missing credentials")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "graphcal.yaml")
	yaml := `listen: ":9000"
log_level: debug
graph:
  tenant_id: file-tenant
  client_id: file-client
  client_secret: file-secret
dataverse_url: https://org.crm.dynamics.com
http_timeout: 5s
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GRAPH_CLIENT_ID", "env-client")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.LogLevel != "debug" || cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("file values = %+v", cfg)
	}
	if cfg.Graph.ClientID != "env-client" || cfg.Graph.TenantID != "file-tenant" {
		t.Errorf("graph = %+v", cfg.Graph)
	}
	if cfg.DataverseURL != "https://org.crm.dynamics.com" {
		t.Errorf("dataverse = %q", cfg.DataverseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	t.Setenv("HTTP_TIMEOUT", "soon")
	if _, err := Load(""); err == nil {
		t.Error("expected error for bad timeout")
	}
}
