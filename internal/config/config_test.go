package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagekeep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
  shutdown_timeout: 10
  max_upload_size: 1048576
logging:
  level: debug
  format: json
uploads:
  grant_ttl: 300
storage:
  backend: s3
  s3:
    bucket: my-library
    region: eu-west-1
    prefix: pagekeep/
    endpoint_url: http://localhost:9000
    use_path_style: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.MaxUploadSize != 1048576 {
		t.Errorf("max upload size = %d", cfg.Server.MaxUploadSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Uploads.GrantTTL != 300 {
		t.Errorf("grant ttl = %d", cfg.Uploads.GrantTTL)
	}
	if cfg.Storage.Backend != "s3" {
		t.Errorf("backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.S3.Bucket != "my-library" || cfg.Storage.S3.Region != "eu-west-1" {
		t.Errorf("s3 = %+v", cfg.Storage.S3)
	}
	if !cfg.Storage.S3.UsePathStyle {
		t.Error("use_path_style not parsed")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("default port = %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadSize != 64<<20 {
		t.Errorf("default max upload size = %d", cfg.Server.MaxUploadSize)
	}
	if cfg.Uploads.GrantTTL != 900 {
		t.Errorf("default grant ttl = %d", cfg.Uploads.GrantTTL)
	}
	if cfg.Storage.Backend != "local" {
		t.Errorf("default backend = %q", cfg.Storage.Backend)
	}
	if cfg.Storage.Local.DataDir != "./data" {
		t.Errorf("default data dir = %q", cfg.Storage.Local.DataDir)
	}
	if cfg.Storage.S3.Region != "us-east-1" {
		t.Errorf("default region = %q", cfg.Storage.S3.Region)
	}
}

func TestLoadPartial(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  port: 3000
storage:
  backend: azure
  azure:
    container: books
    account: pagekeepacct
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	// Unset fields still get defaults.
	if cfg.Server.Host != "0.0.0.0" || cfg.Logging.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Storage.Azure.Container != "books" || cfg.Storage.Azure.Account != "pagekeepacct" {
		t.Errorf("azure = %+v", cfg.Storage.Azure)
	}
}

func TestLoadExampleFallback(t *testing.T) {
	dir := t.TempDir()
	example := filepath.Join(dir, "pagekeep.example.yaml")
	if err := os.WriteFile(example, []byte("server:\n  port: 4000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(dir, "pagekeep.yaml"))
	if err != nil {
		t.Fatalf("Load with fallback: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("fallback port = %d", cfg.Server.Port)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config with no fallback")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [not: a: mapping")); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
