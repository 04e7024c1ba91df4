package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "log_level: debug\nlog_format: json\nserver_address: 0.0.0.0:9000\nstrict: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.LogLevel != "debug" || c.LogFormat != "json" || c.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("config mismatch: %+v", c)
	}
	if c.Strict == nil || !*c.Strict {
		t.Fatalf("strict: got %v want true", c.Strict)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	c, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if c != (Config{}) {
		t.Fatalf("expected zero config, got %+v", c)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: [unterminated"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected a parse error")
	}
}
