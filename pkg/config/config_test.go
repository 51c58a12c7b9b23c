package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThinhNguyen0811/map-bot/pkg/bridge"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Tools.Transport != bridge.TransportHTTP {
		t.Errorf("Transport = %q", cfg.Tools.Transport)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
addr: ":9090"
model: gemini-2.5-pro
history_window: 6
tools:
  transport: stdio
  command: map-tools
  args: ["--verbose"]
  call_timeout: 10s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.HistoryWindow != 6 {
		t.Errorf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if cfg.Tools.Transport != bridge.TransportStdio || cfg.Tools.Command != "map-tools" {
		t.Errorf("Tools = %+v", cfg.Tools)
	}
	if time.Duration(cfg.Tools.CallTimeout) != 10*time.Second {
		t.Errorf("CallTimeout = %v", cfg.Tools.CallTimeout)
	}
	// Unset keys keep their defaults.
	if cfg.Greeting != "" {
		t.Errorf("Greeting = %q", cfg.Greeting)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("addr: [:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
