package confloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voralek/sessguard/internal/server/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "server.yaml", `
server:
  http:
    addr: "0.0.0.0:9000"
log:
  level: debug
`)

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.HTTP.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q, want 0.0.0.0:9000", cfg.Server.HTTP.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Log.Format != config.DefaultLogFormat {
		t.Errorf("log format = %q, want default %q", cfg.Log.Format, config.DefaultLogFormat)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "server.yaml", `
log:
  level: debug
`)
	t.Setenv("SESSGUARD_LOG_LEVEL", "error")

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("log level = %q, want env override error", cfg.Log.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg := config.Default()
	err := NewLoader(WithConfigFile("/does/not/exist.yaml")).Load(cfg)
	if err == nil {
		t.Error("Load accepted a missing config file")
	}
}

func TestCustomEnvPrefix(t *testing.T) {
	t.Setenv("SGTEST_LOG_FORMAT", "text")

	cfg := config.Default()
	if err := NewLoader(WithEnvPrefix("SGTEST_")).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log format = %q, want text", cfg.Log.Format)
	}
}

func TestWatcherSeesRewrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "server.yaml", "log:\n  level: info\n")

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 4)
	go w.Run(ctx, func() { changed <- struct{}{} })

	// Give the watcher a beat to arm before writing.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, dir, "server.yaml", "log:\n  level: warn\n")

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher missed the rewrite")
	}

	// Writes to sibling files are ignored.
	writeFile(t, dir, "other.yaml", "x: 1\n")
	select {
	case <-changed:
		t.Fatal("watcher fired for a sibling file")
	case <-time.After(200 * time.Millisecond):
	}
}
