package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points HOME, the config dir, and the working directory at a temp dir
// so a developer's real config does not leak into the test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIBase() != "https://clang-a3xo.onrender.com/0.1.0" {
		t.Errorf("APIBase = %q", cfg.APIBase())
	}
	if cfg.StreamBase() != "wss://clang-a3xo.onrender.com/0.1.0" {
		t.Errorf("StreamBase = %q", cfg.StreamBase())
	}
	if cfg.Capture.Slice != 500*time.Millisecond {
		t.Errorf("slice = %v, want 500ms", cfg.Capture.Slice)
	}
	if cfg.ClosingDelay != 2*time.Second {
		t.Errorf("closing delay = %v, want 2s", cfg.ClosingDelay)
	}
	if cfg.Framing != "binary" {
		t.Errorf("framing = %q, want binary", cfg.Framing)
	}
	if cfg.EmailDomain != "kaist.ac.kr" {
		t.Errorf("email domain = %q", cfg.EmailDomain)
	}
	if filepath.Dir(cfg.DBPath) != Dir() {
		t.Errorf("db path = %q, want it in %q", cfg.DBPath, Dir())
	}
	if filepath.Dir(cfg.LogFile) != Dir() {
		t.Errorf("log file = %q, want it in %q", cfg.LogFile, Dir())
	}
}

func TestLoadEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("CLANG_BACKEND_URL", "http://localhost:8000")
	t.Setenv("CLANG_CAPTURE_SLICE", "250ms")

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StreamBase() != "ws://localhost:8000/0.1.0" {
		t.Errorf("StreamBase = %q", cfg.StreamBase())
	}
	if cfg.Capture.Slice != 250*time.Millisecond {
		t.Errorf("slice = %v, want 250ms", cfg.Capture.Slice)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := isolate(t)

	yaml := "backend_url: http://example.test\nstream_url: ws://stream.test/\nstream:\n  framing: json\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StreamBase() != "ws://stream.test/0.1.0" {
		t.Errorf("StreamBase = %q", cfg.StreamBase())
	}
	if cfg.Framing != "json" {
		t.Errorf("framing = %q, want json", cfg.Framing)
	}
}

func TestValidateRejectsSliceOutOfRange(t *testing.T) {
	isolate(t)
	t.Setenv("CLANG_CAPTURE_SLICE", "2s")

	if _, err := Load(New()); err == nil {
		t.Error("expected error for 2s slice")
	}
}

func TestValidateRejectsFraming(t *testing.T) {
	isolate(t)
	t.Setenv("CLANG_STREAM_FRAMING", "base64")

	if _, err := Load(New()); err == nil {
		t.Error("expected error for unknown framing")
	}
}
