package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validJSON = `{
  "server": {
    "host": "127.0.0.1",
    "port": 9090
  },
  "logging": {
    "level": "debug",
    "buffer_size": 500
  },
  "analysis": {
    "delay_ms": 100,
    "rerun_delay_ms": 50
  }
}`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(validJSON), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Analysis.DelayMS != 100 || cfg.Analysis.RerunDelayMS != 50 {
		t.Errorf("analysis delays = %d/%d, want 100/50", cfg.Analysis.DelayMS, cfg.Analysis.RerunDelayMS)
	}
	if got := cfg.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9090", got)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	os.WriteFile(path, []byte(`{"server": {"host": "0.0.0.0", "port": 3000}}`), 0o644)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Logging.BufferSize != 1000 {
		t.Errorf("buffer_size = %d, want default 1000", cfg.Logging.BufferSize)
	}
	if cfg.Analysis.DelayMS != 2000 {
		t.Errorf("delay_ms = %d, want default 2000", cfg.Analysis.DelayMS)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CEREBRO_HOST", "127.0.0.1")
	t.Setenv("CEREBRO_PORT", "4242")
	t.Setenv("CEREBRO_LOG_LEVEL", "warn")
	t.Setenv("CEREBRO_ANALYSIS_DELAY_MS", "10")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 4242 {
		t.Errorf("server = %s:%d, want 127.0.0.1:4242", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Analysis.DelayMS != 10 {
		t.Errorf("delay_ms = %d, want 10", cfg.Analysis.DelayMS)
	}
	// Untouched fields keep defaults.
	if cfg.Analysis.RerunDelayMS != 1500 {
		t.Errorf("rerun_delay_ms = %d, want default 1500", cfg.Analysis.RerunDelayMS)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: -1},
		Logging:  LoggingConfig{Level: "loud", BufferSize: 0},
		Analysis: AnalysisConfig{DelayMS: -5},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{"server.port", "logging.level", "buffer_size", "delay_ms"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing mention of %s", msg, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if err != nil {
			t.Errorf("ParseLevel(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
