package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
	if cfg.Scoring.Level != 15 {
		t.Errorf("Scoring.Level = %d, want 15", cfg.Scoring.Level)
	}
	if cfg.Cache.MaxFiles != 50 {
		t.Errorf("Cache.MaxFiles = %d, want 50", cfg.Cache.MaxFiles)
	}
	if cfg.Cache.MaxAge != 8*time.Hour {
		t.Errorf("Cache.MaxAge = %v, want 8h", cfg.Cache.MaxAge)
	}
}

func TestDecodeOverDefaults(t *testing.T) {
	input := `
scoring:
  level: 40
cache:
  max_age: 30m
log:
  format: json
`
	cfg, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if cfg.Scoring.Level != 40 {
		t.Errorf("Scoring.Level = %d, want 40", cfg.Scoring.Level)
	}
	if cfg.Cache.MaxAge != 30*time.Minute {
		t.Errorf("Cache.MaxAge = %v, want 30m", cfg.Cache.MaxAge)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	// untouched keys keep their defaults
	if cfg.Cache.Workers != 3 {
		t.Errorf("Cache.Workers = %d, want 3", cfg.Cache.Workers)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode(\"\") error = %v", err)
	}
	if cfg.Scoring.Level != Default().Scoring.Level {
		t.Errorf("Scoring.Level = %d, want default", cfg.Scoring.Level)
	}
}

func TestDecodeUnknownKey(t *testing.T) {
	_, err := Decode(strings.NewReader("scoring:\n  levle: 3\n"))
	if err == nil {
		t.Fatal("Decode() accepted an unknown key")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Scoring.Level = 60
	cfg.Cache.MaxAge = 90 * time.Minute
	cfg.Feed.Origins = []string{"http://localhost:3000"}

	var buf bytes.Buffer
	if err := cfg.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if !strings.Contains(buf.String(), "max_age: 1h30m0s") {
		t.Errorf("Write() output lacks duration string:\n%s", buf.String())
	}

	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got.Scoring.Level != 60 || got.Cache.MaxAge != 90*time.Minute {
		t.Errorf("round trip = %+v", got)
	}
	if len(got.Feed.Origins) != 1 || got.Feed.Origins[0] != "http://localhost:3000" {
		t.Errorf("Feed.Origins = %v", got.Feed.Origins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "karaoke.yaml")
	if err := os.WriteFile(path, []byte("scoring:\n  compensation_offset: 12\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvConfig, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scoring.CompensationOffset != 12 {
		t.Errorf("CompensationOffset = %d, want 12", cfg.Scoring.CompensationOffset)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("Load() with missing explicit file succeeded")
	}
}

func TestLoadFallsBackToDefault(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scoring.Level != Default().Scoring.Level {
		t.Errorf("Scoring.Level = %d, want default", cfg.Scoring.Level)
	}
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv("KARAOKE_SCORING_LEVEL", "70")
	t.Setenv("KARAOKE_CACHE_MAX_AGE", "2h")
	t.Setenv("KARAOKE_LOG_LEVEL", "debug")

	cfg := Default()
	cfg.Apply(NewViper())

	if cfg.Scoring.Level != 70 {
		t.Errorf("Scoring.Level = %d, want 70", cfg.Scoring.Level)
	}
	if cfg.Cache.MaxAge != 2*time.Hour {
		t.Errorf("Cache.MaxAge = %v, want 2h", cfg.Cache.MaxAge)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Cache.Workers != 3 {
		t.Errorf("Cache.Workers = %d, want untouched 3", cfg.Cache.Workers)
	}
}

func TestApplyExplicitValues(t *testing.T) {
	v := NewViper()
	v.Set("cache.workers", 8)
	v.Set("feed.addr", ":9000")

	cfg := Default()
	cfg.Apply(v)
	cfg.Apply(nil)

	if cfg.Cache.Workers != 8 {
		t.Errorf("Cache.Workers = %d, want 8", cfg.Cache.Workers)
	}
	if cfg.Feed.Addr != ":9000" {
		t.Errorf("Feed.Addr = %q, want :9000", cfg.Feed.Addr)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"level too low", func(c *Config) { c.Scoring.Level = 0 }, "scoring.level"},
		{"level too high", func(c *Config) { c.Scoring.Level = 101 }, "scoring.level"},
		{"offset", func(c *Config) { c.Scoring.CompensationOffset = -1 }, "compensation_offset"},
		{"initial score", func(c *Config) { c.Scoring.InitialScore = -5 }, "initial_score"},
		{"empty dir", func(c *Config) { c.Cache.Dir = "" }, "cache.dir"},
		{"max files", func(c *Config) { c.Cache.MaxFiles = 0 }, "max_files"},
		{"max age", func(c *Config) { c.Cache.MaxAge = 0 }, "max_age"},
		{"workers", func(c *Config) { c.Cache.Workers = -1 }, "workers"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	if err != nil {
		t.Fatalf("Logger() error = %v", err)
	}
	if logger.GetLevel() != logrus.WarnLevel {
		t.Errorf("level = %v, want warn", logger.GetLevel())
	}

	logger.Warn("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("output %q is not JSON", buf.String())
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	if got := len(cfg.MachineOptions(nil)); got != 4 {
		t.Errorf("MachineOptions() returned %d options, want 4", got)
	}
	if got := len(cfg.DownloadOptions(nil)); got != 4 {
		t.Errorf("DownloadOptions() returned %d options, want 4", got)
	}
}
