package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Whisper: WhisperConfig{
			BinaryPath: "/usr/local/bin/whisper-cli",
			ModelPath:  "models/ggml-large-v3.bin",
		},
		AI: AIConfig{
			Model: "test-model",
		},
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("server host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults = %q/%q, want info/console", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Storage.DatabasePath != "recut.db" {
		t.Errorf("database path = %q, want recut.db", cfg.Storage.DatabasePath)
	}
	if cfg.AI.Provider != "openai" {
		t.Errorf("ai provider = %q, want openai", cfg.AI.Provider)
	}
	if cfg.Cleanup.MaxSegmentChars != 50 {
		t.Errorf("max_segment_chars = %d, want 50", cfg.Cleanup.MaxSegmentChars)
	}
	if cfg.Cleanup.GapThresholdSecs != 1.0 {
		t.Errorf("gap_threshold_secs = %v, want 1.0", cfg.Cleanup.GapThresholdSecs)
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "port out of range", mutate: func(c *Config) { c.Server.Port = 70000 }},
		{name: "bad logging level", mutate: func(c *Config) { c.Logging.Level = "verbose" }},
		{name: "bad logging format", mutate: func(c *Config) { c.Logging.Format = "xml" }},
		{name: "missing whisper binary", mutate: func(c *Config) { c.Whisper.BinaryPath = "" }},
		{name: "missing whisper model", mutate: func(c *Config) { c.Whisper.ModelPath = "" }},
		{name: "unknown provider", mutate: func(c *Config) { c.AI.Provider = "claude" }},
		{name: "fullpath without url", mutate: func(c *Config) { c.AI.Provider = "fullpath" }},
		{name: "gemini without key", mutate: func(c *Config) { c.AI.Provider = "gemini" }},
		{name: "missing model", mutate: func(c *Config) { c.AI.Model = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() accepted an invalid config")
			}
		})
	}
}

func TestLoadWithFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := `
[whisper]
binary_path = "/bin/whisper-cli"
model_path = "model.bin"

[ai]
provider = "ollama"
base_url = "http://localhost:11434"
model = "qwen"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback() error = %v", err)
	}
	if cfg.AI.Provider != "ollama" || cfg.AI.Model != "qwen" {
		t.Errorf("loaded ai section = %+v, want ollama/qwen", cfg.AI)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadWithFallbackMissing(t *testing.T) {
	if _, err := LoadWithFallback(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadWithFallback() succeeded with no config file anywhere")
	}
}
