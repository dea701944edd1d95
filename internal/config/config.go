package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	Storage StorageConfig `toml:"storage"` // Data persistence settings
	Whisper WhisperConfig `toml:"whisper"` // Transcription engine settings
	AI      AIConfig      `toml:"ai"`      // Chat provider settings for quality judgment
	Cleanup CleanupConfig `toml:"cleanup"` // Pipeline defaults
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request (0 = no timeout)
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response (0 = no timeout)
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	DatabasePath string `toml:"database_path"` // Path to the SQLite database file
}

// WhisperConfig contains transcription engine configuration
type WhisperConfig struct {
	BinaryPath       string `toml:"binary_path"`           // Path to the whisper-cli executable
	ModelPath        string `toml:"model_path"`            // Path to the model file
	Language         string `toml:"language"`              // Default ISO language code, empty for auto-detect
	StallTimeoutSecs int    `toml:"stall_timeout_seconds"` // Kill the process after this long without output
	KillGraceSecs    int    `toml:"kill_grace_seconds"`    // Grace period between terminate and forced kill
}

// AIConfig contains chat provider configuration for the quality judge
type AIConfig struct {
	Provider     string  `toml:"provider"`        // openai, ollama, fullpath, or gemini
	BaseURL      string  `toml:"base_url"`        // Endpoint base URL (ignored for gemini)
	APIKey       string  `toml:"api_key"`         // API key; a placeholder is supplied for ollama
	Model        string  `toml:"model"`           // Model identifier passed to the provider
	Temperature  float64 `toml:"temperature"`     // Sampling temperature
	MaxTokens    int     `toml:"max_tokens"`      // Response token cap (0 = provider default)
	TimeoutSecs  int     `toml:"timeout_seconds"` // Per-request timeout
	SystemPrompt string  `toml:"system_prompt"`   // Override for the built-in judgment rubric
}

// CleanupConfig contains pipeline defaults applied to submitted jobs
type CleanupConfig struct {
	FFmpegPath       string  `toml:"ffmpeg_path"`        // Path to the ffmpeg executable
	SampleRate       int     `toml:"sample_rate"`        // PCM sample rate used during splicing
	Channels         int     `toml:"channels"`           // PCM channel count used during splicing
	MaxSegmentChars  int     `toml:"max_segment_chars"`  // Default segment split threshold
	GapThresholdSecs float64 `toml:"gap_threshold_secs"` // Default inter-segment gap threshold
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // Standard location in configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	// Server
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.ReadTimeoutSecs < 0 || c.Server.WriteTimeoutSecs < 0 || c.Server.IdleTimeoutSecs < 0 {
		return fmt.Errorf("server timeouts must be >= 0")
	}

	// Logging
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	// Storage
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "recut.db"
	}

	// Whisper
	if c.Whisper.BinaryPath == "" {
		return fmt.Errorf("whisper binary_path is required")
	}
	if c.Whisper.ModelPath == "" {
		return fmt.Errorf("whisper model_path is required")
	}
	if c.Whisper.StallTimeoutSecs < 0 || c.Whisper.KillGraceSecs < 0 {
		return fmt.Errorf("whisper timeouts must be >= 0")
	}

	// AI
	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	switch c.AI.Provider {
	case "openai", "ollama", "fullpath", "gemini":
	default:
		return fmt.Errorf("invalid AI provider: %s (must be 'openai', 'ollama', 'fullpath', or 'gemini')", c.AI.Provider)
	}
	if c.AI.Provider == "fullpath" && c.AI.BaseURL == "" {
		return fmt.Errorf("fullpath provider requires base_url")
	}
	if c.AI.Provider == "gemini" && c.AI.APIKey == "" {
		return fmt.Errorf("gemini provider requires api_key")
	}
	if c.AI.Model == "" {
		return fmt.Errorf("ai model is required")
	}
	if c.AI.Temperature < 0 {
		return fmt.Errorf("ai temperature must be >= 0")
	}
	if c.AI.TimeoutSecs < 0 {
		return fmt.Errorf("ai timeout must be >= 0")
	}

	// Cleanup
	if c.Cleanup.FFmpegPath == "" {
		c.Cleanup.FFmpegPath = "ffmpeg"
	}
	if c.Cleanup.SampleRate <= 0 {
		c.Cleanup.SampleRate = 44100
	}
	if c.Cleanup.Channels <= 0 {
		c.Cleanup.Channels = 2
	}
	if c.Cleanup.MaxSegmentChars <= 0 {
		c.Cleanup.MaxSegmentChars = 50
	}
	if c.Cleanup.GapThresholdSecs <= 0 {
		c.Cleanup.GapThresholdSecs = 1.0
	}

	return nil
}
