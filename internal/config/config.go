package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Library LibraryConfig `toml:"library"`
	Audio   AudioConfig   `toml:"audio"`
	UI      UIConfig      `toml:"ui"`
	Logging LoggingConfig `toml:"logging"`
	Stats   StatsConfig   `toml:"stats"`
}

// LibraryConfig contains music library configuration
type LibraryConfig struct {
	Path                  string   `toml:"path"`
	SupportedFormats      []string `toml:"supported_formats"`
	WatchForChanges       bool     `toml:"watch_for_changes"`
	RescanDebounceSeconds int      `toml:"rescan_debounce_seconds"`
}

// AudioConfig contains audio output configuration
type AudioConfig struct {
	OutputDevice string  `toml:"output_device"`
	Volume       float64 `toml:"volume"`
}

// UIConfig contains user interface configuration
type UIConfig struct {
	Theme string `toml:"theme"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// StatsConfig contains play statistics configuration
type StatsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Library: LibraryConfig{
			Path:                  filepath.Join(home, "Music"),
			SupportedFormats:      []string{".mp3", ".m4a", ".wav", ".flac", ".ogg", ".opus"},
			WatchForChanges:       true,
			RescanDebounceSeconds: 2,
		},
		Audio: AudioConfig{
			OutputDevice: "default",
			Volume:       1.0,
		},
		UI: UIConfig{
			Theme: "system",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Stats: StatsConfig{
			Enabled: true,
			Path:    filepath.Join(home, ".config", "aria", "stats.db"),
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Aria Music Player Configuration
# Edit the values below to customize playback and library settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate library config
	if c.Library.Path == "" {
		return fmt.Errorf("library path cannot be empty")
	}
	if len(c.Library.SupportedFormats) == 0 {
		return fmt.Errorf("at least one supported audio format must be specified")
	}
	if c.Library.RescanDebounceSeconds < 0 {
		return fmt.Errorf("rescan debounce must not be negative")
	}

	// Validate audio config
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume must be between 0.0 and 1.0")
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	// Validate stats config
	if c.Stats.Enabled && c.Stats.Path == "" {
		return fmt.Errorf("stats path cannot be empty when stats are enabled")
	}

	return nil
}
