package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go-practice/match"
	"go-practice/pitch"
)

const (
	DefaultTickRate = 30
	MaxTickRate     = 240
)

// Config is the main configuration structure
type Config struct {
	A4        float64    `json:"a4"`
	LastFile  string     `json:"lastFile,omitempty"`
	Track     int        `json:"track"`
	Mode      match.Mode `json:"mode"`
	InputPort string     `json:"inputPort,omitempty"` // substring of a MIDI input port name
	HTTPAddr  string     `json:"httpAddr,omitempty"`
	TickRate  int        `json:"tickRate"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		A4:       pitch.DefaultA4,
		Mode:     match.Auto,
		TickRate: DefaultTickRate,
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-practice"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path. Fields missing from the file keep their
// defaults.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Tuning returns the configured tuning. An out-of-range A4 yields the default
// tuning together with a *pitch.ConfigError.
func (c *Config) Tuning() (pitch.Tuning, error) {
	return pitch.NewTuning(c.A4)
}

// Rate returns the tick rate clamped to a usable range.
func (c *Config) Rate() int {
	switch {
	case c.TickRate <= 0:
		return DefaultTickRate
	case c.TickRate > MaxTickRate:
		return MaxTickRate
	}
	return c.TickRate
}
