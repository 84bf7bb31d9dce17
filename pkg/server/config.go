package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the resolved runtime configuration.
type Config struct {
	HTTPPort         int
	PprofPort        int
	PingInterval     time.Duration
	WriteTimeout     time.Duration
	MaxMessageLength int
	SendQueueSize    int
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		HTTPPort:         3001,
		PprofPort:        0, // disabled
		PingInterval:     54 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageLength: 4096,
		SendQueueSize:    256,
	}
}

// PongWait is the read deadline: clients get one ping interval plus slack to
// answer before the connection is considered dead.
func (c Config) PongWait() time.Duration {
	return c.PingInterval + c.PingInterval/9
}

// ReadLimit bounds inbound frame size. Payloads carry the message text plus
// envelope overhead, so the limit leaves generous headroom over the text cap.
func (c Config) ReadLimit() int64 {
	return int64(c.MaxMessageLength)*2 + 1024
}

// TOMLConfig represents the structure of the server config file.
type TOMLConfig struct {
	Server ServerSection `toml:"server"`
	Limits LimitsSection `toml:"limits"`
}

type ServerSection struct {
	HTTPPort            int `toml:"http_port"`
	PprofPort           int `toml:"pprof_port"`
	PingIntervalSeconds int `toml:"ping_interval_seconds"`
	WriteTimeoutSeconds int `toml:"write_timeout_seconds"`
}

type LimitsSection struct {
	MaxMessageLength int `toml:"max_message_length"`
	SendQueueSize    int `toml:"send_queue_size"`
}

// DefaultTOMLConfig returns the default TOML configuration.
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			HTTPPort:            3001,
			PprofPort:           0,
			PingIntervalSeconds: 54,
			WriteTimeoutSeconds: 10,
		},
		Limits: LimitsSection{
			MaxMessageLength: 4096,
			SendQueueSize:    256,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating a default file
// if none exists yet.
func LoadConfig(path string) (TOMLConfig, error) {
	path, err := expandHome(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		// Best effort: if the file can't be written we still run on defaults.
		writeDefaultConfig(path, config)
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# Pulse Server Configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ToConfig converts the file representation to the runtime configuration,
// filling in defaults for zero values.
func (c *TOMLConfig) ToConfig() Config {
	cfg := DefaultConfig()

	if c.Server.HTTPPort != 0 {
		cfg.HTTPPort = c.Server.HTTPPort
	}
	if c.Server.PprofPort != 0 {
		cfg.PprofPort = c.Server.PprofPort
	}
	if c.Server.PingIntervalSeconds != 0 {
		cfg.PingInterval = time.Duration(c.Server.PingIntervalSeconds) * time.Second
	}
	if c.Server.WriteTimeoutSeconds != 0 {
		cfg.WriteTimeout = time.Duration(c.Server.WriteTimeoutSeconds) * time.Second
	}
	if c.Limits.MaxMessageLength != 0 {
		cfg.MaxMessageLength = c.Limits.MaxMessageLength
	}
	if c.Limits.SendQueueSize != 0 {
		cfg.SendQueueSize = c.Limits.SendQueueSize
	}

	return cfg
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}
