package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tourguide/pkg/validation"
)

// Environment variables that override the file when set.
const (
	EnvAddress  = "TOURGUIDE_ADDRESS"
	EnvLogLevel = "TOURGUIDE_LOG_LEVEL"
)

// Config holds the application configuration.
type Config struct {
	Tour    TourConfig    `yaml:"tour"`
	Log     LogConfig     `yaml:"log"`
	Server  ServerConfig  `yaml:"server"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// TourConfig holds the navigation tunables handed to the controller.
type TourConfig struct {
	WaypointRadius     Distance `yaml:"waypoint_radius" validate:"gt=0"`
	WaypointSeparation Distance `yaml:"waypoint_separation" validate:"gt=0"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	Events   LogSettings `yaml:"events"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path" validate:"required"`
	Level string `yaml:"level" validate:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string   `yaml:"address" validate:"required,hostname_port"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    Duration `yaml:"write_timeout" validate:"gte=0"`
}

// CatalogConfig lists tour scripts replayed at startup.
type CatalogConfig struct {
	Paths []string `yaml:"paths"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Tour: TourConfig{
			WaypointRadius:     Distance(10),
			WaypointSeparation: Distance(25),
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Events: LogSettings{
				Path:  "./logs/events.log",
				Level: "INFO",
			},
		},
		Server: ServerConfig{
			Address:         "localhost:1920",
			AllowedOrigins:  []string{"http://localhost:1920"},
			ShutdownTimeout: Duration(5 * time.Second),
			ReadTimeout:     Duration(10 * time.Second),
			WriteTimeout:    Duration(10 * time.Second),
		},
	}
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	return validation.Struct(c)
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges it over the defaults but does NOT save back to disk.
// Environment overrides are applied last and never written to disk.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if addr := os.Getenv(EnvAddress); addr != "" {
		cfg.Server.Address = addr
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Log.Server.Level = strings.ToUpper(level)
	}
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Tourguide Configuration
# -----------------------
# Supported Units:
#   Duration: ms, s, m, h (e.g. 1m30s)
#   Distance: m (meters), km (kilometers), nm (nautical miles), ft (feet)
# Environment overrides: ` + EnvAddress + `, ` + EnvLogLevel + `

`)
	data = append(header, data...)

	reLevel := regexp.MustCompile(`(?m)^(\s+)level:`)
	data = reLevel.ReplaceAll(data, []byte("${1}# Options: DEBUG, INFO, WARN, ERROR\n${1}level:"))

	reRadius := regexp.MustCompile(`(?m)^(\s+)waypoint_radius:`)
	data = reRadius.ReplaceAll(data, []byte("${1}# Arrival threshold while following (inclusive)\n${1}waypoint_radius:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
