// Package config provides configuration file support for tcptrace.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the tcptrace configuration file structure.
type Config struct {
	// Defaults are applied when flags are not specified
	Defaults Defaults `yaml:"defaults"`

	// Aliases for common targets
	Aliases map[string]string `yaml:"aliases,omitempty"`

	// MaxMind holds optional local GeoLite2 database settings, used in
	// place of the online ASN/GeoIP APIs when configured.
	MaxMind MaxMindConfig `yaml:"maxmind"`
}

// MaxMindConfig holds settings for local MaxMind GeoLite2 database lookups.
type MaxMindConfig struct {
	Enabled     bool   `yaml:"enabled"`
	LicenseKey  string `yaml:"license_key"`
	UpdateHours int    `yaml:"update_hours"`
}

// Defaults holds default values for trace parameters.
type Defaults struct {
	// Output mode
	TUI     bool `yaml:"tui"`
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
	CSV     bool `yaml:"csv"`
	NoColor bool `yaml:"no_color"`

	// Send/listen mode: auto, connect, raw
	Mode string `yaml:"mode"`

	// Trace parameters
	MaxHops int           `yaml:"max_hops"`
	Timeout time.Duration `yaml:"timeout"`
	Port    int           `yaml:"port"`

	// Enrichment
	Enrichment EnrichmentConfig `yaml:"enrichment"`
}

// EnrichmentConfig holds enrichment settings.
type EnrichmentConfig struct {
	Enabled bool `yaml:"enabled"`
	RDNS    bool `yaml:"rdns"`
	ASN     bool `yaml:"asn"`
	GeoIP   bool `yaml:"geoip"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Defaults: Defaults{
			TUI:     false,
			Verbose: false,
			JSON:    false,
			CSV:     false,
			NoColor: false,
			Mode:    "auto",
			MaxHops: 30,
			Timeout: 1 * time.Second,
			Port:    443,
			Enrichment: EnrichmentConfig{
				Enabled: true,
				RDNS:    true,
				ASN:     true,
				GeoIP:   true,
			},
		},
		Aliases: make(map[string]string),
		MaxMind: MaxMindConfig{
			Enabled:     false,
			UpdateHours: 168,
		},
	}
}

// Load reads configuration from the default config file locations.
// It searches in order:
//  1. ./tcptrace.yaml (current directory)
//  2. ~/.config/tcptrace/config.yaml (Linux/macOS)
//  3. %APPDATA%\tcptrace\config.yaml (Windows)
//
// If no config file is found, returns default configuration.
func Load() (*Config, error) {
	paths := getConfigPaths()

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return LoadFrom(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFrom reads configuration from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save writes the configuration to the default user config path.
func (c *Config) Save() error {
	path := getUserConfigPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SaveTo writes the configuration to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// getConfigPaths returns the list of config file paths to search.
func getConfigPaths() []string {
	paths := []string{
		"tcptrace.yaml",
		"tcptrace.yml",
		".tcptrace.yaml",
		".tcptrace.yml",
	}

	userPath := getUserConfigPath()
	if userPath != "" {
		paths = append(paths, userPath)
	}

	return paths
}

// getUserConfigPath returns the user-specific config file path.
func getUserConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "tcptrace", "config.yaml")
		}
	default: // Linux, macOS, etc.
		home, err := os.UserHomeDir()
		if err == nil {
			xdgConfig := os.Getenv("XDG_CONFIG_HOME")
			if xdgConfig != "" {
				return filepath.Join(xdgConfig, "tcptrace", "config.yaml")
			}
			return filepath.Join(home, ".config", "tcptrace", "config.yaml")
		}
	}
	return ""
}

// GetConfigPath returns the path where user config would be saved.
func GetConfigPath() string {
	return getUserConfigPath()
}

// getDataDir returns the directory where downloaded MaxMind databases are
// stored, alongside the user config directory.
func getDataDir() string {
	dir := filepath.Dir(getUserConfigPath())
	if dir == "" || dir == "." {
		return "."
	}
	return dir
}

// GetASNDBPath returns the local path for the GeoLite2-ASN database.
func GetASNDBPath() string {
	return filepath.Join(getDataDir(), "GeoLite2-ASN.mmdb")
}

// GetGeoDBPath returns the local path for the GeoLite2-City database.
func GetGeoDBPath() string {
	return filepath.Join(getDataDir(), "GeoLite2-City.mmdb")
}

// GenerateExample generates an example configuration file content.
func GenerateExample() string {
	return `# tcptrace Configuration File
# Location: ~/.config/tcptrace/config.yaml (Linux/macOS)
#           %APPDATA%\tcptrace\config.yaml (Windows)
#           ./tcptrace.yaml (current directory)

defaults:
  # Output mode (only one should be true)
  tui: false              # Interactive TUI mode
  verbose: false          # Detailed table output
  json: false             # JSON output
  csv: false              # CSV output
  no_color: false         # Disable colors

  # Send/listen mode: auto, connect, raw
  mode: auto

  # Trace parameters
  max_hops: 30            # Maximum number of hops
  timeout: 1s             # Per-hop wait window
  port: 443               # Destination port

  # Enrichment settings
  enrichment:
    enabled: true         # Master switch for all enrichment
    rdns: true            # Reverse DNS lookups
    asn: true             # ASN lookups
    geoip: true           # GeoIP lookups

# Target aliases (optional)
aliases:
  dns: 8.8.8.8
  cf: 1.1.1.1
  google: google.com

# Local MaxMind GeoLite2 databases (optional, replaces the online APIs)
maxmind:
  enabled: false
  license_key: ""
  update_hours: 168
`
}
