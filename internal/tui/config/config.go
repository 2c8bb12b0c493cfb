package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all dashboard TUI configuration
type Config struct {
	Server ServerConfig `yaml:"server"`
	Feed   FeedConfig   `yaml:"feed"`
	Notify NotifyConfig `yaml:"notify"`
	UI     UIConfig     `yaml:"ui"`
}

// ServerConfig contains backend connection settings
type ServerConfig struct {
	Host string     `yaml:"host"`
	HTTP HTTPConfig `yaml:"http"`
	WS   WSConfig   `yaml:"ws"`
}

// HTTPConfig for the REST API
type HTTPConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// WSConfig for the activity stream
type WSConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

// FeedConfig tunes the activity feed
type FeedConfig struct {
	PageSize          int  `yaml:"page_size"`
	DebounceMS        int  `yaml:"debounce_ms"`
	ReconnectBaseSec  int  `yaml:"reconnect_base_sec"`
	ReconnectMaxSec   int  `yaml:"reconnect_max_sec"`
	ReconnectAttempts int  `yaml:"reconnect_attempts"`
	VirtualizeRows    int  `yaml:"virtualize_rows"`
	ForceVirtualize   bool `yaml:"force_virtualize"`
}

// NotifyConfig tunes toast notifications
type NotifyConfig struct {
	Enabled       bool     `yaml:"enabled"`
	Actions       []string `yaml:"actions"`
	ResourceTypes []string `yaml:"resource_types"`
	DurationMS    int      `yaml:"duration_ms"`
}

// UIConfig for UI preferences
type UIConfig struct {
	Theme       string `yaml:"theme"`
	RefreshRate int    `yaml:"refresh_rate_ms"`
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			HTTP: HTTPConfig{
				Port:    8080,
				BaseURL: "http://localhost:8080",
			},
			WS: WSConfig{
				Port: 8080,
				Path: "/ws/activity",
				URL:  "ws://localhost:8080/ws/activity",
			},
		},
		Feed: FeedConfig{
			PageSize:          20,
			DebounceMS:        300,
			ReconnectBaseSec:  3,
			ReconnectMaxSec:   60,
			ReconnectAttempts: 5,
			VirtualizeRows:    100,
		},
		Notify: NotifyConfig{
			Enabled:    true,
			DurationMS: 5000,
		},
		UI: UIConfig{
			Theme:       "dracula",
			RefreshRate: 1000,
		},
	}
}

// Load loads configuration from file, falling back to defaults
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return Default(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Compute URLs; public hosts get TLS schemes, localhost stays plain.
	httpScheme := "http"
	wsScheme := "ws"
	if cfg.Server.Host != "localhost" && cfg.Server.Host != "127.0.0.1" {
		httpScheme = "https"
		wsScheme = "wss"
	}

	cfg.Server.HTTP.BaseURL = fmt.Sprintf("%s://%s:%d",
		httpScheme, cfg.Server.Host, cfg.Server.HTTP.Port)
	if cfg.Server.WS.Path == "" {
		cfg.Server.WS.Path = "/ws/activity"
	}
	cfg.Server.WS.URL = fmt.Sprintf("%s://%s:%d%s",
		wsScheme, cfg.Server.Host, cfg.Server.WS.Port, cfg.Server.WS.Path)

	return &cfg, nil
}

// Save saves configuration to file
func (c *Config) Save(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// findConfigFile searches for config in standard locations
func findConfigFile() string {
	locations := []string{
		"./timelinehub.yaml",
		"./config/dashboard.yaml",
		filepath.Join(os.Getenv("HOME"), ".config", "timelinehub", "dashboard.yaml"),
		filepath.Join(os.Getenv("HOME"), ".timelinehub.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}
