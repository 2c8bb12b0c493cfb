// Package config loads server configuration from YAML with sane defaults
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds devserver configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Seed    SeedConfig    `mapstructure:"seed"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig for the HTTP listener
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StreamConfig tunes the websocket activity stream
type StreamConfig struct {
	// BroadcastPerSecond caps fan-out rate; excess frames are dropped
	BroadcastPerSecond int `mapstructure:"broadcast_per_second"`
	BroadcastBurst     int `mapstructure:"broadcast_burst"`
	MaxClients         int `mapstructure:"max_clients"`
}

// SeedConfig controls the synthetic event generator
type SeedConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	Backlog  int           `mapstructure:"backlog"`
}

// LoggingConfig for pkg/logger
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from the given YAML file. A missing file is
// not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("stream.broadcast_per_second", 100)
	v.SetDefault("stream.broadcast_burst", 200)
	v.SetDefault("stream.max_clients", 1000)
	v.SetDefault("seed.enabled", true)
	v.SetDefault("seed.interval", 5*time.Second)
	v.SetDefault("seed.backlog", 75)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
