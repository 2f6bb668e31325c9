package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Network   NetworkConfig   `toml:"network"`
	Logging   LoggingConfig   `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig carries the core server values. All but ScriptsPath are
// settable from the command line, and those flag values override whatever
// the TOML file provides; ScriptsPath comes from the TOML file only.
type ServerConfig struct {
	Port         uint16 `toml:"port"`
	TickRate     int    `toml:"tick_rate"` // ticks per second
	MaxPlayers   int    `toml:"max_players"`
	DBPath       string `toml:"db_path"`
	KingdomsPath string `toml:"kingdoms_path"`
	ScriptsPath  string `toml:"scripts_path"`
}

type NetworkConfig struct {
	InQueueSize       int           `toml:"in_queue_size"`
	OutQueueSize      int           `toml:"out_queue_size"`
	MaxPacketsPerTick int           `toml:"max_packets_per_tick"`
	MaxFrameBytes     int           `toml:"max_frame_bytes"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// RateLimitConfig drives a per-source-IP token bucket, not a strict rolling
// window: after a burst of AuthAttempts, one attempt is regained every
// AuthWindowSecond/AuthAttempts seconds.
type RateLimitConfig struct {
	Enabled          bool `toml:"enabled"`
	AuthAttempts     int  `toml:"auth_attempts"`      // burst size, per source IP
	AuthWindowSecond int  `toml:"auth_window_second"` // time for an empty bucket to refill fully
}

// Load reads the optional TOML config file over the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         7777,
			TickRate:     20,
			MaxPlayers:   1000,
			DBPath:       "game.db",
			KingdomsPath: "kingdoms.json",
			ScriptsPath:  "scripts",
		},
		Network: NetworkConfig{
			InQueueSize:       128,
			OutQueueSize:      256,
			MaxPacketsPerTick: 32,
			MaxFrameBytes:     8192,
			WriteTimeout:      10 * time.Second,
			ReadTimeout:       60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			AuthAttempts:     5,
			AuthWindowSecond: 60,
		},
	}
}

// TickPeriod returns the duration of one tick.
func (c *ServerConfig) TickPeriod() time.Duration {
	rate := c.TickRate
	if rate <= 0 {
		rate = 20
	}
	return time.Second / time.Duration(rate)
}
