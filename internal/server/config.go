package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds server-tunable settings, adapted from the teacher's
// config.go. Persistence/auth fields the teacher carried are dropped:
// spec.md §1 names both as explicit non-goals, so there's nothing in
// this repo that would ever read them (see DESIGN.md).
type Config struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	MaxClients int           `mapstructure:"max_clients"`
	LogLevel   string        `mapstructure:"log_level"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns the defaults from spec.md §6: host 127.0.0.1,
// port 31337, and the bounded worker pool's default cap of 64 (spec.md
// §5).
func DefaultConfig() *Config {
	return &Config{
		Host:         "127.0.0.1",
		Port:         31337,
		MaxClients:   64,
		LogLevel:     "info",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables, an optional
// config file, and command-line flags, exactly the way the teacher's
// LoadConfig wires viper.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("miniredis")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/miniredis/")
	viper.AddConfigPath("$HOME/.miniredis")

	viper.SetEnvPrefix("MINIREDIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("max_clients", config.MaxClients)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("read_timeout", config.ReadTimeout)
	viper.SetDefault("write_timeout", config.WriteTimeout)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate mirrors the teacher's Validate, trimmed to the fields that
// survived.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("max_clients must be at least 1")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("miniredis Config: %s:%d, MaxClients: %d, LogLevel: %s",
		c.Host, c.Port, c.MaxClients, c.LogLevel)
}
