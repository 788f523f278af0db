// Package config sets up process-wide logging for the ascents binaries.
package config

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds process configuration read from the environment.
type Config struct {
	LogLevel zerolog.Level
	Mode     string
}

// Load reads LOG_LEVEL and ASCENTS_MODE.
func Load() *Config {
	return &Config{
		LogLevel: ParseLogLevel(strings.ToLower(os.Getenv("LOG_LEVEL"))),
		Mode:     getEnvOrDefault("ASCENTS_MODE", "development"),
	}
}

// Init installs the logger at the configured level.
func (c *Config) Init() {
	InitLogger(nil)
	SetLogLevel(c.LogLevel)

	log.Debug().
		Str("mode", c.Mode).
		Str("log_level", c.LogLevel.String()).
		Msg("configuration loaded")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
