package server

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/ironsheep/stencil-tools-mcp/internal/imaging"
	"github.com/ironsheep/stencil-tools-mcp/internal/session"
	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvLogLevel     = "STENCIL_MCP_LOG_LEVEL"
	EnvMaxDimension = "STENCIL_MCP_MAX_DIMENSION"
	EnvDebounceMS   = "STENCIL_MCP_DEBOUNCE_MS"
)

// Config holds the server's runtime settings.
type Config struct {
	// Version is reported in the initialize handshake.
	Version string

	// LogLevel is "debug" or "" (quiet).
	LogLevel string

	// MaxDimension is the longer-side cap applied when loading images.
	MaxDimension int

	// Debounce is the quiescence delay before a low-fidelity preview runs.
	Debounce time.Duration

	// Settings seeds every new editing session.
	Settings stencil.Settings
}

// DefaultConfig returns the configuration used when no environment
// variables are set.
func DefaultConfig() Config {
	return Config{
		Version:      "dev",
		MaxDimension: imaging.DefaultMaxDimension,
		Debounce:     session.DefaultDebounce,
		Settings:     stencil.DefaultSettings(),
	}
}

// Debug reports whether debug logging was requested.
func (c Config) Debug() bool {
	return c.LogLevel == "debug"
}

// ConfigFromEnv builds a Config from STENCIL_MCP_* environment variables.
// Invalid values are logged and replaced by their defaults.
func ConfigFromEnv() Config {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) Config {
	cfg := DefaultConfig()
	cfg.LogLevel = getenv(EnvLogLevel)

	if v := getenv(EnvMaxDimension); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			log.Printf("Ignoring %s=%q: want a positive integer, using %d", EnvMaxDimension, v, cfg.MaxDimension)
		} else {
			cfg.MaxDimension = n
		}
	}

	if v := getenv(EnvDebounceMS); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			log.Printf("Ignoring %s=%q: want a non-negative integer, using %v", EnvDebounceMS, v, cfg.Debounce)
		} else {
			cfg.Debounce = time.Duration(n) * time.Millisecond
		}
	}

	return cfg
}
