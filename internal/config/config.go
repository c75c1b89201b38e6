package config

import (
	"errors"
	"fmt"
)

// Config holds everything the server needs at startup. Values come from
// flags, with SKETCHDUEL_-prefixed environment variables as fallback.
type Config struct {
	Bind          string
	Port          int
	AllowedOrigin string
	WordsFile     string
	TurnSeconds   int
	Verbose       bool
}

func Default() Config {
	return Config{
		Bind:          "0.0.0.0",
		Port:          8080,
		AllowedOrigin: "*",
		TurnSeconds:   100,
	}
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.TurnSeconds < 1 {
		return errors.New("turn-seconds must be positive")
	}
	if c.AllowedOrigin == "" {
		return errors.New("allowed-origin must not be empty")
	}
	return nil
}

// Addr is the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}
