// Package config loads server configuration from an optional YAML file.
// Flags and environment variables applied in main take precedence over file
// values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ThinhNguyen0811/map-bot/pkg/bridge"
)

// Config holds the full server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// Model is the model identifier passed to the provider.
	Model string `yaml:"model"`

	// Greeting is sent once per new connection. Empty uses the built-in
	// greeting.
	Greeting string `yaml:"greeting"`

	// Instructions overrides the built-in system prompt when set.
	Instructions string `yaml:"instructions"`

	// HistoryWindow caps retained turns per session.
	HistoryWindow int `yaml:"history_window"`

	// Tools configures the tool-execution endpoint.
	Tools bridge.Config `yaml:"tools"`
}

// Default returns the configuration used when no file value applies.
func Default() Config {
	return Config{
		Addr:          ":8080",
		Model:         "gemini-2.0-flash",
		HistoryWindow: 20,
		Tools: bridge.Config{
			Transport: bridge.TransportHTTP,
			URL:       "http://localhost:3001/mcp",
		},
	}
}

// Load reads the config file at path, merged over defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
