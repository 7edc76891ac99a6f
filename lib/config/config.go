// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the Tether bridge.
//
// Configuration is loaded from a single YAML file specified by:
//   - the TETHER_CONFIG environment variable, or
//   - the --config flag passed to the binary.
//
// There are no fallbacks or automatic discovery; flags set on the
// command line override file values in main. The bot token is never
// part of the file — it comes from the TETHER_BOT_TOKEN environment
// variable so that config files stay safe to commit.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the bridge configuration.
type Config struct {
	// ListenAddr is the HTTP listen address for the health endpoint,
	// the visitor websocket endpoint, and (in webhook mode) the
	// workspace webhook.
	ListenAddr string `yaml:"listen_addr"`

	// PublicOrigin, when set, must be a bare https origin
	// (e.g. "https://support.example.com"). It switches workspace
	// update delivery from long-polling to webhook push.
	PublicOrigin string `yaml:"public_origin"`

	// OpsSocketPath is the Unix socket path for the operator CBOR
	// protocol. Empty disables the ops socket.
	OpsSocketPath string `yaml:"ops_socket_path"`

	// AllowedOrigins restricts websocket upgrades to these browser
	// origins. Empty (or a single "*") allows all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Workspace configures the chat-workspace side of the bridge.
	Workspace WorkspaceConfig `yaml:"workspace"`
}

// WorkspaceConfig identifies where the bridge posts in the workspace.
type WorkspaceConfig struct {
	// APIURL is the base URL of the Bot API.
	APIURL string `yaml:"api_url"`

	// GroupID is the agent group chat that owns all session threads.
	GroupID int64 `yaml:"group_id"`

	// RequestsThreadID is the fixed thread receiving one summary card
	// per session.
	RequestsThreadID int64 `yaml:"requests_thread_id"`

	// LogsThreadID is the fixed audit thread receiving open/close
	// log lines across all sessions.
	LogsThreadID int64 `yaml:"logs_thread_id"`
}

// Default returns the configuration defaults applied before loading a
// file. Required identifiers (group and thread ids) have no defaults;
// Validate rejects a config that leaves them unset.
func Default() *Config {
	return &Config{
		ListenAddr: ":3001",
		Workspace: WorkspaceConfig{
			APIURL: "https://api.telegram.org",
		},
	}
}

// Load loads configuration from the TETHER_CONFIG environment
// variable. Fails if the variable is not set — use LoadFile when the
// path comes from a flag, or Default when running on flags alone.
func Load() (*Config, error) {
	path := os.Getenv("TETHER_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("config: TETHER_CONFIG environment variable not set; " +
			"set it to the path of your tether.yaml config file, or use the --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// originPattern accepts a bare https origin with no path component.
// Anything else (http, trailing slash, path) silently breaks webhook
// registration at the workspace side, so it is rejected up front.
var originPattern = regexp.MustCompile(`^https://[^/]+$`)

// Validate checks that all required fields are set and well-formed.
// Returns an error naming the first problem found.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("config: listen_addr is required")
	}
	if c.Workspace.APIURL == "" {
		return fmt.Errorf("config: workspace.api_url is required")
	}
	if c.Workspace.GroupID == 0 {
		return fmt.Errorf("config: workspace.group_id is required")
	}
	if c.Workspace.RequestsThreadID == 0 {
		return fmt.Errorf("config: workspace.requests_thread_id is required")
	}
	if c.Workspace.LogsThreadID == 0 {
		return fmt.Errorf("config: workspace.logs_thread_id is required")
	}
	if c.PublicOrigin != "" && !originPattern.MatchString(c.PublicOrigin) {
		return fmt.Errorf("config: public_origin %q must be a bare https origin (https://host, no path)", c.PublicOrigin)
	}
	return nil
}

// WebhookMode reports whether workspace updates arrive by webhook push
// rather than long-polling.
func (c *Config) WebhookMode() bool {
	return c.PublicOrigin != ""
}
