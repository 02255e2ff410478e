// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// ChatAgentConfig is the persisted CLI configuration.
type ChatAgentConfig struct {
	Server   ServerConfig  `yaml:"server"`
	Chat     ChatConfig    `yaml:"chat"`
	Logging  LoggingConfig `yaml:"logging"`
	Version  int           `yaml:"version"`
	Comments string        `yaml:"comments,omitempty"`
}

// ServerConfig locates the orchestrator.
type ServerConfig struct {
	URL string `yaml:"url"`
}

// ChatConfig holds per-conversation defaults.
type ChatConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	ShowThoughts bool   `yaml:"show_thoughts"`
	VerifyChain  bool   `yaml:"verify_chain"`
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ChatAgentConfig {
	return ChatAgentConfig{
		Server: ServerConfig{
			URL: "http://localhost:12210",
		},
		Chat: ChatConfig{
			VerifyChain: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Version:  1,
		Comments: "Aleutian chat agent CLI configuration",
	}
}
