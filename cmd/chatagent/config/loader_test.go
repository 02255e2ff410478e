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

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

// TestCreateDefault verifies default config creation.
func TestCreateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, ".aleutian", "chatagent.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg ChatAgentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	if cfg.Server.URL != "http://localhost:12210" {
		t.Errorf("Server.URL = %q, want default localhost URL", cfg.Server.URL)
	}
	if !cfg.Chat.VerifyChain {
		t.Error("Chain verification should default to enabled")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

// TestCreateDefault_DirectoryCreation verifies directory is created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "deep", "nested", "path", "chatagent.yaml")

	if err := createDefault(configPath); err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}
	if _, err := os.Stat(filepath.Dir(configPath)); os.IsNotExist(err) {
		t.Fatal("nested config directory was not created")
	}
}

// TestApplyEnvOverrides verifies environment variables win over file
// values.
func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CHATAGENT_SERVER_URL", "http://example.test:9999")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.Server.URL != "http://example.test:9999" {
		t.Errorf("Server.URL = %q, want env override", cfg.Server.URL)
	}
}
