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
	tempDir, err := os.MkdirTemp("", "layerctl-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, ".layerctl", "layerctl.yaml")

	// Create the config
	err = createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed: %v", err)
	}

	// Verify the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("config file was not created")
	}

	// Read and verify the config
	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	var cfg LayerctlConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}

	// Verify some defaults
	if cfg.Upstream.Repo != "open-telemetry/opentelemetry-lambda" {
		t.Errorf("Upstream.Repo = %q, want %q",
			cfg.Upstream.Repo, "open-telemetry/opentelemetry-lambda")
	}
	if cfg.Meta.Version != CurrentConfigVersion {
		t.Errorf("Meta.Version = %q, want %q", cfg.Meta.Version, CurrentConfigVersion)
	}
	if cfg.Metadata.Table != DefaultMetadataTable {
		t.Errorf("Metadata.Table = %q, want %q", cfg.Metadata.Table, DefaultMetadataTable)
	}
}

// TestCreateDefault_DirectoryCreation verifies directory is created.
func TestCreateDefault_DirectoryCreation(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "layerctl-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Use a nested path
	configPath := filepath.Join(tempDir, "deep", "nested", "path", "layerctl.yaml")

	err = createDefault(configPath)
	if err != nil {
		t.Fatalf("createDefault() failed with nested path: %v", err)
	}

	// Verify the directories were created
	dirPath := filepath.Dir(configPath)
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		t.Fatal("nested directories were not created")
	}
}

// TestLoadInternal_ExplicitPath verifies loading a user-supplied file.
func TestLoadInternal_ExplicitPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "layerctl-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "custom.yaml")
	content := []byte("upstream:\n  repo: myorg/fork\n  ref: v0.110.0\npublish:\n  regions:\n    - eu-west-1\n")
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	saved := Global
	defer func() { Global = saved }()

	if err := loadInternal(configPath); err != nil {
		t.Fatalf("loadInternal() failed: %v", err)
	}

	if Global.Upstream.Repo != "myorg/fork" {
		t.Errorf("Upstream.Repo = %q, want %q", Global.Upstream.Repo, "myorg/fork")
	}
	if len(Global.Publish.Regions) != 1 || Global.Publish.Regions[0] != "eu-west-1" {
		t.Errorf("Publish.Regions = %v, want [eu-west-1]", Global.Publish.Regions)
	}
}

// TestLoadInternal_ExplicitPathMissing verifies explicit paths are not auto-created.
func TestLoadInternal_ExplicitPathMissing(t *testing.T) {
	saved := Global
	defer func() { Global = saved }()

	err := loadInternal(filepath.Join(os.TempDir(), "layerctl-does-not-exist-12345.yaml"))
	if err == nil {
		t.Fatal("loadInternal() expected error for missing explicit config, got nil")
	}
}

// TestLoadInternal_MalformedYAML verifies parse errors are surfaced.
func TestLoadInternal_MalformedYAML(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "layerctl-config-test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("upstream: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	saved := Global
	defer func() { Global = saved }()

	if err := loadInternal(configPath); err == nil {
		t.Fatal("loadInternal() expected error for malformed YAML, got nil")
	}
}
