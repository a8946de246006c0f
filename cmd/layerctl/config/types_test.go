// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package config contains unit tests for configuration types.

# Testing Strategy

These tests verify:
  - Default values are correctly applied
  - Getter methods return expected fallbacks
  - ConfigMeta is properly initialized
*/
package config

import (
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Getter Fallback Tests
// -----------------------------------------------------------------------------

// TestUpstreamConfig_GetRepo verifies default fallback.
func TestUpstreamConfig_GetRepo(t *testing.T) {
	tests := []struct {
		name     string
		config   UpstreamConfig
		expected string
	}{
		{
			name:     "returns configured value",
			config:   UpstreamConfig{Repo: "myorg/my-lambda-fork"},
			expected: "myorg/my-lambda-fork",
		},
		{
			name:     "returns default when empty",
			config:   UpstreamConfig{},
			expected: DefaultUpstreamRepo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.GetRepo(); got != tt.expected {
				t.Errorf("GetRepo() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestUpstreamConfig_GetRef verifies default fallback.
func TestUpstreamConfig_GetRef(t *testing.T) {
	tests := []struct {
		name     string
		config   UpstreamConfig
		expected string
	}{
		{
			name:     "returns configured value",
			config:   UpstreamConfig{Ref: "v0.119.0"},
			expected: "v0.119.0",
		},
		{
			name:     "returns default when empty",
			config:   UpstreamConfig{},
			expected: "main",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.config.GetRef(); got != tt.expected {
				t.Errorf("GetRef() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestBuildConfig_Getters verifies path fallbacks.
func TestBuildConfig_Getters(t *testing.T) {
	empty := BuildConfig{}

	if got := empty.GetDistributionsFile(); got != DefaultDistributionsFile {
		t.Errorf("GetDistributionsFile() = %q, want %q", got, DefaultDistributionsFile)
	}
	if got := empty.GetDependenciesFile(); got != DefaultDependenciesFile {
		t.Errorf("GetDependenciesFile() = %q, want %q", got, DefaultDependenciesFile)
	}
	if got := empty.GetComponentsDir(); got != DefaultComponentsDir {
		t.Errorf("GetComponentsDir() = %q, want %q", got, DefaultComponentsDir)
	}
	if got := empty.GetOutputDir(); got != DefaultOutputDir {
		t.Errorf("GetOutputDir() = %q, want %q", got, DefaultOutputDir)
	}

	set := BuildConfig{
		DistributionsFile: "alt/dist.yaml",
		DependenciesFile:  "alt/deps.yaml",
		ComponentsDir:     "alt/components",
		OutputDir:         "alt/out",
	}
	if got := set.GetOutputDir(); got != "alt/out" {
		t.Errorf("GetOutputDir() = %q, want %q", got, "alt/out")
	}
	if got := set.GetComponentsDir(); got != "alt/components" {
		t.Errorf("GetComponentsDir() = %q, want %q", got, "alt/components")
	}
}

// TestPublishConfig_GetRegions verifies region fallback.
func TestPublishConfig_GetRegions(t *testing.T) {
	empty := PublishConfig{}
	regions := empty.GetRegions()

	if len(regions) != 13 {
		t.Errorf("GetRegions() returned %d regions, want 13", len(regions))
	}

	set := PublishConfig{Regions: []string{"us-east-1"}}
	if got := set.GetRegions(); len(got) != 1 || got[0] != "us-east-1" {
		t.Errorf("GetRegions() = %v, want [us-east-1]", got)
	}
}

// TestDefaultRegions_ReturnsFreshSlice verifies callers cannot mutate shared state.
func TestDefaultRegions_ReturnsFreshSlice(t *testing.T) {
	a := DefaultRegions()
	a[0] = "mutated"

	b := DefaultRegions()
	if b[0] == "mutated" {
		t.Error("DefaultRegions() returned a shared slice")
	}
}

// TestMetadataConfig_Getters verifies store fallbacks.
func TestMetadataConfig_Getters(t *testing.T) {
	empty := MetadataConfig{}

	if got := empty.GetTable(); got != "custom-collector-extension-layers" {
		t.Errorf("GetTable() = %q, want %q", got, "custom-collector-extension-layers")
	}
	if got := empty.GetRegion(); got != "us-east-1" {
		t.Errorf("GetRegion() = %q, want %q", got, "us-east-1")
	}
	if got := empty.GetIndex(); got != "sk-pk-index" {
		t.Errorf("GetIndex() = %q, want %q", got, "sk-pk-index")
	}
}

// TestReleaseConfig_GetGroup verifies group fallback.
func TestReleaseConfig_GetGroup(t *testing.T) {
	empty := ReleaseConfig{}
	if got := empty.GetGroup(); got != "prod" {
		t.Errorf("GetGroup() = %q, want %q", got, "prod")
	}

	set := ReleaseConfig{Group: "beta"}
	if got := set.GetGroup(); got != "beta" {
		t.Errorf("GetGroup() = %q, want %q", got, "beta")
	}
}

// -----------------------------------------------------------------------------
// ConfigMeta Tests
// -----------------------------------------------------------------------------

// TestNewConfigMeta verifies metadata initialization.
func TestNewConfigMeta(t *testing.T) {
	before := time.Now().UnixMilli()
	meta := newConfigMeta()
	after := time.Now().UnixMilli()

	// Check version
	if meta.Version != CurrentConfigVersion {
		t.Errorf("Version = %q, want %q", meta.Version, CurrentConfigVersion)
	}

	// Check ModifiedBy
	if meta.ModifiedBy != "layerctl" {
		t.Errorf("ModifiedBy = %q, want %q", meta.ModifiedBy, "layerctl")
	}

	// Verify timestamps are within bounds
	if meta.CreatedAt < before || meta.CreatedAt > after {
		t.Errorf("CreatedAt %d not between %d and %d", meta.CreatedAt, before, after)
	}

	if meta.ModifiedAt < before || meta.ModifiedAt > after {
		t.Errorf("ModifiedAt %d not between %d and %d", meta.ModifiedAt, before, after)
	}

	// CreatedAt and ModifiedAt should be equal for new config
	if meta.CreatedAt != meta.ModifiedAt {
		t.Errorf("CreatedAt (%d) != ModifiedAt (%d) for new config",
			meta.CreatedAt, meta.ModifiedAt)
	}
}

// TestConfigMeta_TimeConversion verifies timestamp helper methods.
func TestConfigMeta_TimeConversion(t *testing.T) {
	now := time.Now()
	meta := ConfigMeta{
		CreatedAt:  now.UnixMilli(),
		ModifiedAt: now.UnixMilli(),
	}

	createdTime := meta.CreatedAtTime()
	modifiedTime := meta.ModifiedAtTime()

	// Allow 1ms tolerance due to conversion precision
	if createdTime.Sub(now).Abs() > time.Millisecond {
		t.Errorf("CreatedAtTime() differs by more than 1ms from original")
	}

	if modifiedTime.Sub(now).Abs() > time.Millisecond {
		t.Errorf("ModifiedAtTime() differs by more than 1ms from original")
	}
}

// -----------------------------------------------------------------------------
// DefaultConfig Tests
// -----------------------------------------------------------------------------

// TestDefaultConfig_HasMeta verifies metadata is included.
func TestDefaultConfig_HasMeta(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Meta.Version == "" {
		t.Error("Meta.Version should not be empty")
	}

	if cfg.Meta.CreatedAt == 0 {
		t.Error("Meta.CreatedAt should not be zero")
	}

	if cfg.Meta.ModifiedAt == 0 {
		t.Error("Meta.ModifiedAt should not be zero")
	}

	if cfg.Meta.ModifiedBy == "" {
		t.Error("Meta.ModifiedBy should not be empty")
	}
}

// TestDefaultConfig_UpstreamDefaults verifies upstream configuration.
func TestDefaultConfig_UpstreamDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Upstream.Repo != "open-telemetry/opentelemetry-lambda" {
		t.Errorf("Upstream.Repo = %q, want %q",
			cfg.Upstream.Repo, "open-telemetry/opentelemetry-lambda")
	}

	if cfg.Upstream.Ref != "main" {
		t.Errorf("Upstream.Ref = %q, want %q", cfg.Upstream.Ref, "main")
	}
}

// TestDefaultConfig_PublishDefaults verifies publish configuration.
func TestDefaultConfig_PublishDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Publish.LayerBaseName != DefaultLayerBaseName {
		t.Errorf("Publish.LayerBaseName = %q, want %q",
			cfg.Publish.LayerBaseName, DefaultLayerBaseName)
	}

	if len(cfg.Publish.Regions) != 13 {
		t.Errorf("Publish.Regions has %d entries, want 13", len(cfg.Publish.Regions))
	}

	if !cfg.Publish.MakePublic {
		t.Error("Publish.MakePublic should be true by default")
	}
}

// TestDefaultConfig_MetadataDefaults verifies store configuration.
func TestDefaultConfig_MetadataDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Metadata.Table != DefaultMetadataTable {
		t.Errorf("Metadata.Table = %q, want %q", cfg.Metadata.Table, DefaultMetadataTable)
	}

	if cfg.Metadata.Region != DefaultMetadataRegion {
		t.Errorf("Metadata.Region = %q, want %q", cfg.Metadata.Region, DefaultMetadataRegion)
	}

	if cfg.Metadata.Index != DefaultMetadataIndex {
		t.Errorf("Metadata.Index = %q, want %q", cfg.Metadata.Index, DefaultMetadataIndex)
	}
}

// -----------------------------------------------------------------------------
// Constants Tests
// -----------------------------------------------------------------------------

// TestConstants verifies constant values are as expected.
func TestConstants(t *testing.T) {
	if DefaultLayerBaseName != "opentelemetry-collector" {
		t.Errorf("DefaultLayerBaseName = %q, want %q",
			DefaultLayerBaseName, "opentelemetry-collector")
	}

	if DefaultReleaseGroup != "prod" {
		t.Errorf("DefaultReleaseGroup = %q, want %q", DefaultReleaseGroup, "prod")
	}

	if DefaultRuntimes != "nodejs18.x nodejs20.x java17 python3.9 python3.10" {
		t.Errorf("DefaultRuntimes = %q, unexpected value", DefaultRuntimes)
	}

	if CurrentConfigVersion != "1.0.0" {
		t.Errorf("CurrentConfigVersion = %q, want %q",
			CurrentConfigVersion, "1.0.0")
	}
}
