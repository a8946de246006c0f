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

import "time"

// Defaults applied when the config file omits a value.
const (
	CurrentConfigVersion = "1.0.0"

	DefaultUpstreamRepo = "open-telemetry/opentelemetry-lambda"
	DefaultUpstreamRef  = "main"

	DefaultDistributionsFile = "config/distributions.yaml"
	DefaultDependenciesFile  = "config/component_dependencies.yaml"
	DefaultComponentsDir     = "components"
	DefaultOutputDir         = "build"

	DefaultLayerBaseName = "opentelemetry-collector"
	DefaultRuntimes      = "nodejs18.x nodejs20.x java17 python3.9 python3.10"
	DefaultReleaseGroup  = "prod"

	DefaultMetadataTable  = "custom-collector-extension-layers"
	DefaultMetadataRegion = "us-east-1"
	DefaultMetadataIndex  = "sk-pk-index"
)

// DefaultRegions returns the regions a release fans out to when no explicit
// region list is configured. Returns a fresh slice so callers can append.
func DefaultRegions() []string {
	return []string{
		"ca-central-1",
		"ca-west-1",
		"eu-central-1",
		"eu-central-2",
		"eu-north-1",
		"eu-south-1",
		"eu-south-2",
		"eu-west-1",
		"eu-west-2",
		"eu-west-3",
		"us-east-1",
		"us-east-2",
		"us-west-2",
	}
}

type LayerctlConfig struct {
	// Meta tracks config file provenance for future migrations
	Meta ConfigMeta `yaml:"meta"`

	// Upstream: the third-party repository the layers are built from
	Upstream UpstreamConfig `yaml:"upstream"`

	// Build: paths for the overlay and artifact output
	Build BuildConfig `yaml:"build"`

	// Publish: layer naming and target regions
	Publish PublishConfig `yaml:"publish"`

	// Metadata: the DynamoDB layer store
	Metadata MetadataConfig `yaml:"metadata"`

	// Release: GitHub release settings
	Release ReleaseConfig `yaml:"release"`
}

// ConfigMeta records when and by what the file was written.
type ConfigMeta struct {
	Version    string `yaml:"version"`
	CreatedAt  int64  `yaml:"created_at"`
	ModifiedAt int64  `yaml:"modified_at"`
	ModifiedBy string `yaml:"modified_by"`
}

func newConfigMeta() ConfigMeta {
	now := time.Now().UnixMilli()
	return ConfigMeta{
		Version:    CurrentConfigVersion,
		CreatedAt:  now,
		ModifiedAt: now,
		ModifiedBy: "layerctl",
	}
}

// CreatedAtTime converts the stored millisecond timestamp.
func (m ConfigMeta) CreatedAtTime() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// ModifiedAtTime converts the stored millisecond timestamp.
func (m ConfigMeta) ModifiedAtTime() time.Time {
	return time.UnixMilli(m.ModifiedAt)
}

type UpstreamConfig struct {
	Repo string `yaml:"repo"` // e.g. open-telemetry/opentelemetry-lambda
	Ref  string `yaml:"ref"`  // branch or tag
}

// GetRepo returns the configured repo or the default.
func (c UpstreamConfig) GetRepo() string {
	if c.Repo == "" {
		return DefaultUpstreamRepo
	}
	return c.Repo
}

// GetRef returns the configured ref or the default.
func (c UpstreamConfig) GetRef() string {
	if c.Ref == "" {
		return DefaultUpstreamRef
	}
	return c.Ref
}

type BuildConfig struct {
	DistributionsFile string `yaml:"distributions_file"` // build tag presets
	DependenciesFile  string `yaml:"dependencies_file"`  // tag -> go module map
	ComponentsDir     string `yaml:"components_dir"`     // overlay sources
	OutputDir         string `yaml:"output_dir"`         // where artifacts land
}

func (c BuildConfig) GetDistributionsFile() string {
	if c.DistributionsFile == "" {
		return DefaultDistributionsFile
	}
	return c.DistributionsFile
}

func (c BuildConfig) GetDependenciesFile() string {
	if c.DependenciesFile == "" {
		return DefaultDependenciesFile
	}
	return c.DependenciesFile
}

func (c BuildConfig) GetComponentsDir() string {
	if c.ComponentsDir == "" {
		return DefaultComponentsDir
	}
	return c.ComponentsDir
}

func (c BuildConfig) GetOutputDir() string {
	if c.OutputDir == "" {
		return DefaultOutputDir
	}
	return c.OutputDir
}

type PublishConfig struct {
	LayerBaseName string   `yaml:"layer_base_name"`
	Regions       []string `yaml:"regions"`
	Runtimes      string   `yaml:"compatible_runtimes"` // space-separated
	MakePublic    bool     `yaml:"make_public"`
}

func (c PublishConfig) GetLayerBaseName() string {
	if c.LayerBaseName == "" {
		return DefaultLayerBaseName
	}
	return c.LayerBaseName
}

// GetRegions returns the configured regions or the default release set.
func (c PublishConfig) GetRegions() []string {
	if len(c.Regions) == 0 {
		return DefaultRegions()
	}
	return c.Regions
}

func (c PublishConfig) GetRuntimes() string {
	if c.Runtimes == "" {
		return DefaultRuntimes
	}
	return c.Runtimes
}

type MetadataConfig struct {
	Table  string `yaml:"table"`
	Region string `yaml:"region"`
	Index  string `yaml:"index"`
}

func (c MetadataConfig) GetTable() string {
	if c.Table == "" {
		return DefaultMetadataTable
	}
	return c.Table
}

func (c MetadataConfig) GetRegion() string {
	if c.Region == "" {
		return DefaultMetadataRegion
	}
	return c.Region
}

func (c MetadataConfig) GetIndex() string {
	if c.Index == "" {
		return DefaultMetadataIndex
	}
	return c.Index
}

type ReleaseConfig struct {
	Group string `yaml:"group"`          // prod, beta, local
	Repo  string `yaml:"repo,omitempty"` // org/repo for gh -R, empty = current
}

func (c ReleaseConfig) GetGroup() string {
	if c.Group == "" {
		return DefaultReleaseGroup
	}
	return c.Group
}

func DefaultConfig() LayerctlConfig {
	return LayerctlConfig{
		Meta: newConfigMeta(),
		Upstream: UpstreamConfig{
			Repo: DefaultUpstreamRepo,
			Ref:  DefaultUpstreamRef,
		},
		Build: BuildConfig{
			DistributionsFile: DefaultDistributionsFile,
			DependenciesFile:  DefaultDependenciesFile,
			ComponentsDir:     DefaultComponentsDir,
			OutputDir:         DefaultOutputDir,
		},
		Publish: PublishConfig{
			LayerBaseName: DefaultLayerBaseName,
			Regions:       DefaultRegions(),
			Runtimes:      DefaultRuntimes,
			MakePublic:    true,
		},
		Metadata: MetadataConfig{
			Table:  DefaultMetadataTable,
			Region: DefaultMetadataRegion,
			Index:  DefaultMetadataIndex,
		},
		Release: ReleaseConfig{
			Group: DefaultReleaseGroup,
		},
	}
}
