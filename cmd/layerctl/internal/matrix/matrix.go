// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package matrix expands architecture and region selectors into the JSON job
// matrices GitHub Actions workflows consume.
package matrix

import "github.com/AleutianAI/layerctl/cmd/layerctl/config"

// BuildMatrix fans the build workflow out per architecture.
type BuildMatrix struct {
	Architecture []string `json:"architecture"`
}

// ReleaseMatrix fans the publish workflow out per architecture and region.
type ReleaseMatrix struct {
	Architecture []string `json:"architecture"`
	AWSRegion    []string `json:"aws_region"`
}

// Architectures expands the selector: all means both supported
// architectures, anything else passes through as a single-element list.
func Architectures(arch string) []string {
	if arch == "all" {
		return []string{"amd64", "arm64"}
	}
	return []string{arch}
}

// Regions expands the selector: all means the full publish region list.
func Regions(region string) []string {
	if region == "all" {
		return config.DefaultRegions()
	}
	return []string{region}
}

// BuildJobs returns the build matrix for an architecture selector.
func BuildJobs(arch string) BuildMatrix {
	return BuildMatrix{Architecture: Architectures(arch)}
}

// ReleaseJobs returns the release matrix for architecture and region
// selectors.
func ReleaseJobs(arch, region string) ReleaseMatrix {
	return ReleaseMatrix{
		Architecture: Architectures(arch),
		AWSRegion:    Regions(region),
	}
}
