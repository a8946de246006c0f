// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation for values that reach
// subprocess arguments, AWS API calls, or ARN templates.
//
// Region names, architectures, and distribution names arrive from flags,
// environment variables, and CI job matrices. Validating them up front
// prevents command injection through `git`/`make`/`gh` invocations and
// malformed Lambda layer names.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// regionPattern matches AWS region identifiers like us-east-1, eu-central-2,
// ap-southeast-3. Letters-dash groups followed by a single digit.
var regionPattern = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)

// distributionPattern matches distribution names from distributions.yaml.
// Lowercase alphanumerics plus dot, underscore, and hyphen separators.
var distributionPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// layerComponentPattern matches characters AWS accepts in layer names.
var layerComponentPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// ValidateArchitecture validates a target architecture.
//
// Accepted values are "amd64", "arm64", and "all" (expanded to both by the
// matrix command). Returns an error naming the accepted set otherwise.
func ValidateArchitecture(arch string) error {
	switch arch {
	case "amd64", "arm64", "all":
		return nil
	default:
		return fmt.Errorf("invalid architecture %q (must be amd64, arm64, or all)", arch)
	}
}

// ValidateRegion validates an AWS region identifier, with "all" permitted
// for commands that expand to the full region list.
func ValidateRegion(region string) error {
	if region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if region == "all" {
		return nil
	}
	if !regionPattern.MatchString(region) {
		return fmt.Errorf("invalid AWS region %q", region)
	}
	return nil
}

// ValidateRegions validates a list of regions, reporting every invalid one.
func ValidateRegions(regions []string) error {
	var invalid []string
	for _, r := range regions {
		if err := ValidateRegion(r); err != nil {
			invalid = append(invalid, r)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid regions: %v", invalid)
	}
	return nil
}

// ValidateDistributionName validates a distribution name before it is used
// in file names and layer names.
//
// Valid names:
//   - start with a lowercase letter or digit
//   - continue with lowercase letters, digits, dots, underscores, hyphens
//
// Example:
//
//	if err := validation.ValidateDistributionName(dist); err != nil {
//	    return fmt.Errorf("invalid distribution: %w", err)
//	}
func ValidateDistributionName(name string) error {
	if name == "" {
		return fmt.Errorf("distribution name cannot be empty")
	}
	if !distributionPattern.MatchString(name) {
		return fmt.Errorf("invalid distribution name %q (lowercase alphanumerics, dot, underscore, hyphen)", name)
	}
	return nil
}

// SanitizeLayerComponent rewrites a layer-name component into the character
// set AWS Lambda accepts, replacing every other rune with an underscore.
//
// This mirrors the cleanup applied to version strings and final layer names:
//
//	SanitizeLayerComponent("0.119.0")  // "0_119_0"
//	SanitizeLayerComponent("beta/rc1") // "beta_rc1"
func SanitizeLayerComponent(s string) string {
	return layerComponentPattern.ReplaceAllString(s, "_")
}

// ValidateRuntimes checks a space-separated Lambda runtimes string. Runtime
// identifiers are lowercase alphanumerics with dots (nodejs18.x, python3.10).
func ValidateRuntimes(runtimes string) error {
	for _, rt := range strings.Fields(runtimes) {
		for _, r := range rt {
			if !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '.' {
				return fmt.Errorf("invalid runtime identifier %q", rt)
			}
		}
	}
	return nil
}
