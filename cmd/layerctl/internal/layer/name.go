// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package layer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/layerctl/pkg/validation"
)

// maxDescriptionLen is the Lambda layer Description limit.
const maxDescriptionLen = 256

// ConstructName builds the layer name published to Lambda:
// {base}-{arch}[-{dist}]-{version}-{group}, with every component sanitized
// to the Lambda name character set. The distribution component is omitted
// when empty or "default". Names must not start with a digit, so a leading
// digit gains a "layer-" prefix.
func ConstructName(base, arch, dist, version, group string) string {
	parts := []string{base, arch}
	if dist != "" && dist != "default" {
		parts = append(parts, dist)
	}
	parts = append(parts, strings.TrimPrefix(version, "v"), group)

	name := validation.SanitizeLayerComponent(strings.Join(parts, "-"))
	if name != "" && name[0] >= '0' && name[0] <= '9' {
		name = "layer-" + name
	}
	return name
}

// CompatibleArchitecture maps Go architecture names to the Lambda
// CompatibleArchitectures vocabulary.
func CompatibleArchitecture(arch string) string {
	if arch == "amd64" {
		return "x86_64"
	}
	return arch
}

// BuildDescription renders the layer Description that carries the build tags
// and the artifact MD5 used for skip-detection. Truncated to the Lambda
// limit with a "..." tail.
func BuildDescription(buildTags, md5 string) string {
	tags := strings.TrimSpace(buildTags)
	if tags == "" {
		tags = "N/A"
	}
	description := fmt.Sprintf("Build Tags: %s | MD5: %s", tags, md5)
	if runes := []rune(description); len(runes) > maxDescriptionLen {
		description = string(runes[:maxDescriptionLen-3]) + "..."
	}
	return description
}

// VersionFromARN extracts the trailing version number of a layer version ARN
// (arn:aws:lambda:{region}:{account}:layer:{name}:{version}).
func VersionFromARN(arn string) (int64, error) {
	idx := strings.LastIndex(arn, ":")
	if idx < 0 || idx == len(arn)-1 {
		return 0, fmt.Errorf("layer ARN %q has no version suffix", arn)
	}
	version, err := strconv.ParseInt(arn[idx+1:], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("layer ARN %q has a non-numeric version: %w", arn, err)
	}
	return version, nil
}

// SplitRuntimes splits the space-separated compatible runtimes string the
// pipeline passes around. Empty input yields nil.
func SplitRuntimes(runtimes string) []string {
	return strings.Fields(runtimes)
}
