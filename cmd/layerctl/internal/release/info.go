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
Package release derives release metadata, renders release notes from the
layer store, and creates GitHub releases through the gh CLI.
*/
package release

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/distribution"
)

// Info is the release identity for one distribution at one collector version.
type Info struct {
	// Distribution is the requested distribution name, kept even when the
	// build tags fell back to default.
	Distribution string

	// Version is the collector version without the leading v.
	Version string

	// ReleaseGroup qualifies the tag (prod, beta, local).
	ReleaseGroup string

	// BuildTags is the resolved tag list for the distribution.
	BuildTags []string

	// UsedFallback is true when the distribution was unknown and the tags
	// came from the default distribution instead.
	UsedFallback bool
}

// NewInfo resolves the build tags for a distribution and assembles the
// release identity. An unknown distribution falls back to the default
// distribution's tags; the caller should surface UsedFallback as a warning.
func NewInfo(dists *distribution.File, dist, version, group string) (Info, error) {
	info := Info{
		Distribution: dist,
		Version:      strings.TrimPrefix(strings.TrimSpace(version), "v"),
		ReleaseGroup: group,
	}

	tags, err := dists.Resolve(dist)
	if err != nil {
		if !errors.Is(err, distribution.ErrNotFound) || dist == "default" {
			return Info{}, err
		}
		tags, err = dists.Resolve("default")
		if err != nil {
			return Info{}, fmt.Errorf("distribution %q unknown and default fallback failed: %w", dist, err)
		}
		info.UsedFallback = true
	}
	info.BuildTags = tags
	return info, nil
}

// Tag returns the git tag, e.g. clickhouse-v0.119.0-prod.
func (i Info) Tag() string {
	return fmt.Sprintf("%s-v%s-%s", i.Distribution, i.Version, i.ReleaseGroup)
}

// Title returns the release title, e.g.
// "Release distribution:clickhouse v0.119.0 (prod)".
func (i Info) Title() string {
	return fmt.Sprintf("Release distribution:%s v%s (%s)", i.Distribution, i.Version, i.ReleaseGroup)
}

// TagsString returns the build tags space-joined, the form BUILD_TAGS_STRING
// travels in between workflow steps.
func (i Info) TagsString() string {
	return strings.Join(i.BuildTags, " ")
}

// CollectorVersion returns the version with its leading v restored.
func (i Info) CollectorVersion() string {
	return "v" + i.Version
}
