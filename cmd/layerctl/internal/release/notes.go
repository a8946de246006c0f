// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package release

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/metadata"
)

// MetadataQuerier is the slice of the metadata store the notes renderer
// needs. *metadata.Store satisfies it.
type MetadataQuerier interface {
	QueryByDistribution(ctx context.Context, distribution string) ([]metadata.Item, error)
}

// Notes renders the Markdown release notes for one distribution at one
// collector version. Rows come from the metadata store and are filtered to
// the exact version on the client side; versions compare equal regardless of
// a leading v on either side.
func Notes(ctx context.Context, store MetadataQuerier, dist, collectorVersion, buildTags string) (string, error) {
	items, err := store.QueryByDistribution(ctx, dist)
	if err != nil {
		return "", fmt.Errorf("loading metadata for release notes: %w", err)
	}

	want := strings.TrimPrefix(strings.TrimSpace(collectorVersion), "v")
	var matched []metadata.Item
	for _, item := range items {
		if strings.TrimPrefix(item.CollectorVersion, "v") == want {
			matched = append(matched, item)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Release Details for %s - Collector %s\n\n", dist, collectorVersion)

	b.WriteString("### Build Tags Used:\n\n")
	tags := SplitTags(buildTags)
	if len(tags) == 0 {
		b.WriteString("- Default (no specific tags)\n")
	} else {
		for _, tag := range tags {
			fmt.Fprintf(&b, "- `%s`\n", tag)
		}
	}
	b.WriteString("\n")

	b.WriteString("### Layer ARNs by Region and Architecture:\n\n")
	if len(matched) == 0 {
		b.WriteString("No matching layers found in the metadata store for this specific version and distribution.\n")
		return b.String(), nil
	}

	// Unknown regions and architectures sort last.
	sortKey := func(s string) string {
		if s == "" {
			return "zzzz"
		}
		return s
	}
	sort.Slice(matched, func(a, z int) bool {
		if ra, rz := sortKey(matched[a].Region), sortKey(matched[z].Region); ra != rz {
			return ra < rz
		}
		return sortKey(matched[a].Architecture) < sortKey(matched[z].Architecture)
	})

	b.WriteString("| Region | Architecture | Layer ARN |\n")
	b.WriteString("|--------|--------------|-----------|\n")
	for _, item := range matched {
		fmt.Fprintf(&b, "| %s | %s | `%s` |\n",
			orNA(item.Region), orNA(item.Architecture), orNA(item.LayerARN))
	}
	return b.String(), nil
}

// SplitTags splits a build tag string on spaces or commas, whichever the
// caller's environment delivered, dropping empties.
func SplitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
