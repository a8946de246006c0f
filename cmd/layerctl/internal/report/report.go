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
Package report renders the LAYERS.md inventory of published layers from the
metadata store.

Layers group by distribution, then architecture, each group a Markdown table
sorted by region, so the generated file diffs cleanly between publishes.
*/
package report

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/metadata"
)

// KnownDistributions is the shipped distribution inventory, in report order.
var KnownDistributions = []string{
	"default", "minimal", "clickhouse", "clickhouse-otlphttp", "full", "custom",
}

var knownArchitectures = []string{"amd64", "arm64", "unknown"}

// Querier is the slice of the metadata store the report needs.
// *metadata.Store satisfies it.
type Querier interface {
	QueryByDistribution(ctx context.Context, distribution string) ([]metadata.Item, error)
}

// Options configure Generate.
type Options struct {
	// Pattern is an optional glob applied to the full layer ARN after the
	// query, e.g. "*clickhouse*amd64*".
	Pattern string

	// Distributions overrides the queried distribution list; nil means
	// KnownDistributions.
	Distributions []string

	// Table names the metadata source in the report header.
	Table string
}

type row struct {
	region    string
	arn       string
	version   string
	timestamp string
}

// Generate queries every known distribution and renders the Markdown report.
func Generate(ctx context.Context, store Querier, opts Options) (string, error) {
	distributions := opts.Distributions
	if distributions == nil {
		distributions = KnownDistributions
	}
	if opts.Pattern != "" {
		if _, err := path.Match(opts.Pattern, ""); err != nil {
			return "", fmt.Errorf("layer ARN pattern %q: %w", opts.Pattern, err)
		}
	}

	groups := map[string][]row{}
	for _, dist := range distributions {
		items, err := store.QueryByDistribution(ctx, dist)
		if err != nil {
			return "", fmt.Errorf("querying distribution %s for report: %w", dist, err)
		}
		for _, item := range items {
			if opts.Pattern != "" {
				if ok, _ := path.Match(opts.Pattern, item.LayerARN); !ok {
					continue
				}
			}
			arch := item.Architecture
			if arch != "amd64" && arch != "arm64" {
				arch = "unknown"
			}
			key := dist + ":" + arch
			groups[key] = append(groups[key], row{
				region:    orUnknown(item.Region),
				arn:       item.LayerARN,
				version:   orUnknown(item.LayerVersion),
				timestamp: item.PublishTimestamp,
			})
		}
	}

	var b strings.Builder
	b.WriteString("# OpenTelemetry Lambda Layers Report\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	if opts.Pattern != "" {
		fmt.Fprintf(&b, "Filtered by pattern (applied post-fetch): `%s`\n\n", opts.Pattern)
	} else if opts.Table != "" {
		fmt.Fprintf(&b, "Source: DynamoDB table '%s'\n\n", opts.Table)
	}

	b.WriteString("This report lists all OpenTelemetry Lambda layers available across AWS regions, based on metadata stored in DynamoDB.\n\n")
	b.WriteString("## Available Layers by Distribution\n\n")

	if len(groups) == 0 {
		b.WriteString("No layer metadata found in DynamoDB matching the specified criteria.\n\n")
	} else {
		for _, dist := range distributions {
			fmt.Fprintf(&b, "### %s Distribution\n\n", dist)

			wrote := false
			for _, arch := range knownArchitectures {
				rows := groups[dist+":"+arch]
				if len(rows) == 0 {
					continue
				}
				wrote = true

				fmt.Fprintf(&b, "#### %s Architecture\n\n", arch)
				b.WriteString("| Region | Layer ARN | Version | Published (DB Timestamp) |\n")
				b.WriteString("|--------|-----------|---------|-------------------------|\n")

				sort.Slice(rows, func(a, z int) bool {
					if rows[a].region != rows[z].region {
						return rows[a].region < rows[z].region
					}
					return rows[a].timestamp < rows[z].timestamp
				})
				for _, r := range rows {
					fmt.Fprintf(&b, "| %s | `%s` | %s | %s |\n",
						r.region, orNA(r.arn), r.version, formatTimestamp(r.timestamp))
				}
				b.WriteString("\n")
			}
			if !wrote {
				b.WriteString("No layers published for this distribution.\n\n")
			}
		}
	}

	b.WriteString("## Usage Instructions\n\n")
	b.WriteString("To use a layer in your Lambda function, add the ARN to your function's configuration:\n\n")
	b.WriteString("```bash\n")
	b.WriteString("aws lambda update-function-configuration --function-name YOUR_FUNCTION --layers ARN_FROM_TABLE\n")
	b.WriteString("```\n\n")
	b.WriteString("For more information, see the [documentation](https://github.com/open-telemetry/opentelemetry-lambda).\n")

	return b.String(), nil
}

// formatTimestamp reflows an RFC3339 publish timestamp; anything else passes
// through untouched so legacy rows stay readable.
func formatTimestamp(ts string) string {
	if ts == "" {
		return "Unknown"
	}
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return parsed.Format("2006-01-02T15:04:05MST")
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
