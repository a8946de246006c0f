// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/awsx"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/metadata"
)

// expandRegions resolves the target region list for multi-region commands.
// An empty list falls back to the configured release regions; an "all" entry
// expands to the full default set.
func expandRegions(regions []string) []string {
	if len(regions) == 0 {
		return config.Global.Publish.GetRegions()
	}
	for _, r := range regions {
		if r == "all" {
			return config.DefaultRegions()
		}
	}
	return regions
}

// metadataStore opens the layer metadata store in the configured metadata
// region (the table lives in one region regardless of publish targets).
func metadataStore(ctx context.Context) (*metadata.Store, error) {
	region := config.Global.Metadata.GetRegion()
	cfg, err := awsx.Load(ctx, region)
	if err != nil {
		return nil, err
	}
	return metadata.New(cfg, region,
		config.Global.Metadata.GetTable(),
		config.Global.Metadata.GetIndex()), nil
}

// orNone substitutes the [none] placeholder for empty display values.
func orNone(s string) string {
	if s == "" {
		return "[none]"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
