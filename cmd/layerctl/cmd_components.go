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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/components"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/pkg/ux"
)

// runComponents scans the local components overlay and renders the comparison
// against the upstream default build. The overlay mirrors the upstream repo
// layout, so the collector sources live under {components}/collector.
func runComponents(cmd *cobra.Command, args []string) {
	scanDir := filepath.Join(componentsDirFlag, "collector")
	custom, err := components.Scan(scanDir)
	if err != nil {
		exitErr(fmt.Errorf("scanning components overlay: %w", err))
	}

	table := components.CompareTable(custom, components.DefaultSet())

	if err := ghactions.AppendSummary(table); err != nil {
		log.Warn("github summary write failed", "error", err)
	}

	if componentsOutput == "" || componentsOutput == "-" {
		fmt.Print(table)
		return
	}
	if err := os.WriteFile(componentsOutput, []byte(table), 0644); err != nil {
		exitErr(fmt.Errorf("writing component comparison: %w", err))
	}
	ux.Success("Component comparison written to " + componentsOutput)
}
