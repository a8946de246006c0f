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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/report"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// runReport renders the full layers report from the metadata store, one
// section per distribution grouped by architecture.
func runReport(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	for _, dist := range reportDists {
		if err := validation.ValidateDistributionName(dist); err != nil {
			exitErr(err)
		}
	}

	store, err := metadataStore(ctx)
	if err != nil {
		exitErr(err)
	}

	var md string
	err = ux.WithSpinner("Querying layer metadata", func() error {
		var genErr error
		md, genErr = report.Generate(ctx, store, report.Options{
			Pattern:       reportGlob,
			Distributions: reportDists,
			Table:         config.Global.Metadata.GetTable(),
		})
		return genErr
	})
	if err != nil {
		exitErr(err)
	}

	if reportOutput == "-" {
		fmt.Print(md)
		return
	}
	if err := os.WriteFile(reportOutput, []byte(md), 0644); err != nil {
		exitErr(fmt.Errorf("writing report: %w", err))
	}
	ux.Success("Report written to " + reportOutput)
	log.Info("layers report generated", "output", reportOutput, "pattern", orNone(reportGlob))
}
