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
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/matrix"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// runMatrix emits the build and release job matrices for the CI workflows as
// GitHub Actions outputs (and echoes them for the job log).
func runMatrix(cmd *cobra.Command, args []string) {
	if err := validation.ValidateArchitecture(matrixArch); err != nil {
		exitErr(err)
	}
	if err := validation.ValidateRegion(matrixRegion); err != nil {
		exitErr(err)
	}

	build := matrix.BuildJobs(matrixArch)
	rel := matrix.ReleaseJobs(matrixArch, matrixRegion)

	buildJSON, err := json.Marshal(build)
	if err != nil {
		exitErr(err)
	}
	releaseJSON, err := json.Marshal(rel)
	if err != nil {
		exitErr(err)
	}
	ux.Info("Build matrix: " + string(buildJSON))
	ux.Info("Release matrix: " + string(releaseJSON))

	if err := ghactions.SetJSONOutput("build_jobs", build); err != nil {
		log.Warn("github output write failed", "key", "build_jobs", "error", err)
	}
	if err := ghactions.SetJSONOutput("release_jobs", rel); err != nil {
		log.Warn("github output write failed", "key", "release_jobs", "error", err)
	}
	ux.Success("Matrix preparation complete")
}
