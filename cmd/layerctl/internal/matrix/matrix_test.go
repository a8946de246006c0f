// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package matrix

import (
	"encoding/json"
	"testing"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchitectures(t *testing.T) {
	assert.Equal(t, []string{"amd64", "arm64"}, Architectures("all"))
	assert.Equal(t, []string{"amd64"}, Architectures("amd64"))
	assert.Equal(t, []string{"arm64"}, Architectures("arm64"))
	// Unknown values pass through rather than failing the workflow.
	assert.Equal(t, []string{"riscv64"}, Architectures("riscv64"))
}

func TestRegions(t *testing.T) {
	assert.Equal(t, config.DefaultRegions(), Regions("all"))
	assert.Equal(t, []string{"eu-north-1"}, Regions("eu-north-1"))
}

func TestBuildJobsJSON(t *testing.T) {
	data, err := json.Marshal(BuildJobs("all"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"architecture":["amd64","arm64"]}`, string(data))
}

func TestReleaseJobsJSON(t *testing.T) {
	data, err := json.Marshal(ReleaseJobs("arm64", "us-east-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"architecture":["arm64"],"aws_region":["us-east-1"]}`, string(data))
}

func TestReleaseJobsAllRegions(t *testing.T) {
	m := ReleaseJobs("all", "all")
	assert.Len(t, m.AWSRegion, 13)
	assert.Contains(t, m.AWSRegion, "ca-west-1")
	assert.Contains(t, m.AWSRegion, "us-west-2")
}
