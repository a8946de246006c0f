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
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// Environment variables honored when the matching flag is not set on the
// command line. CI workflows export these instead of threading flags through
// every step. UPSTREAM_VERSION and BUILD_TAGS_STRING keep their historical
// unprefixed names because upstream Makefiles already use them.
const (
	envArtifact         = "LAYERCTL_ARTIFACT"
	envLayerName        = "LAYERCTL_LAYER_NAME"
	envArchitecture     = "LAYERCTL_ARCHITECTURE"
	envDistribution     = "LAYERCTL_DISTRIBUTION"
	envCollectorVersion = "LAYERCTL_COLLECTOR_VERSION"
	envRegion           = "LAYERCTL_REGION"
	envRuntimes         = "LAYERCTL_RUNTIMES"
	envReleaseGroup     = "LAYERCTL_RELEASE_GROUP"
	envMakePublic       = "LAYERCTL_MAKE_PUBLIC"
	envBuildTags        = "BUILD_TAGS_STRING"
)

// envOverride fills *dst from the environment when the flag was not set
// explicitly. Flags beat environment, environment beats the flag default.
func envOverride(cmd *cobra.Command, flag, envName string, dst *string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		*dst = v
	}
}

func envOverrideBool(cmd *cobra.Command, flag, envName string, dst *bool) {
	if cmd.Flags().Changed(flag) {
		return
	}
	v, ok := os.LookupEnv(envName)
	if !ok || v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn("ignoring unparseable boolean environment variable", "name", envName, "value", v)
		return
	}
	*dst = parsed
}

func envOverrideSlice(cmd *cobra.Command, flag, envName string, dst *[]string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	v, ok := os.LookupEnv(envName)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
