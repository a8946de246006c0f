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
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/builder"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/distribution"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/overlay"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/release"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/upstream"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// runBuild clones the upstream repository, overlays the custom components,
// patches the collector module with component dependencies, and drives the
// upstream `make package` build. The artifact lands in --output as
// collector-{arch}-{distribution}.zip.
func runBuild(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	// Config-file values apply when the flag keeps its default.
	if !cmd.Flags().Changed("upstream-repo") {
		buildUpstreamRepo = config.Global.Upstream.GetRepo()
	}
	if !cmd.Flags().Changed("upstream-ref") {
		buildUpstreamRef = config.Global.Upstream.GetRef()
	}

	envOverride(cmd, "distribution", envDistribution, &buildDistribution)
	envOverride(cmd, "arch", envArchitecture, &buildArch)
	envOverride(cmd, "build-tags", envBuildTags, &buildTagsFlag)

	if err := validation.ValidateArchitecture(buildArch); err != nil {
		exitErr(err)
	}
	if buildArch == "all" {
		exitErr(fmt.Errorf(`build targets one architecture at a time; "all" is only valid for matrix`))
	}
	if err := validation.ValidateDistributionName(buildDistribution); err != nil {
		exitErr(err)
	}

	tags, err := resolveBuildTags(buildDistribution, buildTagsFlag)
	if err != nil {
		exitErr(err)
	}
	tagsString := strings.Join(tags, ",")

	ux.Header("Build configuration")
	ux.PropertyList([]ux.Property{
		{Key: "Upstream Repository", Value: buildUpstreamRepo},
		{Key: "Upstream Ref", Value: buildUpstreamRef},
		{Key: "Distribution", Value: buildDistribution},
		{Key: "Architecture", Value: buildArch},
		{Key: "Build Tags", Value: orNone(tagsString)},
		{Key: "Components", Value: buildComponents},
		{Key: "Output Directory", Value: buildOutput},
	})

	pm := NewDefaultProcessManager()

	ws, err := upstream.NewWorkspace(buildKeepTemp)
	if err != nil {
		exitErr(err)
	}
	defer closeWorkspace(ws)
	log.Debug("build workspace created", "dir", ws.Root)

	ux.SubHeader("Clone upstream repository")
	err = ux.WithSpinner(fmt.Sprintf("Cloning %s@%s", buildUpstreamRepo, buildUpstreamRef), func() error {
		return upstream.Clone(ctx, pm, buildUpstreamRepo, buildUpstreamRef, ws.UpstreamDir())
	})
	if err != nil {
		exitErr(err)
	}
	ux.Success("Repository cloned")

	ux.SubHeader("Overlay custom components")
	if _, statErr := os.Stat(buildComponents); statErr != nil {
		ux.Warning(fmt.Sprintf("Components directory %s not found, building without overlay", buildComponents))
	} else {
		copied, err := overlay.CopyTree(buildComponents, ws.UpstreamDir())
		if err != nil {
			exitErr(err)
		}
		ux.Success(fmt.Sprintf("Copied %d files from %s", copied, buildComponents))
	}

	ux.SubHeader("Determine collector version")
	version, err := upstream.DetectVersion(ctx, pm, ws.CollectorDir())
	if err != nil {
		exitErr(err)
	}
	ux.Info("Collector version " + version)

	ux.SubHeader("Add component dependencies")
	if err := applyDependencies(ctx, pm, ws.CollectorDir(), tags, version); err != nil {
		exitErr(err)
	}

	ux.SubHeader("Build collector")
	err = ux.WithSpinner("Running make package", func() error {
		return builder.Package(ctx, pm, ws.CollectorDir(), buildArch, tags)
	})
	if err != nil {
		exitErr(err)
	}

	artifact, err := builder.CollectArtifact(ws.CollectorDir(), buildOutput, buildArch, buildDistribution)
	if err != nil {
		exitErr(err)
	}
	md5sum, err := builder.MD5(artifact)
	if err != nil {
		exitErr(err)
	}

	ux.Header("Build successful")
	ux.PropertyList([]ux.Property{
		{Key: "Artifact", Value: artifact},
		{Key: "MD5", Value: md5sum},
		{Key: "Collector Version", Value: version},
		{Key: "Build Tags", Value: orNone(tagsString)},
	})
	log.Info("layer built",
		"artifact", artifact,
		"md5", md5sum,
		"collector_version", version,
		"distribution", buildDistribution,
		"arch", buildArch)
}

// resolveBuildTags returns the build tags for a distribution. Explicit tags
// (from --build-tags or BUILD_TAGS_STRING, comma or space separated) win over
// the distributions file.
func resolveBuildTags(dist, explicit string) ([]string, error) {
	if strings.TrimSpace(explicit) != "" {
		return release.SplitTags(explicit), nil
	}
	dists, err := distribution.Load(config.Global.Build.GetDistributionsFile())
	if err != nil {
		return nil, err
	}
	return dists.Resolve(dist)
}

// applyDependencies patches the upstream collector go.mod with the modules
// the active build tags need, per config/component_dependencies.yaml.
func applyDependencies(ctx context.Context, pm ProcessManager, collectorDir string, tags []string, version string) error {
	deps, err := overlay.LoadDependencyMap(config.Global.Build.GetDependenciesFile())
	if err != nil {
		return err
	}
	modules := deps.Match(tags)
	if len(modules) == 0 {
		ux.Info("No component dependencies required")
		return nil
	}

	applied, err := overlay.Apply(ctx, pm, collectorDir, modules, version)
	for _, m := range applied {
		if m.Fallback {
			ux.Warning(fmt.Sprintf("Added %s without version constraint", m.Module))
		} else {
			ux.Detail(fmt.Sprintf("Added %s@v%s", m.Module, strings.TrimPrefix(version, "v")))
		}
	}
	if err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Patched %d dependencies", len(applied)))
	return nil
}

// closeWorkspace removes the temp build tree, or reports where it was kept.
func closeWorkspace(ws *upstream.Workspace) {
	if ws.Keep {
		ux.Info("Keeping temporary directory " + ws.Root)
		return
	}
	if err := ws.Close(); err != nil {
		log.Warn("workspace cleanup failed", "dir", ws.Root, "error", err)
	}
}
