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
	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
)

// --- Global Command Variables ---
var (
	cfgFile      string
	quietFlag    bool
	verboseFlag  bool
	logLevelFlag string
	machineFlag  bool

	// build
	buildUpstreamRepo string
	buildUpstreamRef  string
	buildComponents   string
	buildDistribution string
	buildTagsFlag     string
	buildArch         string
	buildOutput       string
	buildKeepTemp     bool

	// publish
	publishArtifact string
	publishRegions  []string
	publishBaseName string
	publishArch     string
	publishDist     string
	publishVersion  string
	publishRuntimes string
	publishGroup    string
	publishPublic   bool
	publishTags     string

	// layers check
	checkArtifact  string
	checkMD5       string
	checkLayerName string
	checkRegion    string

	// layers list
	listRegions []string
	listPattern string

	// layers delete
	deleteRegions []string
	deletePattern string
	deleteForce   bool
	deleteDryRun  bool

	// release (info, notes, create share the identity flags)
	relDistribution string
	relVersion      string
	relGroup        string
	notesOutput     string
	createAssets    []string
	createNotesFile string
	createRepo      string

	// report
	reportOutput string
	reportGlob   string
	reportDists  []string

	// matrix
	matrixArch   string
	matrixRegion string

	// components
	componentsDirFlag string
	componentsOutput  string

	// pipeline
	pipelineDistribution string
	pipelineArch         string
	pipelineComponents   string
	pipelineRegion       string
	pipelineLayerName    string
	pipelineRuntimes     string
	pipelineSkipPublish  bool
	pipelinePublic       bool
	pipelineWatch        bool
	pipelineKeepTemp     bool

	rootCmd = &cobra.Command{
		Use:   "layerctl",
		Short: "Build, publish, and track custom OpenTelemetry Lambda collector layers",
		Long: `layerctl builds AWS Lambda layers from the open-telemetry/opentelemetry-lambda
collector with custom components overlaid, publishes them across regions,
records them in DynamoDB, and drives the release workflow around them.`,
	}

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Build a collector layer from upstream with custom components overlaid",
		Run:   runBuild, // Defined in cmd_build.go
	}

	publishCmd = &cobra.Command{
		Use:   "publish",
		Short: "Publish a layer artifact to AWS Lambda and record it in DynamoDB",
		Run:   runPublish, // Defined in cmd_publish.go
	}

	// --- Layer Administration ---
	layersCmd = &cobra.Command{
		Use:   "layers",
		Short: "Inspect and manage published Lambda layers",
	}
	layersCheckCmd = &cobra.Command{
		Use:   "check",
		Short: "Check whether a layer version with the artifact's MD5 already exists",
		Run:   runLayersCheck, // Defined in cmd_layers.go
	}
	layersListCmd = &cobra.Command{
		Use:   "list",
		Short: "List published layers across regions",
		Run:   runLayersList, // Defined in cmd_layers.go
	}
	layersDeleteCmd = &cobra.Command{
		Use:   "delete",
		Short: "DANGER: Delete every version of the matching layers across regions",
		Run:   runLayersDelete, // Defined in cmd_layers.go
	}

	// --- Releases ---
	releaseCmd = &cobra.Command{
		Use:   "release",
		Short: "Derive release metadata, render notes, and create GitHub releases",
	}
	releaseInfoCmd = &cobra.Command{
		Use:   "info",
		Short: "Emit the release tag, title, and build tags for a distribution",
		Run:   runReleaseInfo, // Defined in cmd_release.go
	}
	releaseNotesCmd = &cobra.Command{
		Use:   "notes",
		Short: "Render release notes Markdown from the layer metadata store",
		Run:   runReleaseNotes, // Defined in cmd_release.go
	}
	releaseCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create a GitHub release with rendered notes via the gh CLI",
		Run:   runReleaseCreate, // Defined in cmd_release.go
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Generate the LAYERS.md report from the metadata store",
		Run:   runReport, // Defined in cmd_report.go
	}

	matrixCmd = &cobra.Command{
		Use:   "matrix",
		Short: "Emit CI job matrices for build and release workflows",
		Run:   runMatrix, // Defined in cmd_matrix.go
	}

	componentsCmd = &cobra.Command{
		Use:   "components",
		Short: "Compare custom components against the upstream default build",
		Run:   runComponents, // Defined in cmd_components.go
	}

	pipelineCmd = &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full clone, build, and publish flow locally",
		Run:   runPipeline, // Defined in cmd_pipeline.go
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Path to the layerctl config file (default ~/.layerctl/layerctl.yaml, created on first run)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress log output on stderr")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"Log at debug level (shorthand for --log-level debug)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Minimum log level: debug, info, warn, or error")
	rootCmd.PersistentFlags().BoolVar(&machineFlag, "machine", false,
		"Plain machine-readable output (no colors, icons, or spinners)")

	// build
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVar(&buildUpstreamRepo, "upstream-repo", config.DefaultUpstreamRepo,
		"GitHub repository to build from (owner/name)")
	buildCmd.Flags().StringVar(&buildUpstreamRef, "upstream-ref", config.DefaultUpstreamRef,
		"Branch or tag of the upstream repository")
	buildCmd.Flags().StringVar(&buildComponents, "components", "./components",
		"Directory overlaid onto the upstream checkout")
	buildCmd.Flags().StringVarP(&buildDistribution, "distribution", "d", "default",
		"Distribution preset from distributions.yaml")
	buildCmd.Flags().StringVar(&buildTagsFlag, "build-tags", "",
		"Explicit build tags, space or comma separated (overrides --distribution)")
	buildCmd.Flags().StringVar(&buildArch, "arch", "amd64",
		"Target architecture: amd64 or arm64")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "./build",
		"Directory the artifact is written to")
	buildCmd.Flags().BoolVar(&buildKeepTemp, "keep-temp", false,
		"Keep the temporary build workspace for inspection")

	// publish
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&publishArtifact, "artifact", "",
		"Path to the layer zip to publish")
	publishCmd.Flags().StringSliceVar(&publishRegions, "region", nil,
		"Target region, repeatable or comma separated (default: the configured release regions)")
	publishCmd.Flags().StringVar(&publishBaseName, "layer-name", config.DefaultLayerBaseName,
		"Base layer name the architecture/distribution/version suffixes are appended to")
	publishCmd.Flags().StringVar(&publishArch, "arch", "amd64",
		"Architecture the artifact was built for: amd64 or arm64")
	publishCmd.Flags().StringVarP(&publishDist, "distribution", "d", "default",
		"Distribution the artifact was built as")
	publishCmd.Flags().StringVar(&publishVersion, "collector-version", "",
		"Collector version the artifact was built from (e.g. v0.119.0)")
	publishCmd.Flags().StringVar(&publishRuntimes, "runtimes", "",
		"Space-separated compatible runtimes recorded on the layer version")
	publishCmd.Flags().StringVar(&publishGroup, "release-group", config.DefaultReleaseGroup,
		"Release group suffix (prod, beta, local)")
	publishCmd.Flags().BoolVar(&publishPublic, "public", true,
		"Grant public GetLayerVersion permission after publishing")
	publishCmd.Flags().StringVar(&publishTags, "build-tags", "",
		"Build tags recorded in the layer description (defaults to BUILD_TAGS_STRING)")

	// layers
	rootCmd.AddCommand(layersCmd)
	layersCmd.AddCommand(layersCheckCmd)
	layersCheckCmd.Flags().StringVar(&checkArtifact, "artifact", "",
		"Artifact zip whose MD5 is checked")
	layersCheckCmd.Flags().StringVar(&checkMD5, "md5", "",
		"Artifact MD5 to check (alternative to --artifact)")
	layersCheckCmd.Flags().StringVar(&checkLayerName, "layer-name", "",
		"Full layer name to check")
	layersCheckCmd.Flags().StringVar(&checkRegion, "region", "",
		"Region to check in")

	layersCmd.AddCommand(layersListCmd)
	layersListCmd.Flags().StringSliceVar(&listRegions, "regions", nil,
		"Regions to scan (default: the configured release regions)")
	layersListCmd.Flags().StringVar(&listPattern, "pattern", "*",
		"Glob applied to layer names")

	layersCmd.AddCommand(layersDeleteCmd)
	layersDeleteCmd.Flags().StringSliceVar(&deleteRegions, "regions", nil,
		"Regions to delete from (default: the configured release regions)")
	layersDeleteCmd.Flags().StringVar(&deletePattern, "pattern", "",
		"Glob selecting the layers to delete (required)")
	layersDeleteCmd.Flags().BoolVar(&deleteForce, "force", false,
		"Skip the interactive confirmation")
	layersDeleteCmd.Flags().BoolVar(&deleteDryRun, "dry-run", false,
		"Show what would be deleted without deleting")

	// release
	rootCmd.AddCommand(releaseCmd)
	releaseCmd.AddCommand(releaseInfoCmd)
	releaseCmd.AddCommand(releaseNotesCmd)
	releaseCmd.AddCommand(releaseCreateCmd)
	for _, cmd := range []*cobra.Command{releaseInfoCmd, releaseNotesCmd, releaseCreateCmd} {
		cmd.Flags().StringVarP(&relDistribution, "distribution", "d", "default",
			"Distribution being released")
		cmd.Flags().StringVar(&relVersion, "collector-version", "",
			"Collector version being released (e.g. v0.119.0)")
		cmd.Flags().StringVar(&relGroup, "release-group", config.DefaultReleaseGroup,
			"Release group (prod, beta, local)")
	}
	releaseNotesCmd.Flags().StringVarP(&notesOutput, "output", "o", "",
		"Write the notes to a file instead of stdout")
	releaseCreateCmd.Flags().StringSliceVar(&createAssets, "artifacts", nil,
		"Artifact files attached to the release")
	releaseCreateCmd.Flags().StringVar(&createNotesFile, "notes-file", "",
		"Use a pre-rendered notes file instead of rendering from the metadata store")
	releaseCreateCmd.Flags().StringVar(&createRepo, "repo", "",
		"Create the release in another repository (owner/name)")

	// report
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "LAYERS.md",
		"Report destination file, or - for stdout")
	reportCmd.Flags().StringVar(&reportGlob, "pattern", "",
		"Only include layers whose ARN matches this glob")
	reportCmd.Flags().StringSliceVar(&reportDists, "distributions", nil,
		"Distributions to report on (default: the known set)")

	// matrix
	rootCmd.AddCommand(matrixCmd)
	matrixCmd.Flags().StringVar(&matrixArch, "arch", "all",
		"Architecture selector: amd64, arm64, or all")
	matrixCmd.Flags().StringVar(&matrixRegion, "region", "all",
		"Region selector: one region or all")

	// components
	rootCmd.AddCommand(componentsCmd)
	componentsCmd.Flags().StringVar(&componentsDirFlag, "components", "./components",
		"Components overlay directory to scan")
	componentsCmd.Flags().StringVarP(&componentsOutput, "output", "o", "",
		"Write the comparison table to a file instead of stdout")

	// pipeline
	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.Flags().StringVarP(&pipelineDistribution, "distribution", "d", "default",
		"Distribution preset to build")
	pipelineCmd.Flags().StringVar(&pipelineArch, "arch", "amd64",
		"Target architecture: amd64 or arm64")
	pipelineCmd.Flags().StringVar(&pipelineComponents, "components", "./components",
		"Directory overlaid onto the upstream checkout")
	pipelineCmd.Flags().StringVar(&pipelineRegion, "region", "",
		"Region to publish to (default: the SDK's configured region)")
	pipelineCmd.Flags().StringVarP(&pipelineLayerName, "layer-name", "l", "otel-ext-layer",
		"Base name for the published layer")
	pipelineCmd.Flags().StringVar(&pipelineRuntimes, "runtimes", config.DefaultRuntimes,
		"Space-separated compatible runtimes recorded on the layer version")
	pipelineCmd.Flags().BoolVar(&pipelineSkipPublish, "skip-publish", false,
		"Build only, do not publish")
	pipelineCmd.Flags().BoolVar(&pipelinePublic, "public", false,
		"Grant public GetLayerVersion permission after publishing")
	pipelineCmd.Flags().BoolVar(&pipelineWatch, "watch", false,
		"Watch the components directory and rebuild on change")
	pipelineCmd.Flags().BoolVar(&pipelineKeepTemp, "keep-temp", false,
		"Keep the temporary build workspace for inspection")
}
