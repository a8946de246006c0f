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
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/distribution"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/release"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// runReleaseInfo derives the release identity for a distribution and emits it
// both for humans and as GitHub Actions outputs, so the release workflow can
// tag and title without re-deriving anything.
func runReleaseInfo(cmd *cobra.Command, args []string) {
	info := releaseIdentity(cmd)

	ux.Header("Release info")
	ux.PropertyList([]ux.Property{
		{Key: "Tag", Value: info.Tag()},
		{Key: "Title", Value: info.Title()},
		{Key: "Distribution", Value: info.Distribution},
		{Key: "Collector Version", Value: info.CollectorVersion()},
		{Key: "Release Group", Value: info.ReleaseGroup},
		{Key: "Build Tags", Value: orNone(info.TagsString())},
	})

	outputs := map[string]string{
		"release_tag":       info.Tag(),
		"release_title":     info.Title(),
		"build_tags":        info.TagsString(),
		"distribution":      info.Distribution,
		"collector_version": info.CollectorVersion(),
		"release_group":     info.ReleaseGroup,
	}
	for key, value := range outputs {
		if err := ghactions.SetOutput(key, value); err != nil {
			log.Warn("github output write failed", "key", key, "error", err)
		}
	}
}

// runReleaseNotes renders the release notes Markdown from the metadata store
// to --output or stdout.
func runReleaseNotes(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	info := releaseIdentity(cmd)

	store, err := metadataStore(ctx)
	if err != nil {
		exitErr(err)
	}
	notes, err := release.Notes(ctx, store, info.Distribution, info.CollectorVersion(), info.TagsString())
	if err != nil {
		exitErr(err)
	}

	if notesOutput == "" || notesOutput == "-" {
		fmt.Print(notes)
		return
	}
	if err := os.WriteFile(notesOutput, []byte(notes), 0644); err != nil {
		exitErr(fmt.Errorf("writing release notes: %w", err))
	}
	ux.Success("Release notes written to " + notesOutput)
}

// runReleaseCreate creates the GitHub release through the gh CLI, rendering
// notes from the metadata store unless --notes-file supplies them.
func runReleaseCreate(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	info := releaseIdentity(cmd)

	opts := release.CreateOptions{
		Tag:   info.Tag(),
		Title: info.Title(),
		// Only prod releases move GitHub's "latest" pointer.
		MarkLatest: info.ReleaseGroup == "prod",
		Repo:       createRepo,
		Assets:     createAssets,
	}

	if createNotesFile != "" {
		opts.NotesFile = createNotesFile
	} else {
		store, err := metadataStore(ctx)
		if err != nil {
			exitErr(err)
		}
		notes, err := release.Notes(ctx, store, info.Distribution, info.CollectorVersion(), info.TagsString())
		if err != nil {
			exitErr(err)
		}
		opts.Notes = notes
	}

	pm := NewDefaultProcessManager()
	err := ux.WithSpinner("Creating GitHub release "+opts.Tag, func() error {
		return release.Create(ctx, pm, opts)
	})
	if err != nil {
		exitErr(err)
	}
	ux.Success("Release " + opts.Tag + " created")
	log.Info("github release created", "tag", opts.Tag, "assets", len(opts.Assets))
}

// releaseIdentity resolves the release identity shared by the release
// subcommands from flags, environment, and the distributions file.
func releaseIdentity(cmd *cobra.Command) release.Info {
	envOverride(cmd, "distribution", envDistribution, &relDistribution)
	envOverride(cmd, "collector-version", envCollectorVersion, &relVersion)
	envOverride(cmd, "release-group", envReleaseGroup, &relGroup)

	if relVersion == "" {
		exitErr(errors.New("--collector-version is required (or set " + envCollectorVersion + ")"))
	}
	if err := validation.ValidateDistributionName(relDistribution); err != nil {
		exitErr(err)
	}

	dists, err := distribution.Load(config.Global.Build.GetDistributionsFile())
	if err != nil {
		exitErr(err)
	}
	info, err := release.NewInfo(dists, relDistribution, relVersion, relGroup)
	if err != nil {
		exitErr(err)
	}
	if info.UsedFallback {
		ux.Warning(fmt.Sprintf("Unknown distribution %q, falling back to default build tags", relDistribution))
	}
	return info
}
