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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/awsx"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/builder"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/layer"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/overlay"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/upstream"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// watchDebounce batches rapid component edits into a single rebuild.
const watchDebounce = 500 * time.Millisecond

// localReleaseGroup marks layers published from a developer machine so they
// never collide with CI-published prod or beta names.
const localReleaseGroup = "local"

// runPipeline runs the whole clone-build-publish flow in one command, aimed
// at local iteration on custom components. With --watch it reruns the flow
// on every change under --components.
func runPipeline(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	envOverride(cmd, "distribution", envDistribution, &pipelineDistribution)
	envOverride(cmd, "arch", envArchitecture, &pipelineArch)
	envOverride(cmd, "layer-name", envLayerName, &pipelineLayerName)
	envOverride(cmd, "runtimes", envRuntimes, &pipelineRuntimes)
	envOverride(cmd, "region", envRegion, &pipelineRegion)
	envOverrideBool(cmd, "public", envMakePublic, &pipelinePublic)

	if err := validation.ValidateArchitecture(pipelineArch); err != nil {
		exitErr(err)
	}
	if pipelineArch == "all" {
		exitErr(fmt.Errorf(`pipeline builds one architecture at a time; "all" is only valid for matrix`))
	}
	if err := validation.ValidateDistributionName(pipelineDistribution); err != nil {
		exitErr(err)
	}
	if err := validation.ValidateRuntimes(pipelineRuntimes); err != nil {
		exitErr(err)
	}
	if pipelineRegion != "" {
		if err := validation.ValidateRegion(pipelineRegion); err != nil {
			exitErr(err)
		}
	}

	if pipelineWatch {
		if err := watchPipeline(ctx); err != nil && !errors.Is(err, context.Canceled) {
			exitErr(err)
		}
		return
	}
	if err := executePipeline(ctx); err != nil {
		exitErr(err)
	}
}

// executePipeline performs one clone-build-publish cycle.
func executePipeline(ctx context.Context) (err error) {
	ctx, span := otel.Tracer("layerctl").Start(ctx, "pipeline.run",
		trace.WithAttributes(
			attribute.String("distribution", pipelineDistribution),
			attribute.String("arch", pipelineArch),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ux.Header("Build configuration")
	ux.PropertyList([]ux.Property{
		{Key: "Distribution", Value: pipelineDistribution},
		{Key: "Architecture", Value: pipelineArch},
		{Key: "Upstream", Value: config.Global.Upstream.GetRepo() + "@" + config.Global.Upstream.GetRef()},
		{Key: "Layer Name", Value: pipelineLayerName},
		{Key: "Runtimes", Value: pipelineRuntimes},
		{Key: "Publish", Value: yesNo(!pipelineSkipPublish)},
		{Key: "Public Access", Value: yesNo(pipelinePublic)},
	})

	tracker := ux.NewStepTracker("Build process",
		"Clone upstream repository",
		"Determine upstream version",
		"Resolve build tags",
		"Build extension layer",
		"Publish layer (if enabled)",
	)

	pm := NewDefaultProcessManager()
	ws, err := upstream.NewWorkspace(pipelineKeepTemp)
	if err != nil {
		return err
	}
	defer closeWorkspace(ws)

	repo, ref := config.Global.Upstream.GetRepo(), config.Global.Upstream.GetRef()
	tracker.Start(0)
	if err := upstream.Clone(ctx, pm, repo, ref, ws.UpstreamDir()); err != nil {
		tracker.Fail(0, err)
		return err
	}
	tracker.Done(0)

	tracker.Start(1)
	version, err := upstream.DetectVersion(ctx, pm, ws.CollectorDir())
	if err != nil {
		tracker.Fail(1, err)
		return err
	}
	tracker.DoneDetail(1, "Version: "+version)

	tracker.Start(2)
	tags, err := resolveBuildTags(pipelineDistribution, "")
	if err != nil {
		tracker.Fail(2, err)
		return err
	}
	tagsString := strings.Join(tags, ",")
	tracker.DoneDetail(2, "Tags: "+orNone(tagsString))

	tracker.Start(3)
	artifact, md5sum, err := buildLayer(ctx, pm, ws, tags, version)
	if err != nil {
		tracker.Fail(3, err)
		return err
	}
	tracker.DoneDetail(3, filepath.Base(artifact))

	if pipelineSkipPublish {
		tracker.Skip(4, "publish disabled")
		ux.Info("Layer available at " + artifact)
		return nil
	}

	tracker.Start(4)
	region, res, err := publishLocal(ctx, publishRequest{
		Artifact:         artifact,
		MD5:              md5sum,
		BaseName:         pipelineLayerName,
		Architecture:     pipelineArch,
		Distribution:     pipelineDistribution,
		Version:          nameVersion(version),
		CollectorVersion: version,
		Runtimes:         pipelineRuntimes,
		ReleaseGroup:     localReleaseGroup,
		BuildTags:        tagsString,
		MakePublic:       pipelinePublic,
	})
	if err != nil {
		tracker.Fail(4, err)
		return err
	}
	if res.Skipped {
		tracker.DoneDetail(4, "Identical content already published: "+res.ARN)
	} else {
		tracker.DoneDetail(4, res.ARN)
	}
	if res.Note != "" {
		ux.Warning(res.Note)
	}

	ux.Success(fmt.Sprintf("Published %s distribution to region %s as a '%s' release",
		pipelineDistribution, region, localReleaseGroup))
	return nil
}

// buildLayer overlays the custom components onto the cloned upstream tree,
// patches the collector dependencies, and runs the upstream make target.
// Returns the artifact path and its MD5.
func buildLayer(ctx context.Context, pm ProcessManager, ws *upstream.Workspace, tags []string, version string) (string, string, error) {
	if _, err := os.Stat(pipelineComponents); err != nil {
		ux.Warning(fmt.Sprintf("Components directory %s not found, building without overlay", pipelineComponents))
	} else {
		copied, err := overlay.CopyTree(pipelineComponents, ws.UpstreamDir())
		if err != nil {
			return "", "", err
		}
		log.Debug("components overlaid", "files", copied, "src", pipelineComponents)
	}

	if err := applyDependencies(ctx, pm, ws.CollectorDir(), tags, version); err != nil {
		return "", "", err
	}
	if err := builder.Package(ctx, pm, ws.CollectorDir(), pipelineArch, tags); err != nil {
		return "", "", err
	}
	artifact, err := builder.CollectArtifact(ws.CollectorDir(), config.Global.Build.GetOutputDir(), pipelineArch, pipelineDistribution)
	if err != nil {
		return "", "", err
	}
	md5sum, err := builder.MD5(artifact)
	if err != nil {
		return "", "", err
	}
	return artifact, md5sum, nil
}

// publishLocal verifies credentials, resolves the target region from the
// flag or the default AWS config chain, and publishes the artifact under
// the local release group.
func publishLocal(ctx context.Context, req publishRequest) (string, publishResult, error) {
	ident, err := awsx.Preflight(ctx, pipelineRegion)
	if err != nil {
		return "", publishResult{}, err
	}
	cfg, err := awsx.Load(ctx, pipelineRegion)
	if err != nil {
		return "", publishResult{}, err
	}
	region := cfg.Region
	if region == "" {
		return "", publishResult{}, fmt.Errorf("no AWS region resolved; pass --region or set AWS_REGION")
	}
	log.Debug("aws identity verified", "account", ident.Account, "region", region)

	store, err := metadataStore(ctx)
	if err != nil {
		return region, publishResult{}, err
	}
	res := publishToRegion(ctx, layer.New(cfg, region), store, req)
	return region, res, res.Err
}

// watchPipeline reruns the pipeline whenever files under --components
// change. Build failures keep the watcher alive; only watcher setup errors
// or context cancellation end it.
func watchPipeline(ctx context.Context) error {
	if err := executePipeline(ctx); err != nil {
		ux.Error(err.Error())
		log.Error("pipeline failed", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchTree(watcher, pipelineComponents); err != nil {
		return err
	}
	ux.Info("Watching " + pipelineComponents + " for changes (Ctrl+C to stop)")

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// New directories need their own watch before edits inside
			// them are visible.
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if addErr := watchTree(watcher, event.Name); addErr != nil {
						log.Warn("watch new directory", "dir", event.Name, "error", addErr)
					}
				}
			}
			log.Debug("change detected", "path", event.Name, "op", event.Op.String())
			debounce.Reset(watchDebounce)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", watchErr)
		case <-debounce.C:
			ux.SubHeader("Change detected, rebuilding")
			if err := executePipeline(ctx); err != nil {
				ux.Error(err.Error())
				log.Error("pipeline failed", "error", err)
			}
			ux.Info("Watching " + pipelineComponents + " for changes (Ctrl+C to stop)")
		}
	}
}

// watchTree registers dir and every subdirectory with the watcher. Hidden
// directories are skipped.
func watchTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
