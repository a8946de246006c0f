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
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/awsx"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/builder"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/layer"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/metadata"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// publishAPIRate caps Lambda API calls per second across all regions during
// a fan-out, mostly for the ListLayerVersions pagination in skip-detection.
const publishAPIRate = 10

// githubRefVersion strips a GITHUB_REF like refs/tags/v0.119.0 down to its
// numeric tail.
var githubRefVersion = regexp.MustCompile(`.*/[^0-9.]*`)

// runPublish publishes a built layer zip to one or more regions: skip when an
// identical artifact (by MD5) is already published, grant public access when
// requested, and record every version in the metadata table.
func runPublish(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	// Config-file base name applies when the flag keeps its default; the
	// environment override below still beats it.
	if !cmd.Flags().Changed("layer-name") {
		publishBaseName = config.Global.Publish.GetLayerBaseName()
	}

	envOverride(cmd, "artifact", envArtifact, &publishArtifact)
	envOverride(cmd, "layer-name", envLayerName, &publishBaseName)
	envOverride(cmd, "arch", envArchitecture, &publishArch)
	envOverride(cmd, "distribution", envDistribution, &publishDist)
	envOverride(cmd, "collector-version", envCollectorVersion, &publishVersion)
	envOverride(cmd, "runtimes", envRuntimes, &publishRuntimes)
	envOverride(cmd, "release-group", envReleaseGroup, &publishGroup)
	envOverrideBool(cmd, "public", envMakePublic, &publishPublic)
	envOverride(cmd, "build-tags", envBuildTags, &publishTags)
	envOverrideSlice(cmd, "region", envRegion, &publishRegions)

	if publishArtifact == "" {
		exitErr(errors.New("--artifact is required (or set " + envArtifact + ")"))
	}
	if err := validation.ValidateArchitecture(publishArch); err != nil {
		exitErr(err)
	}
	if publishArch == "all" {
		exitErr(fmt.Errorf(`publish targets concrete architectures; "all" is only valid for matrix`))
	}
	if err := validation.ValidateDistributionName(publishDist); err != nil {
		exitErr(err)
	}
	if err := validation.ValidateRuntimes(publishRuntimes); err != nil {
		exitErr(err)
	}

	regions := expandRegions(publishRegions)
	if err := validation.ValidateRegions(regions); err != nil {
		exitErr(err)
	}

	ux.Header("Lambda layer publisher")
	md5sum, err := builder.MD5(publishArtifact)
	if err != nil {
		exitErr(err)
	}
	ux.Detail("Artifact MD5 " + md5sum)

	req := publishRequest{
		Artifact:         publishArtifact,
		MD5:              md5sum,
		BaseName:         publishBaseName,
		Architecture:     publishArch,
		Distribution:     publishDist,
		Version:          nameVersion(publishVersion),
		CollectorVersion: publishVersion,
		Runtimes:         publishRuntimes,
		ReleaseGroup:     publishGroup,
		BuildTags:        publishTags,
		MakePublic:       publishPublic,
	}
	name := layer.ConstructName(req.BaseName, req.Architecture, req.Distribution, req.Version, req.ReleaseGroup)
	ux.Status("Layer name " + name)

	store, err := metadataStore(ctx)
	if err != nil {
		exitErr(err)
	}

	ux.SubHeader(fmt.Sprintf("Publishing to %d region(s)", len(regions)))

	limiter := rate.NewLimiter(rate.Limit(publishAPIRate), publishAPIRate)
	var (
		mu      sync.Mutex
		results []publishResult
	)
	spin := ux.NewProgressSpinner("Publishing "+name, len(regions))
	spin.Start()
	// Workers record their outcome instead of returning errors so one bad
	// region does not cancel the rest of the fan-out.
	_ = layer.ForEachRegion(ctx, regions, func(ctx context.Context, region string) error {
		res := publishOneRegion(ctx, region, store, req, limiter)
		mu.Lock()
		results = append(results, res)
		mu.Unlock()
		spin.Increment()
		return nil
	})
	spin.Stop()

	sort.Slice(results, func(i, j int) bool { return results[i].Region < results[j].Region })

	var published, skipped, failed int
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "published"
		switch {
		case res.Err != nil:
			failed++
			status = "failed: " + res.Err.Error()
		case res.Skipped:
			skipped++
			status = "reused existing"
		default:
			published++
		}
		if res.Note != "" {
			status += " (" + res.Note + ")"
		}
		rows = append(rows, []string{res.Region, res.ARN, status})
	}
	fmt.Println(ux.Table([]string{"Region", "Layer ARN", "Status"}, rows))
	ux.Summary(published, skipped, failed)

	reportPublishOutputs(regions, results, req, name)

	if failed > 0 {
		exitErr(fmt.Errorf("publish failed in %d of %d regions", failed, len(regions)))
	}
}

// publishRequest carries everything one region needs to publish an artifact
// and record it.
type publishRequest struct {
	Artifact     string
	MD5          string
	BaseName     string
	Architecture string
	Distribution string

	// Version is the resolved naming component (no leading v, "latest"
	// fallback); CollectorVersion is the raw input recorded in metadata.
	Version          string
	CollectorVersion string

	Runtimes     string
	ReleaseGroup string
	BuildTags    string
	MakePublic   bool
}

// publishResult is the per-region outcome.
type publishResult struct {
	Region  string
	Name    string
	ARN     string
	Skipped bool
	Public  bool
	Note    string
	Err     error
}

// publishOneRegion loads the region's AWS config and runs the publish flow
// against it.
func publishOneRegion(ctx context.Context, region string, store *metadata.Store, req publishRequest, limiter *rate.Limiter) publishResult {
	cfg, err := awsx.Load(ctx, region)
	if err != nil {
		return publishResult{Region: region, Err: err}
	}
	client := layer.New(cfg, region, layer.WithLimiter(limiter))
	return publishToRegion(ctx, client, store, req)
}

// publishToRegion publishes one artifact to one region: skip-by-MD5, publish,
// optional public grant, metadata record. When the publish is skipped because
// an identical version exists, the metadata record is repaired if missing.
//
// A metadata or permission failure after a successful publish is reported as
// a note, not an error: the layer version exists and a later run can repair
// the rest.
func publishToRegion(ctx context.Context, client *layer.Client, store *metadata.Store, req publishRequest) publishResult {
	region := client.Region()
	name := layer.ConstructName(req.BaseName, req.Architecture, req.Distribution, req.Version, req.ReleaseGroup)
	res := publishResult{Region: region, Name: name}

	item := metadata.Item{
		SK:                 req.Distribution,
		Region:             region,
		BaseName:           req.BaseName,
		Architecture:       req.Architecture,
		Distribution:       req.Distribution,
		LayerVersion:       validation.SanitizeLayerComponent(req.Version),
		CollectorVersion:   req.CollectorVersion,
		MD5Hash:            req.MD5,
		PublishTimestamp:   metadata.Timestamp(),
		CompatibleRuntimes: layer.SplitRuntimes(req.Runtimes),
	}

	existing, err := client.FindByMD5(ctx, name, req.MD5)
	if err != nil {
		res.Err = err
		return res
	}
	if existing != "" {
		log.Info("identical layer already published", "region", region, "arn", existing)
		res.ARN = existing
		res.Skipped = true
		item.PK = existing
		item.LayerARN = existing
		repaired, err := store.Repair(ctx, item)
		switch {
		case err != nil:
			log.Warn("metadata repair failed", "arn", existing, "error", err)
			res.Note = "metadata repair failed"
		case repaired:
			log.Info("metadata record repaired", "arn", existing)
		}
		return res
	}

	out, err := client.Publish(ctx, layer.PublishInput{
		Name:         name,
		ZipPath:      req.Artifact,
		BuildTags:    req.BuildTags,
		MD5:          req.MD5,
		Architecture: req.Architecture,
		Runtimes:     req.Runtimes,
	})
	if err != nil {
		res.Err = err
		return res
	}
	log.Info("layer published", "region", region, "arn", out.ARN)
	res.ARN = out.ARN

	if req.MakePublic {
		alreadyPublic, err := client.MakePublic(ctx, name, out.Version)
		if err != nil {
			log.Warn("public grant failed", "arn", out.ARN, "error", err)
			res.Note = "public grant failed"
			return res
		}
		if alreadyPublic {
			log.Debug("layer version already public", "arn", out.ARN)
		}
		res.Public = true
		item.Public = true
	}

	item.PK = out.ARN
	item.LayerARN = out.ARN
	if err := store.Put(ctx, item); err != nil {
		log.Warn("metadata write failed", "arn", out.ARN, "error", err)
		res.Note = "metadata write failed"
	}
	return res
}

// reportPublishOutputs writes the GitHub Actions outputs and step summary.
// skip_publish/layer_arn only make sense for the single-region CI invocation;
// multi-region runs get the summary table alone.
func reportPublishOutputs(regions []string, results []publishResult, req publishRequest, name string) {
	if len(regions) == 1 && len(results) == 1 && results[0].Err == nil {
		res := results[0]
		if err := ghactions.SetOutput("skip_publish", strconv.FormatBool(res.Skipped)); err != nil {
			log.Warn("github output write failed", "key", "skip_publish", "error", err)
		}
		if res.ARN != "" {
			if err := ghactions.SetOutput("layer_arn", res.ARN); err != nil {
				log.Warn("github output write failed", "key", "layer_arn", "error", err)
			}
		}

		status := "Published new layer version"
		if res.Skipped {
			status = "Reused existing layer (identical content)"
		}
		rows := [][]string{
			{"Layer Name", name},
			{"Region", res.Region},
			{"ARN", res.ARN},
			{"Content MD5", req.MD5},
			{"Status", status},
			{"Artifact", req.Artifact},
		}
		if req.Distribution != "" && req.Distribution != "default" {
			rows = append(rows, []string{"Distribution", req.Distribution})
		}
		rows = append(rows, []string{"Architecture", req.Architecture})
		if req.CollectorVersion != "" {
			rows = append(rows, []string{"Collector Version", req.CollectorVersion})
		}
		summary := ghactions.SummaryTable("Layer Publishing Summary", []string{"Property", "Value"}, rows)
		if err := ghactions.AppendSummary(summary); err != nil {
			log.Warn("github summary write failed", "error", err)
		}
		return
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		status := "published"
		switch {
		case res.Err != nil:
			status = "failed"
		case res.Skipped:
			status = "reused existing"
		}
		rows = append(rows, []string{res.Region, res.ARN, status})
	}
	summary := ghactions.SummaryTable("Layer Publishing Summary", []string{"Region", "ARN", "Status"}, rows)
	if err := ghactions.AppendSummary(summary); err != nil {
		log.Warn("github summary write failed", "error", err)
	}
}

// nameVersion picks the version component for layer naming: the collector
// version when known, else the numeric tail of GITHUB_REF, else "latest".
func nameVersion(collectorVersion string) string {
	if v := strings.TrimSpace(collectorVersion); v != "" {
		return strings.TrimPrefix(v, "v")
	}
	if ref := os.Getenv("GITHUB_REF"); ref != "" {
		if v := githubRefVersion.ReplaceAllString(ref, ""); v != "" {
			return v
		}
	}
	return "latest"
}
