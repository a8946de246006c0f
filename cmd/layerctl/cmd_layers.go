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
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/awsx"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/builder"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/layer"
	"github.com/AleutianAI/layerctl/pkg/ux"
	"github.com/AleutianAI/layerctl/pkg/validation"
)

// runLayersCheck reports whether a layer version carrying the artifact's MD5
// already exists, the same check publish performs, exposed for CI jobs that
// gate later steps on skip_publish.
func runLayersCheck(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	envOverride(cmd, "artifact", envArtifact, &checkArtifact)
	envOverride(cmd, "layer-name", envLayerName, &checkLayerName)
	envOverride(cmd, "region", envRegion, &checkRegion)

	if checkLayerName == "" {
		exitErr(errors.New("--layer-name is required (or set " + envLayerName + ")"))
	}
	if checkArtifact == "" && checkMD5 == "" {
		exitErr(errors.New("one of --artifact or --md5 is required"))
	}
	if checkRegion == "" {
		exitErr(errors.New("--region is required (or set " + envRegion + ")"))
	}
	if err := validation.ValidateRegion(checkRegion); err != nil {
		exitErr(err)
	}

	md5sum := checkMD5
	if md5sum == "" {
		var err error
		md5sum, err = builder.MD5(checkArtifact)
		if err != nil {
			exitErr(err)
		}
	}

	ux.SubHeader("Checking layers")
	ux.Status(fmt.Sprintf("Checking %s in %s", checkLayerName, checkRegion))
	ux.Detail("MD5 " + md5sum)

	cfg, err := awsx.Load(ctx, checkRegion)
	if err != nil {
		exitErr(err)
	}
	client := layer.New(cfg, checkRegion)

	arn, err := client.FindByMD5(ctx, checkLayerName, md5sum)
	if err != nil {
		exitErr(err)
	}

	skip := arn != ""
	if err := ghactions.SetOutput("skip_publish", strconv.FormatBool(skip)); err != nil {
		log.Warn("github output write failed", "key", "skip_publish", "error", err)
	}
	if skip {
		if err := ghactions.SetOutput("layer_arn", arn); err != nil {
			log.Warn("github output write failed", "key", "layer_arn", "error", err)
		}
		ux.Success("Found matching layer version " + arn)
		return
	}
	ux.Info("No layer version with this MD5 exists")
}

// runLayersList scans the target regions for layers matching the pattern and
// renders one table sorted by region and name.
func runLayersList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	regions := expandRegions(listRegions)
	if err := validation.ValidateRegions(regions); err != nil {
		exitErr(err)
	}

	ux.Header("Published layers")
	ux.Detail(fmt.Sprintf("Pattern %s across %d region(s)", listPattern, len(regions)))

	limiter := rate.NewLimiter(rate.Limit(publishAPIRate), publishAPIRate)
	found, errs := scanRegions(ctx, regions, listPattern, limiter)
	for _, err := range errs {
		ux.Warning(err.Error())
	}

	if len(found) == 0 {
		ux.Info("No layers found")
		return
	}

	rows := make([][]string, 0, len(found))
	for _, f := range found {
		rows = append(rows, []string{
			f.region,
			f.summary.Name,
			strconv.FormatInt(f.summary.LatestVersion, 10),
			f.summary.LatestARN,
		})
	}
	fmt.Println(ux.Table([]string{"Region", "Layer", "Latest Version", "ARN"}, rows))
	ux.Info(fmt.Sprintf("%d layer(s) in %d region(s)", len(found), len(regions)))

	if len(errs) > 0 {
		exitErr(fmt.Errorf("listing failed in %d region(s)", len(errs)))
	}
}

// runLayersDelete deletes every version of the layers matching the pattern
// across the target regions, after a dry-run style summary and an explicit
// confirmation. Metadata records pointing at the deleted layers are removed
// too.
func runLayersDelete(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()

	if deletePattern == "" {
		exitErr(errors.New("--pattern is required; refusing to match every layer implicitly"))
	}
	regions := expandRegions(deleteRegions)
	if err := validation.ValidateRegions(regions); err != nil {
		exitErr(err)
	}

	limiter := rate.NewLimiter(rate.Limit(publishAPIRate), publishAPIRate)

	ux.Header("Delete layers")
	found, errs := scanRegions(ctx, regions, deletePattern, limiter)
	for _, err := range errs {
		ux.Warning(err.Error())
	}
	if len(found) == 0 {
		ux.Info(fmt.Sprintf("No layers match %q", deletePattern))
		return
	}

	rows := make([][]string, 0, len(found))
	for _, f := range found {
		rows = append(rows, []string{f.region, f.summary.Name, strconv.FormatInt(f.summary.LatestVersion, 10)})
	}
	ux.WarningBox("About to delete",
		fmt.Sprintf("%d layer(s) across %d region(s), every version of each", len(found), len(regions)))
	fmt.Println(ux.Table([]string{"Region", "Layer", "Latest Version"}, rows))

	if deleteDryRun {
		ux.Info("Dry run, nothing deleted")
		return
	}

	if !deleteForce {
		if !ux.IsInteractive() {
			exitErr(errors.New("refusing to delete without --force in a non-interactive session"))
		}
		ok, err := confirmDelete(len(found), len(regions))
		if err != nil {
			exitErr(err)
		}
		if !ok {
			ux.Info("Aborted")
			return
		}
	}

	// Group names per region so each worker owns one region's deletions.
	perRegion := map[string][]string{}
	for _, f := range found {
		perRegion[f.region] = append(perRegion[f.region], f.summary.Name)
	}

	var (
		mu       sync.Mutex
		deleted  int
		failures []error
	)
	_ = layer.ForEachRegion(ctx, regions, func(ctx context.Context, region string) error {
		names := perRegion[region]
		if len(names) == 0 {
			return nil
		}
		cfg, err := awsx.Load(ctx, region)
		if err != nil {
			mu.Lock()
			failures = append(failures, fmt.Errorf("%s: %w", region, err))
			mu.Unlock()
			return nil
		}
		client := layer.New(cfg, region, layer.WithLimiter(limiter))
		for _, name := range names {
			n, err := client.DeleteVersions(ctx, name)
			mu.Lock()
			deleted += n
			if err != nil {
				failures = append(failures, fmt.Errorf("%s/%s: %w", region, name, err))
			}
			mu.Unlock()
		}
		return nil
	})

	removed := deleteMetadataRecords(ctx, regions, deletePattern)

	ux.Success(fmt.Sprintf("Deleted %d layer version(s)", deleted))
	if removed > 0 {
		ux.Info(fmt.Sprintf("Removed %d metadata record(s)", removed))
	}
	for _, err := range failures {
		ux.Warning(err.Error())
	}
	if len(failures) > 0 {
		exitErr(fmt.Errorf("deletion failed for %d layer(s)", len(failures)))
	}
}

// regionLayer pairs a layer summary with the region it was found in.
type regionLayer struct {
	region  string
	summary layer.Summary
}

// scanRegions lists matching layers in every region concurrently. Per-region
// failures are collected, not fatal, so one unreachable region does not hide
// the others.
func scanRegions(ctx context.Context, regions []string, pattern string, limiter *rate.Limiter) ([]regionLayer, []error) {
	var (
		mu    sync.Mutex
		found []regionLayer
		errs  []error
	)
	_ = layer.ForEachRegion(ctx, regions, func(ctx context.Context, region string) error {
		cfg, err := awsx.Load(ctx, region)
		if err != nil {
			mu.Lock()
			errs = append(errs, fmt.Errorf("%s: %w", region, err))
			mu.Unlock()
			return nil
		}
		client := layer.New(cfg, region, layer.WithLimiter(limiter))
		summaries, err := client.ListLayers(ctx, pattern)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", region, err))
			return nil
		}
		for _, s := range summaries {
			found = append(found, regionLayer{region: region, summary: s})
		}
		return nil
	})

	sort.Slice(found, func(i, j int) bool {
		if found[i].region != found[j].region {
			return found[i].region < found[j].region
		}
		return found[i].summary.Name < found[j].summary.Name
	})
	return found, errs
}

// confirmDelete requires the operator to type the word DELETE.
func confirmDelete(layers, regions int) (bool, error) {
	var typed string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("Delete %d layer(s) across %d region(s)?", layers, regions)).
			Description("This cannot be undone. Type DELETE to confirm.").
			Value(&typed),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return strings.TrimSpace(typed) == "DELETE", nil
}

// deleteMetadataRecords removes store rows whose layer name matches the
// pattern in one of the target regions. Failures only warn; the Lambda
// deletions already happened and the store can be repaired later.
func deleteMetadataRecords(ctx context.Context, regions []string, pattern string) int {
	store, err := metadataStore(ctx)
	if err != nil {
		log.Warn("metadata store unavailable, records kept", "error", err)
		return 0
	}
	items, err := store.ScanAll(ctx)
	if err != nil {
		log.Warn("metadata scan failed, records kept", "error", err)
		return 0
	}

	inScope := map[string]bool{}
	for _, r := range regions {
		inScope[r] = true
	}

	removed := 0
	for _, item := range items {
		if !inScope[item.Region] {
			continue
		}
		name := layerNameFromARN(item.LayerARN)
		if name == "" {
			continue
		}
		if ok, _ := path.Match(pattern, name); !ok {
			continue
		}
		n, err := store.Delete(ctx, item.PK)
		if err != nil {
			log.Warn("metadata delete failed", "pk", item.PK, "error", err)
			continue
		}
		removed += n
	}
	return removed
}

// layerNameFromARN extracts the name segment of a layer version ARN
// (arn:aws:lambda:{region}:{account}:layer:{name}:{version}).
func layerNameFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 8 || parts[5] != "layer" {
		return ""
	}
	return parts[6]
}
