// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package upstream clones the third-party layer repository and detects which
// collector version a checkout builds.
package upstream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/semver"
)

// collectorModule is the dependency whose version names the collector release.
const collectorModule = "go.opentelemetry.io/collector"

// Runner runs external commands. Satisfied by the CLI's ProcessManager
// implementations.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	RunIn(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// Clone makes a shallow clone of github.com/{repo} at ref into dir.
func Clone(ctx context.Context, runner Runner, repo, ref, dir string) error {
	url := fmt.Sprintf("https://github.com/%s.git", repo)

	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, url, dir)

	if _, err := runner.Run(ctx, "git", args...); err != nil {
		return fmt.Errorf("cloning %s@%s: %w", repo, ref, err)
	}
	return nil
}

// DetectVersion determines the collector version a checkout builds.
//
// The UPSTREAM_VERSION environment variable wins when set (CI injects it).
// Otherwise `make set-otelcol-version` is run in the collector directory and
// the VERSION file it writes is read. When either step fails the collector
// go.mod is parsed and the go.opentelemetry.io/collector requirement used.
// Returned versions never carry a leading v.
func DetectVersion(ctx context.Context, runner Runner, collectorDir string) (string, error) {
	if v := strings.TrimSpace(os.Getenv("UPSTREAM_VERSION")); v != "" {
		return strings.TrimPrefix(v, "v"), nil
	}

	if _, err := runner.RunIn(ctx, collectorDir, "make", "set-otelcol-version"); err == nil {
		if v, err := readVersionFile(filepath.Join(collectorDir, "VERSION")); err == nil {
			return v, nil
		}
	}

	v, err := versionFromGoMod(filepath.Join(collectorDir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("detecting collector version: %w", err)
	}
	return v, nil
}

func readVersionFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("VERSION file %s is empty", path)
	}
	v = strings.TrimPrefix(v, "v")
	if !semver.IsValid("v" + v) {
		return "", fmt.Errorf("VERSION file %s holds %q, not a semantic version", path, v)
	}
	return v, nil
}

func versionFromGoMod(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	f, err := modfile.Parse(path, data, nil)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, req := range f.Require {
		if req.Mod.Path == collectorModule {
			return strings.TrimPrefix(req.Mod.Version, "v"), nil
		}
	}
	return "", fmt.Errorf("%s does not require %s", path, collectorModule)
}
