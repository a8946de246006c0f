// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package builder drives the upstream make build and collects the layer
// artifact it produces.
package builder

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Artifact file names the upstream build has used across refs, newest first.
var artifactNames = []string{
	"opentelemetry-collector-layer-%s.zip",
	"custom-otel-collector-layer-%s.zip",
}

// Runner runs external commands with extra environment variables. Satisfied
// by the CLI's ProcessManager implementations.
type Runner interface {
	RunWithEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// Package runs `make package` in the collector directory with GOARCH and
// BUILDTAGS appended to the inherited environment.
func Package(ctx context.Context, runner Runner, collectorDir, arch string, tags []string) error {
	env := []string{
		"GOARCH=" + arch,
		"BUILDTAGS=" + strings.Join(tags, ","),
	}
	if _, err := runner.RunWithEnv(ctx, collectorDir, env, "make", "package"); err != nil {
		return fmt.Errorf("make package (GOARCH=%s): %w", arch, err)
	}
	return nil
}

// CollectArtifact locates the zip the build dropped under build/ and moves
// it to {outputDir}/collector-{arch}-{distribution}.zip, creating the output
// directory when absent. Both the current and the older upstream artifact
// names are probed.
func CollectArtifact(collectorDir, outputDir, arch, distribution string) (string, error) {
	var probed []string
	var src string
	for _, pattern := range artifactNames {
		candidate := filepath.Join(collectorDir, "build", fmt.Sprintf(pattern, arch))
		probed = append(probed, candidate)
		if _, err := os.Stat(candidate); err == nil {
			src = candidate
			break
		}
	}
	if src == "" {
		return "", fmt.Errorf("no layer artifact found after build; probed: %s", strings.Join(probed, ", "))
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", outputDir, err)
	}

	dst := filepath.Join(outputDir, fmt.Sprintf("collector-%s-%s.zip", arch, distribution))
	if err := moveFile(src, dst); err != nil {
		return "", fmt.Errorf("moving artifact to %s: %w", dst, err)
	}
	return dst, nil
}

// moveFile renames when possible and copies across filesystems (the build
// workspace usually lives on a different mount than the output dir).
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// MD5 returns the hex MD5 of a file, streamed in 4096-byte chunks. The hash
// identifies identical artifacts across publishes; it is not a security
// boundary.
func MD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, 4096)); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
