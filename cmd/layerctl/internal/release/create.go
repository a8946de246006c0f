// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package release

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingTag indicates a create call without a release tag.
var ErrMissingTag = errors.New("release tag is required")

// Runner executes the gh CLI.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)
}

// CreateOptions drive gh release create.
type CreateOptions struct {
	Tag   string
	Title string

	// NotesFile is a path to the notes Markdown. When empty, Notes is piped
	// over stdin with --notes-file -.
	NotesFile string
	Notes     string

	// MarkLatest controls GitHub's "latest release" pointer; false adds
	// --latest=false so prerelease groups do not shadow prod.
	MarkLatest bool

	// Repo is an optional owner/name override for cross-repo releases.
	Repo string

	// Assets are artifact files attached to the release.
	Assets []string
}

// Create creates a GitHub release through the gh CLI, which must be on PATH
// and authenticated.
func Create(ctx context.Context, runner Runner, opts CreateOptions) error {
	if opts.Tag == "" {
		return ErrMissingTag
	}

	args := []string{"release", "create", opts.Tag, "--title", opts.Title}
	useStdin := opts.NotesFile == ""
	if useStdin {
		args = append(args, "--notes-file", "-")
	} else {
		args = append(args, "--notes-file", opts.NotesFile)
	}
	if !opts.MarkLatest {
		args = append(args, "--latest=false")
	}
	if opts.Repo != "" {
		args = append(args, "--repo", opts.Repo)
	}
	args = append(args, opts.Assets...)

	var err error
	if useStdin {
		_, err = runner.RunWithInput(ctx, "gh", []byte(opts.Notes), args...)
	} else {
		_, err = runner.Run(ctx, "gh", args...)
	}
	if err != nil {
		return fmt.Errorf("gh release create %s: %w", opts.Tag, err)
	}
	return nil
}
