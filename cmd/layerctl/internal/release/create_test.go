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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGH struct {
	name   string
	args   []string
	input  []byte
	method string
	err    error
}

func (f *fakeGH) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.method = "Run"
	f.name = name
	f.args = args
	return nil, f.err
}

func (f *fakeGH) RunWithInput(_ context.Context, name string, input []byte, args ...string) ([]byte, error) {
	f.method = "RunWithInput"
	f.name = name
	f.input = input
	f.args = args
	return nil, f.err
}

func TestCreateWithNotesFile(t *testing.T) {
	gh := &fakeGH{}

	err := Create(context.Background(), gh, CreateOptions{
		Tag:       "clickhouse-v0.119.0-prod",
		Title:     "Release distribution:clickhouse v0.119.0 (prod)",
		NotesFile: "/tmp/notes.md",
		Assets:    []string{"build/collector-amd64-clickhouse.zip", "build/collector-arm64-clickhouse.zip"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Run", gh.method)
	assert.Equal(t, "gh", gh.name)
	assert.Equal(t, []string{
		"release", "create", "clickhouse-v0.119.0-prod",
		"--title", "Release distribution:clickhouse v0.119.0 (prod)",
		"--notes-file", "/tmp/notes.md",
		"--latest=false",
		"build/collector-amd64-clickhouse.zip",
		"build/collector-arm64-clickhouse.zip",
	}, gh.args)
}

func TestCreateNotesOverStdin(t *testing.T) {
	gh := &fakeGH{}

	err := Create(context.Background(), gh, CreateOptions{
		Tag:        "default-v0.119.0-prod",
		Title:      "Release distribution:default v0.119.0 (prod)",
		Notes:      "## Release Details\n",
		MarkLatest: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "RunWithInput", gh.method)
	assert.Equal(t, []byte("## Release Details\n"), gh.input)
	assert.Contains(t, gh.args, "-")
	assert.NotContains(t, gh.args, "--latest=false")
}

func TestCreateRepoOverride(t *testing.T) {
	gh := &fakeGH{}

	err := Create(context.Background(), gh, CreateOptions{
		Tag:   "t",
		Title: "T",
		Notes: "n",
		Repo:  "AleutianAI/collector-layers",
	})
	require.NoError(t, err)

	assert.Contains(t, gh.args, "--repo")
	assert.Contains(t, gh.args, "AleutianAI/collector-layers")
}

func TestCreateMissingTag(t *testing.T) {
	err := Create(context.Background(), &fakeGH{}, CreateOptions{Title: "T"})
	require.ErrorIs(t, err, ErrMissingTag)
}

func TestCreateGHFailure(t *testing.T) {
	gh := &fakeGH{err: errors.New("gh: not logged in")}

	err := Create(context.Background(), gh, CreateOptions{Tag: "t", Title: "T", Notes: "n"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gh release create t")
	assert.Contains(t, err.Error(), "not logged in")
}
