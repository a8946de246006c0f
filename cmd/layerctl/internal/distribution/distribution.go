// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package distribution

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Spec is one distribution entry in distributions.yaml.
type Spec struct {
	// BuildTags are this distribution's own tags, appended after the tags
	// inherited from Base.
	BuildTags []string `yaml:"buildtags"`

	// Base names another distribution whose resolved tags come first.
	Base string `yaml:"base,omitempty"`

	// Description is free text shown in help output and reports.
	Description string `yaml:"description,omitempty"`
}

// File is the parsed distributions.yaml.
type File struct {
	Distributions map[string]Spec `yaml:"distributions"`
}

// Load reads and parses a distributions file.
//
// A missing file and malformed YAML are distinct wrapped errors so callers
// can tell configuration absence from corruption.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading distributions file %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing distributions file %s: %w", path, err)
	}
	if f.Distributions == nil {
		f.Distributions = map[string]Spec{}
	}
	return &f, nil
}

// Names returns all distribution names, sorted.
func (f *File) Names() []string {
	names := make([]string, 0, len(f.Distributions))
	for name := range f.Distributions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a distribution exists.
func (f *File) Has(name string) bool {
	_, ok := f.Distributions[name]
	return ok
}

// Resolve returns the full build-tag list for a distribution.
//
// The base chain is walked from the named distribution to its root. Tags
// accumulate base-first, then the child's own tags, deduplicated preserving
// first-seen order. A distribution with no base and no tags resolves to an
// empty, non-nil slice.
func (f *File) Resolve(name string) ([]string, error) {
	if _, ok := f.Distributions[name]; !ok {
		return nil, &ResolveError{
			Distribution: name,
			Err:          fmt.Errorf("%w (known: %s)", ErrNotFound, strings.Join(f.Names(), ", ")),
		}
	}

	// Walk child -> root, recording the chain.
	var chain []string
	visited := map[string]bool{}
	current := name
	for current != "" {
		if visited[current] {
			return nil, &ResolveError{
				Distribution: name,
				Err:          fmt.Errorf("%w: %q", ErrBaseCycle, current),
			}
		}
		visited[current] = true
		chain = append(chain, current)

		base := f.Distributions[current].Base
		if base != "" {
			if _, ok := f.Distributions[base]; !ok {
				return nil, &ResolveError{
					Distribution: name,
					Err:          fmt.Errorf("%w: %q (referenced by %q)", ErrBaseNotFound, base, current),
				}
			}
		}
		current = base
	}

	// Accumulate root -> child, dropping duplicates.
	tags := []string{}
	seen := map[string]bool{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, tag := range f.Distributions[chain[i]].BuildTags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags, nil
}
