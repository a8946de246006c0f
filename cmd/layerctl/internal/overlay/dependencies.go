// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package overlay

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Runner runs external commands in a working directory. Satisfied by the
// CLI's ProcessManager implementations.
type Runner interface {
	RunIn(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// ModuleList accepts either a single module path or a list in YAML.
type ModuleList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *ModuleList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*m = ModuleList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*m = ModuleList(list)
		return nil
	default:
		return fmt.Errorf("dependency value must be a module path or a list, got YAML kind %d", value.Kind)
	}
}

// globalComponentTag activates every entry in the dependency map.
const globalComponentTag = "lambdacomponents.all"

// DependencyMap maps build tags to the Go modules they require.
//
// Matching is hierarchical from both sides: an exact tag, a group key like
// `lambdacomponents.exporter.all` (covers any active tag under that prefix),
// an active `X.all` tag (covers any key under `X.`), and the active global
// `lambdacomponents.all` tag, which pulls in every key.
type DependencyMap struct {
	Dependencies map[string]ModuleList `yaml:"dependencies"`
}

// LoadDependencyMap reads component_dependencies.yaml. An absent file is not
// an error; it yields an empty map.
func LoadDependencyMap(path string) (*DependencyMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &DependencyMap{Dependencies: map[string]ModuleList{}}, nil
		}
		return nil, fmt.Errorf("reading dependency map %s: %w", path, err)
	}

	var m DependencyMap
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing dependency map %s: %w", path, err)
	}
	if m.Dependencies == nil {
		m.Dependencies = map[string]ModuleList{}
	}
	return &m, nil
}

// Match returns the modules required by the given build tags, deduplicated,
// in deterministic (key-sorted) order.
func (m *DependencyMap) Match(tags []string) []string {
	keys := make([]string, 0, len(m.Dependencies))
	for k := range m.Dependencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var modules []string
	seen := map[string]bool{}
	for _, key := range keys {
		if !keyMatches(key, tags) {
			continue
		}
		for _, mod := range m.Dependencies[key] {
			if !seen[mod] {
				seen[mod] = true
				modules = append(modules, mod)
			}
		}
	}
	return modules
}

// keyMatches reports whether a dependency key applies to any of the tags.
func keyMatches(key string, tags []string) bool {
	for _, tag := range tags {
		if tag == key || tag == globalComponentTag {
			return true
		}
		if prefix, ok := strings.CutSuffix(tag, ".all"); ok && strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	if prefix, ok := strings.CutSuffix(key, ".all"); ok {
		for _, tag := range tags {
			if strings.HasPrefix(tag, prefix+".") {
				return true
			}
		}
	}
	return false
}

// AppliedModule reports how one module was added to the upstream go.mod.
type AppliedModule struct {
	Module string

	// Fallback is true when the version pinned to the collector release was
	// unavailable and the unversioned latest was fetched instead.
	Fallback bool
}

// Apply runs `go get` for each module inside the collector directory,
// pinning to the collector version and falling back to the untagged latest
// when the pinned version does not exist, then runs one `go mod tidy`.
//
// An empty module list is a no-op. A tidy failure is fatal because the
// upstream build would fail later with a worse message.
func Apply(ctx context.Context, runner Runner, collectorDir string, modules []string, version string) ([]AppliedModule, error) {
	if len(modules) == 0 {
		return nil, nil
	}

	version = strings.TrimPrefix(version, "v")

	applied := make([]AppliedModule, 0, len(modules))
	for _, module := range modules {
		pinned := fmt.Sprintf("%s@v%s", module, version)
		if _, err := runner.RunIn(ctx, collectorDir, "go", "get", pinned); err != nil {
			if _, err := runner.RunIn(ctx, collectorDir, "go", "get", module); err != nil {
				return applied, fmt.Errorf("go get %s: %w", module, err)
			}
			applied = append(applied, AppliedModule{Module: module, Fallback: true})
			continue
		}
		applied = append(applied, AppliedModule{Module: module})
	}

	if _, err := runner.RunIn(ctx, collectorDir, "go", "mod", "tidy"); err != nil {
		return applied, fmt.Errorf("go mod tidy: %w", err)
	}
	return applied, nil
}
