// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// generate_distribution_docs generates a markdown reference for the shipped
// distributions from config/distributions.yaml and
// config/component_dependencies.yaml.
//
// Usage:
//
//	go run scripts/generate_distribution_docs.go > docs/distributions.md
//
// The generated documentation includes:
//   - Per-distribution build tags after base-chain resolution
//   - Go modules each distribution pulls into the upstream build
//   - Summary statistics
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DistributionsYAML is the root structure of distributions.yaml.
type DistributionsYAML struct {
	Distributions map[string]DistributionEntryYAML `yaml:"distributions"`
}

// DistributionEntryYAML is a single distribution definition.
type DistributionEntryYAML struct {
	BuildTags   []string `yaml:"buildtags"`
	Base        string   `yaml:"base,omitempty"`
	Description string   `yaml:"description,omitempty"`
}

// DependenciesYAML is the root structure of component_dependencies.yaml.
// Values may be a single module path or a list; yaml.v3 decodes either
// into the any slot and normalizeModules flattens it.
type DependenciesYAML struct {
	Dependencies map[string]any `yaml:"dependencies"`
}

func main() {
	dists := loadDistributions("config/distributions.yaml")
	deps := loadDependencies("config/component_dependencies.yaml")

	generateMarkdown(dists, deps)
}

func loadDistributions(path string) map[string]DistributionEntryYAML {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	var f DistributionsYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}
	return f.Distributions
}

func loadDependencies(path string) map[string][]string {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]string{}
		}
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	var f DependenciesYAML
	if err := yaml.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", path, err)
		os.Exit(1)
	}

	out := make(map[string][]string, len(f.Dependencies))
	for tag, v := range f.Dependencies {
		out[tag] = normalizeModules(v)
	}
	return out
}

// normalizeModules accepts a scalar module path or a list of them.
func normalizeModules(v any) []string {
	switch m := v.(type) {
	case string:
		return []string{m}
	case []any:
		var list []string
		for _, item := range m {
			if s, ok := item.(string); ok {
				list = append(list, s)
			}
		}
		return list
	default:
		return nil
	}
}

// resolveTags walks the base chain root-first and deduplicates, the same
// order `layerctl build` uses.
func resolveTags(name string, dists map[string]DistributionEntryYAML) []string {
	var chain []string
	visited := map[string]bool{}
	for current := name; current != "" && !visited[current]; {
		visited[current] = true
		chain = append(chain, current)
		current = dists[current].Base
	}

	var tags []string
	seen := map[string]bool{}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, tag := range dists[chain[i]].BuildTags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

// modulesFor returns the Go modules the active tags pull in, mirroring the
// hierarchical matching the build uses.
func modulesFor(tags []string, deps map[string][]string) []string {
	keys := make([]string, 0, len(deps))
	for k := range deps {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	active := map[string]bool{}
	globalAll := false
	var groupPrefixes []string
	for _, tag := range tags {
		active[tag] = true
		if tag == "lambdacomponents.all" {
			globalAll = true
		} else if prefix, ok := strings.CutSuffix(tag, ".all"); ok {
			groupPrefixes = append(groupPrefixes, prefix+".")
		}
	}

	var modules []string
	seen := map[string]bool{}
	for _, key := range keys {
		include := active[key] || globalAll
		if !include {
			for _, prefix := range groupPrefixes {
				if strings.HasPrefix(key, prefix) {
					include = true
					break
				}
			}
		}
		if !include {
			if prefix, ok := strings.CutSuffix(key, ".all"); ok {
				for _, tag := range tags {
					if strings.HasPrefix(tag, prefix+".") {
						include = true
						break
					}
				}
			}
		}
		if !include {
			continue
		}
		for _, mod := range deps[key] {
			if !seen[mod] {
				seen[mod] = true
				modules = append(modules, mod)
			}
		}
	}
	return modules
}

// generateMarkdown outputs the full markdown documentation.
func generateMarkdown(dists map[string]DistributionEntryYAML, deps map[string][]string) {
	names := make([]string, 0, len(dists))
	for name := range dists {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("# Distribution Reference")
	fmt.Println()
	fmt.Println("## Overview")
	fmt.Println()
	fmt.Println("This document lists every layer distribution this repository can build.")
	fmt.Println("Distributions are defined in `config/distributions.yaml`; component Go module")
	fmt.Println("requirements come from `config/component_dependencies.yaml`.")
	fmt.Println()
	fmt.Printf("**Generated:** %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	withBase := 0
	moduleSet := map[string]bool{}
	for _, name := range names {
		if dists[name].Base != "" {
			withBase++
		}
		for _, mod := range modulesFor(resolveTags(name, dists), deps) {
			moduleSet[mod] = true
		}
	}

	fmt.Println("## Summary Statistics")
	fmt.Println()
	fmt.Println("| Metric | Count |")
	fmt.Println("|--------|-------|")
	fmt.Printf("| Distributions | %d |\n", len(names))
	fmt.Printf("| With Base Inheritance | %d |\n", withBase)
	fmt.Printf("| Mapped Dependency Tags | %d |\n", len(deps))
	fmt.Printf("| Referenced Go Modules | %d |\n", len(moduleSet))
	fmt.Println()

	fmt.Println("## Distributions")
	fmt.Println()
	for _, name := range names {
		entry := dists[name]
		fmt.Printf("### %s\n", name)
		fmt.Println()
		if entry.Description != "" {
			fmt.Println(entry.Description)
			fmt.Println()
		}
		if entry.Base != "" {
			fmt.Printf("**Base:** `%s`\n", entry.Base)
			fmt.Println()
		}

		tags := resolveTags(name, dists)
		if len(tags) == 0 {
			fmt.Println("**Build Tags:** none (stock upstream build)")
		} else {
			fmt.Println("**Build Tags:**")
			fmt.Println()
			for _, tag := range tags {
				fmt.Printf("- `%s`\n", tag)
			}
		}
		fmt.Println()

		modules := modulesFor(tags, deps)
		if len(modules) > 0 {
			fmt.Println("**Additional Go Modules:**")
			fmt.Println()
			for _, mod := range modules {
				fmt.Printf("- `%s`\n", mod)
			}
			fmt.Println()
		}

		fmt.Println("**Build:**")
		fmt.Println()
		fmt.Println("```bash")
		fmt.Printf("layerctl build --distribution %s --arch amd64\n", name)
		fmt.Println("```")
		fmt.Println()
	}
}
