// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package components inventories collector components by their build
constraints.

Upstream gates each optional component file behind a //go:build line like

	//go:build lambdacomponents.custom && (lambdacomponents.all || lambdacomponents.exporter.clickhouse)

Scanning those first lines yields the set of components a custom build can
include, which CompareTable renders against the upstream default build.
*/
package components

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set maps component type (exporter, processor, ...) to sorted component
// names.
type Set map[string][]string

var componentTypes = []string{"connector", "exporter", "extension", "processor", "receiver"}

// Scan walks dir/lambdacomponents/{type}/*.go and collects the components
// whose build constraint makes them part of a custom build. dir is the
// collector directory (the one containing lambdacomponents). Missing type
// directories and files without a usable constraint are skipped.
func Scan(dir string) (Set, error) {
	root := filepath.Join(dir, "lambdacomponents")
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("component scan root %s: %w", root, err)
	}

	set := Set{}
	for _, typ := range componentTypes {
		typeDir := filepath.Join(root, typ)
		entries, err := os.ReadDir(typeDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading component directory %s: %w", typeDir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".go") {
				continue
			}
			if name == "pkg.go" || strings.HasSuffix(name, "_test.go") {
				continue
			}
			if !hasCustomConstraint(filepath.Join(typeDir, name)) {
				continue
			}
			set[typ] = append(set[typ], strings.TrimSuffix(name, ".go"))
		}
		sort.Strings(set[typ])
	}
	return set, nil
}

// hasCustomConstraint reports whether the file's first line is a go:build
// constraint selecting the file into custom builds. Unreadable files and
// files without a constraint are simply not components.
func hasCustomConstraint(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	line := string(data)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)

	if !strings.HasPrefix(line, "//go:build") {
		return false
	}
	if !strings.Contains(line, "lambdacomponents.custom") {
		return false
	}
	if strings.Contains(line, "lambdacomponents.all") {
		return true
	}
	for _, typ := range componentTypes {
		if strings.Contains(line, "."+typ+".") {
			return true
		}
	}
	return false
}

// DefaultSet returns the component inventory of the upstream default build.
// Kept in step with upstream's collector/lambdacomponents/default.go by hand;
// change it when upstream changes theirs.
func DefaultSet() Set {
	return Set{
		"receiver": {"otlp", "telemetryapi"},
		"exporter": {"debug", "otlp", "otlphttp", "prometheusremotewrite"},
		"processor": {
			"attributes", "batch", "coldstart", "decouple", "filter",
			"memorylimiter", "probabilisticsampler", "resource", "span",
		},
		"extension": {"basicauth", "sigv4auth"},
		"connector": {},
	}
}

// CompareTable renders the custom-vs-default component comparison as
// Markdown: one section per component type, rows sorted, a check mark where
// the component is part of that build.
func CompareTable(custom, defaults Set) string {
	types := map[string]bool{}
	for typ := range custom {
		types[typ] = true
	}
	for typ := range defaults {
		types[typ] = true
	}
	sortedTypes := make([]string, 0, len(types))
	for typ := range types {
		sortedTypes = append(sortedTypes, typ)
	}
	sort.Strings(sortedTypes)

	var b strings.Builder
	b.WriteString("# OpenTelemetry Lambda Collector Components Comparison\n\n")
	b.WriteString("## Comparison between default and custom builds\n\n")

	for _, typ := range sortedTypes {
		fmt.Fprintf(&b, "### %ss\n\n", capitalize(typ))
		b.WriteString("| Component Name | Default Build | Custom Build |\n")
		b.WriteString("|---------------|--------------|------------|\n")

		names := map[string]bool{}
		for _, n := range custom[typ] {
			names[n] = true
		}
		for _, n := range defaults[typ] {
			names[n] = true
		}
		sortedNames := make([]string, 0, len(names))
		for n := range names {
			sortedNames = append(sortedNames, n)
		}
		sort.Strings(sortedNames)

		for _, n := range sortedNames {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", n, mark(defaults[typ], n), mark(custom[typ], n))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func mark(names []string, want string) string {
	for _, n := range names {
		if n == want {
			return "✓"
		}
	}
	return " "
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
