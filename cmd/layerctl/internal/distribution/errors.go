// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package distribution resolves named build-tag presets.
//
// A distribution is a named set of Go build tags in distributions.yaml that
// selects which collector components are compiled into a layer. Distributions
// may inherit from another distribution through a `base` key; resolution
// walks the chain to the root and accumulates tags base-first.
//
// # Thread Safety
//
// A File is immutable after Load and safe for concurrent reads.
package distribution

import (
	"errors"
	"fmt"
)

// Sentinel errors for distribution resolution.
var (
	// ErrNotFound is returned when a distribution name is not present in the
	// file. Callers that want lenient behavior (release info falls back to
	// the default distribution) branch on this.
	ErrNotFound = errors.New("unknown distribution")

	// ErrBaseCycle is returned when the base chain loops back on itself.
	ErrBaseCycle = errors.New("distribution base chain contains a cycle")

	// ErrBaseNotFound is returned when a base references a distribution that
	// does not exist.
	ErrBaseNotFound = errors.New("distribution base not found")
)

// ResolveError wraps a resolution failure with the distribution that was
// being resolved.
type ResolveError struct {
	// Distribution is the name resolution started from.
	Distribution string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolving distribution %q: %v", e.Distribution, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ResolveError) Unwrap() error {
	return e.Err
}
