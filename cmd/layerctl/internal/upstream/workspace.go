// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package upstream

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is a temporary build directory holding the upstream checkout.
type Workspace struct {
	// Root is the temp directory everything lives under.
	Root string

	// Keep disables cleanup on Close so the checkout can be inspected.
	Keep bool
}

// NewWorkspace creates the temp build directory.
func NewWorkspace(keep bool) (*Workspace, error) {
	root, err := os.MkdirTemp("", "layerctl-build-")
	if err != nil {
		return nil, fmt.Errorf("creating build workspace: %w", err)
	}
	return &Workspace{Root: root, Keep: keep}, nil
}

// UpstreamDir is where the upstream repository is cloned.
func (w *Workspace) UpstreamDir() string {
	return filepath.Join(w.Root, "upstream")
}

// CollectorDir is the collector subproject inside the checkout. make and go
// commands run here.
func (w *Workspace) CollectorDir() string {
	return filepath.Join(w.UpstreamDir(), "collector")
}

// Close removes the workspace unless Keep is set.
func (w *Workspace) Close() error {
	if w.Keep {
		return nil
	}
	return os.RemoveAll(w.Root)
}
