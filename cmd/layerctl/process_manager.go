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
Package main provides ProcessManager for abstracting external process execution.

ProcessManager enables testable interaction with the external toolchain. All
exec.Command calls in the build and release code (git, go, make, gh) go
through this interface to enable mocking in unit tests.

# Design Rationale

Direct calls to exec.Command are not testable because they execute real
processes. By abstracting process execution behind an interface, we can:
  - Mock process execution in tests
  - Capture and verify command invocations, working directories, and env
  - Simulate success/failure scenarios without a real toolchain
*/
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ProcessManager handles external process operations.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context for cancellation and timeout support.
// Long-running processes (collector builds take minutes) must respect
// context cancellation.
type ProcessManager interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Captured stdout
	//   - error: Non-nil if the command fails or is cancelled; stderr is
	//     folded into the error message
	//
	// # Examples
	//
	//   output, err := pm.Run(ctx, "git", "clone", "--depth", "1", url, dir)
	//   if err != nil {
	//       return fmt.Errorf("failed to clone upstream: %w", err)
	//   }
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunIn executes a command synchronously in the given working directory.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory for the process ("" means inherit)
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Examples
	//
	//   _, err := pm.RunIn(ctx, collectorDir, "go", "mod", "tidy")
	RunIn(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunWithEnv executes a command in a directory with extra environment
	// variables appended to the inherited environment.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory for the process ("" means inherit)
	//   - env: Extra environment entries in KEY=VALUE form
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Examples
	//
	//   env := []string{"GOARCH=arm64", "BUILDTAGS=" + tags}
	//   _, err := pm.RunWithEnv(ctx, collectorDir, env, "make", "package")
	RunWithEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

	// RunWithInput executes a command with data piped to stdin.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - input: Data to write to stdin
	//   - args: Command arguments (variadic)
	//
	// # Examples
	//
	//   // gh reads the release notes from stdin with --notes-file -
	//   _, err := pm.RunWithInput(ctx, "gh", notes, "release", "create", tag, "--notes-file", "-")
	//
	// # Limitations
	//
	//   - Input is fully buffered in memory before being written
	RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec.
//
// This is the production implementation that executes real processes on the
// system. Use MockProcessManager in tests instead.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates a ProcessManager that executes real
// processes using os/exec.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command synchronously and returns its output.
func (pm *DefaultProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return pm.RunIn(ctx, "", name, args...)
}

// RunIn executes a command in the given working directory.
func (pm *DefaultProcessManager) RunIn(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunWithEnv executes a command in a directory with extra environment
// variables appended to the inherited environment.
func (pm *DefaultProcessManager) RunWithEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunWithInput executes a command with data piped to stdin.
func (pm *DefaultProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it will panic.
//
// # Examples
//
//	mock := &MockProcessManager{
//	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
//	        if name == "git" && args[0] == "clone" {
//	            return nil, nil
//	        }
//	        return nil, fmt.Errorf("unexpected command: %s", name)
//	    },
//	}
type MockProcessManager struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInFunc is called when RunIn is invoked
	RunInFunc func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

	// RunWithEnvFunc is called when RunWithEnv is invoked
	RunWithEnvFunc func(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)

	// RunWithInputFunc is called when RunWithInput is invoked
	RunWithInputFunc func(ctx context.Context, name string, input []byte, args ...string) ([]byte, error)

	// Calls records all method invocations for verification
	Calls []ProcessManagerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// ProcessManagerCall records a single method invocation.
type ProcessManagerCall struct {
	Method string
	Name   string
	Args   []string
	Dir    string
	Env    []string
	Input  []byte
}

// Run delegates to RunFunc and records the call.
func (m *MockProcessManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockProcessManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunIn delegates to RunInFunc and records the call.
func (m *MockProcessManager) RunIn(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "RunIn", Name: name, Args: args, Dir: dir})
	if m.RunInFunc == nil {
		panic("MockProcessManager.RunInFunc not set")
	}
	return m.RunInFunc(ctx, dir, name, args...)
}

// RunWithEnv delegates to RunWithEnvFunc and records the call.
func (m *MockProcessManager) RunWithEnv(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "RunWithEnv", Name: name, Args: args, Dir: dir, Env: env})
	if m.RunWithEnvFunc == nil {
		panic("MockProcessManager.RunWithEnvFunc not set")
	}
	return m.RunWithEnvFunc(ctx, dir, env, name, args...)
}

// RunWithInput delegates to RunWithInputFunc and records the call.
func (m *MockProcessManager) RunWithInput(ctx context.Context, name string, input []byte, args ...string) ([]byte, error) {
	m.record(ProcessManagerCall{Method: "RunWithInput", Name: name, Args: args, Input: input})
	if m.RunWithInputFunc == nil {
		panic("MockProcessManager.RunWithInputFunc not set")
	}
	return m.RunWithInputFunc(ctx, name, input, args...)
}

func (m *MockProcessManager) record(call ProcessManagerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockProcessManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []ProcessManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
