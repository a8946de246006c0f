// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"sync"
	"time"
)

// StepStatus is the lifecycle state of one tracked step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepDone
	StepFailed
	StepSkipped
)

// StepTracker prints progress through a fixed sequence of pipeline steps.
//
// Each transition prints one line, so output reads as a log in CI and as a
// checklist on a terminal. Indexing is zero-based; out-of-range indexes are
// ignored rather than panicking mid-pipeline.
type StepTracker struct {
	mu      sync.Mutex
	steps   []string
	status  []StepStatus
	started []time.Time
}

// NewStepTracker creates a tracker and prints the plan header.
func NewStepTracker(title string, steps ...string) *StepTracker {
	t := &StepTracker{
		steps:   steps,
		status:  make([]StepStatus, len(steps)),
		started: make([]time.Time, len(steps)),
	}
	Header(title)
	return t
}

// Start marks step i as running.
func (t *StepTracker) Start(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.steps) {
		return
	}
	t.status[i] = StepRunning
	t.started[i] = time.Now()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("STEP %d/%d start: %s\n", i+1, len(t.steps), t.steps[i])
		return
	}
	fmt.Printf("%s %s %s\n", IconRunning.Render(), t.label(i), t.steps[i])
}

// Done marks step i as completed.
func (t *StepTracker) Done(i int) {
	t.DoneDetail(i, "")
}

// DoneDetail marks step i as completed with a trailing detail note.
func (t *StepTracker) DoneDetail(i int, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.steps) {
		return
	}
	t.status[i] = StepDone
	elapsed := t.elapsed(i)
	if GetPersonality().Level == PersonalityMachine {
		if detail != "" {
			fmt.Printf("STEP %d/%d ok: %s (%s)\n", i+1, len(t.steps), t.steps[i], detail)
		} else {
			fmt.Printf("STEP %d/%d ok: %s\n", i+1, len(t.steps), t.steps[i])
		}
		return
	}
	line := fmt.Sprintf("%s %s %s", IconSuccess.Render(), t.label(i), t.steps[i])
	if detail != "" {
		line += " " + Styles.Muted.Render("("+detail+")")
	} else if elapsed != "" {
		line += " " + Styles.Muted.Render("("+elapsed+")")
	}
	fmt.Println(line)
}

// Fail marks step i as failed and prints the error.
func (t *StepTracker) Fail(i int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.steps) {
		return
	}
	t.status[i] = StepFailed
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("STEP %d/%d fail: %s: %v\n", i+1, len(t.steps), t.steps[i], err)
		return
	}
	fmt.Printf("%s %s %s %s\n", IconError.Render(), t.label(i), t.steps[i],
		Styles.Error.Render(fmt.Sprintf("(%v)", err)))
}

// Skip marks step i as skipped with a reason.
func (t *StepTracker) Skip(i int, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.steps) {
		return
	}
	t.status[i] = StepSkipped
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("STEP %d/%d skip: %s (%s)\n", i+1, len(t.steps), t.steps[i], reason)
		return
	}
	fmt.Printf("%s %s %s %s\n", IconPending.Render(), t.label(i), t.steps[i],
		Styles.Muted.Render("(skipped: "+reason+")"))
}

// Failed reports whether any step has failed so far.
func (t *StepTracker) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.status {
		if s == StepFailed {
			return true
		}
	}
	return false
}

// Status returns the current status of step i (StepPending when out of range).
func (t *StepTracker) Status(i int) StepStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.status) {
		return StepPending
	}
	return t.status[i]
}

func (t *StepTracker) label(i int) string {
	return Styles.Muted.Render(fmt.Sprintf("[%d/%d]", i+1, len(t.steps)))
}

func (t *StepTracker) elapsed(i int) string {
	if t.started[i].IsZero() {
		return ""
	}
	d := time.Since(t.started[i])
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
