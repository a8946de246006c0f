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
Package ghactions writes step outputs and job summaries when running inside
GitHub Actions.

Outside Actions the GITHUB_OUTPUT and GITHUB_STEP_SUMMARY files do not exist
and every write degrades to a debug-logged no-op, so the same commands run
unchanged on a laptop and in CI.
*/
package ghactions

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/layerctl/pkg/logging"
)

const (
	outputEnv  = "GITHUB_OUTPUT"
	summaryEnv = "GITHUB_STEP_SUMMARY"
)

var log = logging.Default()

// SetLogger routes this package's debug messages through the CLI's logger.
func SetLogger(l *logging.Logger) {
	if l != nil {
		log = l
	}
}

// SetOutput appends key=value to the step output file. Values containing
// newlines are written as a heredoc block so they survive the line-oriented
// format. Outside Actions this is a no-op.
func SetOutput(key, value string) error {
	path := os.Getenv(outputEnv)
	if path == "" {
		log.Debug("GITHUB_OUTPUT not set, skipping output", "key", key)
		return nil
	}
	if strings.Contains(value, "\n") {
		return appendHeredoc(path, key, value)
	}
	return appendFile(path, fmt.Sprintf("%s=%s\n", key, value))
}

// SetJSONOutput marshals v to single-line JSON and writes it as a heredoc
// output, the form workflow `fromJSON()` expressions consume.
func SetJSONOutput(key string, v any) error {
	path := os.Getenv(outputEnv)
	if path == "" {
		log.Debug("GITHUB_OUTPUT not set, skipping output", "key", key)
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling output %s: %w", key, err)
	}
	return appendHeredoc(path, key, string(data))
}

// AppendSummary appends Markdown to the job summary. Outside Actions this is
// a no-op.
func AppendSummary(md string) error {
	path := os.Getenv(summaryEnv)
	if path == "" {
		log.Debug("GITHUB_STEP_SUMMARY not set, skipping summary")
		return nil
	}
	if !strings.HasSuffix(md, "\n") {
		md += "\n"
	}
	return appendFile(path, md)
}

// SummaryTable renders a titled Markdown table for AppendSummary. Short rows
// are padded to the header width.
func SummaryTable(title string, headers []string, rows [][]string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "### %s\n\n", title)
	}

	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

// appendHeredoc writes key<<EOF_{uuid} ... EOF_{uuid}. A fresh delimiter per
// write keeps arbitrary values from terminating the block early.
func appendHeredoc(path, key, value string) error {
	delim := "EOF_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var b strings.Builder
	fmt.Fprintf(&b, "%s<<%s\n", key, delim)
	b.WriteString(value)
	if !strings.HasSuffix(value, "\n") {
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "%s\n", delim)
	return appendFile(path, b.String())
}

func appendFile(path, content string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
