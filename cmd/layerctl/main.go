// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/layerctl/cmd/layerctl/config"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/ghactions"
	"github.com/AleutianAI/layerctl/cmd/layerctl/internal/telemetry"
	"github.com/AleutianAI/layerctl/pkg/logging"
	"github.com/AleutianAI/layerctl/pkg/ux"
)

var (
	log               = logging.Default()
	telemetryShutdown func(context.Context) error
)

func main() {
	// SIGINT/SIGTERM cancel the command context so in-flight AWS calls and
	// subprocesses get a chance to stop cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	shutdownTelemetry()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if machineFlag {
			ux.SetPersonalityLevel(ux.PersonalityMachine)
		} else {
			ux.InitPersonality()
		}

		levelName := logLevelFlag
		if verboseFlag {
			levelName = "debug"
		}
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return err
		}
		log = logging.New(logging.Config{
			Level:   level,
			Service: "layerctl",
			Quiet:   quietFlag,
		})
		ghactions.SetLogger(log)

		if err := config.Load(cfgFile); err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		shutdown, err := telemetry.Init(cmd.Context(), telemetry.DefaultConfig())
		if err != nil {
			log.Warn("telemetry disabled", "error", err)
		} else {
			telemetryShutdown = shutdown
		}
		return nil
	}
}

// exitErr reports a fatal command error and exits non-zero.
func exitErr(err error) {
	ux.Error(err.Error())
	log.Error("command failed", "error", err)
	shutdownTelemetry()
	os.Exit(1)
}

func shutdownTelemetry() {
	if telemetryShutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := telemetryShutdown(ctx); err != nil {
		log.Debug("telemetry shutdown", "error", err)
	}
	telemetryShutdown = nil
}
