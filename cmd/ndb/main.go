// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// ndb builds, inspects and exports the network lookup databases.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/bpowers/ndb/dict"
	"github.com/bpowers/ndb/internal/config"
	_ "github.com/bpowers/ndb/ipdb"
	_ "github.com/bpowers/ndb/oui"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var mainCommand = &cobra.Command{
	Use:               "ndb",
	Short:             "Build and query network lookup databases",
	SilenceUsage:      true,
	PersistentPreRunE: preRun,
}

func init() {
	mainCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: configs/ndb.yaml or ndb.yaml if present)")
	mainCommand.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func preRun(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	level, err := c.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	cfg = c
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mainCommand.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
