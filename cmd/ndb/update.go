// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bpowers/ndb"
	"github.com/bpowers/ndb/registry"
)

type updateOptions struct {
	inputDir  string
	outputDir string
	dryRun    bool
	strict    bool
}

var updateFlags updateOptions

var updateCommand = &cobra.Command{
	Use:   "update",
	Short: "Rebuild the .bin databases from the CSV files in the input directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := updateFlags
		if !cmd.Flags().Changed("input-dir") {
			opts.inputDir = cfg.InputDir
		}
		if !cmd.Flags().Changed("output-dir") {
			opts.outputDir = cfg.OutputDir
		}
		if !cmd.Flags().Changed("strict") {
			opts.strict = cfg.Strict
		}
		_, err := update(cmd.Context(), opts, logger)
		return err
	},
}

func init() {
	updateCommand.Flags().StringVarP(&updateFlags.inputDir, "input-dir", "i", "", "directory containing the CSV files")
	updateCommand.Flags().StringVarP(&updateFlags.outputDir, "output-dir", "o", "", "directory to write the .bin files to")
	updateCommand.Flags().BoolVar(&updateFlags.dryRun, "dry-run", false, "build and encode, but write nothing")
	updateCommand.Flags().BoolVar(&updateFlags.strict, "strict", false, "reject overlapping ranges and duplicate keys")
	mainCommand.AddCommand(updateCommand)
}

// update builds every known CSV file in the input directory and returns
// the kinds it built.  Files of no registered kind are skipped.
func update(ctx context.Context, opts updateOptions, logger *slog.Logger) ([]string, error) {
	entries, err := os.ReadDir(opts.inputDir)
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}
	if !opts.dryRun {
		if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
			return nil, fmt.Errorf("os.MkdirAll: %w", err)
		}
	}

	var built []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return built, err
		}
		if entry.IsDir() {
			continue
		}
		k, ok := registry.ByCSVName(entry.Name())
		if !ok {
			logger.Debug("skipping unknown file", "name", entry.Name())
			continue
		}
		if err := updateKind(k, opts, logger); err != nil {
			return built, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		built = append(built, k.Name)
	}
	return built, nil
}

func updateKind(k *registry.Kind, opts updateOptions, logger *slog.Logger) error {
	src := filepath.Join(opts.inputDir, k.CSVName)
	logger.Info("processing", "kind", k.Name, "path", src)

	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	db, err := k.FromCSV(f, registry.BuildOptions{Strict: opts.strict})
	if err != nil {
		return err
	}

	if opts.dryRun {
		data, err := ndb.Encode(db)
		if err != nil {
			return err
		}
		logger.Info("dry run, not writing", "kind", k.Name, "entries", db.Len(), "bytes", len(data))
		return nil
	}
	return ndb.WriteFile(filepath.Join(opts.outputDir, k.BinName), db, ndb.WithLogger(logger))
}
