// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/cavaliergopher/grab/v3"
	"github.com/spf13/cobra"

	"github.com/bpowers/ndb/registry"
)

var fetchOutputDir string

var fetchCommand = &cobra.Command{
	Use:   "fetch",
	Short: "Download the CSV sources listed in the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := fetchOutputDir
		if !cmd.Flags().Changed("output-dir") {
			dir = cfg.InputDir
		}
		return fetch(cmd.Context(), grab.NewClient(), dir, cfg.Sources, logger)
	},
}

func init() {
	fetchCommand.Flags().StringVarP(&fetchOutputDir, "output-dir", "o", "", "directory to download the CSV files to")
	mainCommand.AddCommand(fetchCommand)
}

// fetch downloads each source URL to dir under its CSV file name.
func fetch(ctx context.Context, client *grab.Client, dir string, sources map[string]string, logger *slog.Logger) error {
	if len(sources) == 0 {
		logger.Warn("no sources configured")
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(sources)) {
		if _, ok := registry.ByCSVName(name); !ok {
			logger.Warn("source is not a known CSV file, update will skip it", "name", name)
		}
		url := sources[name]
		req, err := grab.NewRequest(filepath.Join(dir, name), url)
		if err != nil {
			return fmt.Errorf("grab.NewRequest(%s): %w", url, err)
		}
		req = req.WithContext(ctx)
		// always replace the previous download
		req.NoResume = true

		logger.Info("downloading", "name", name, "url", url)
		resp := client.Do(req)
		if err := resp.Err(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Info("downloaded", "name", name, "path", resp.Filename, "bytes", resp.BytesComplete())
	}
	return nil
}
