// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bpowers/ndb"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

var errNotFound = errors.New("not found")

var lookupDataDir string

var lookupCommand = &cobra.Command{
	Use:   "lookup KIND KEY...",
	Short: "Look keys up in a database",
	Long: "Look keys up in a database.  Keys are IP addresses or integers for the\n" +
		"ip kinds, MAC addresses for oui, AS numbers, country codes or ports.",
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := lookupDataDir
		if !cmd.Flags().Changed("data-dir") {
			dir = cfg.DataDir
		}
		db, err := openKind(dir, args[0], logger)
		if err != nil {
			return err
		}
		return lookup(cmd.OutOrStdout(), db, args[1:], logger)
	},
}

func init() {
	lookupCommand.Flags().StringVarP(&lookupDataDir, "data-dir", "d", "", "directory containing the .bin files")
	mainCommand.AddCommand(lookupCommand)
}

func openKind(dir, kind string, logger *slog.Logger) (registry.Database, error) {
	k, err := registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	return ndb.Open(filepath.Join(dir, k.BinName), ndb.WithLogger(logger))
}

// lookup writes the record matching each key as CSV, with the key in the
// first column.  It fails if any key is missing.
func lookup(w io.Writer, db registry.Database, keys []string, logger *slog.Logger) error {
	var missing int
	var rows [][]string
	for _, key := range keys {
		rec, ok, err := db.Query(key)
		if err != nil {
			return err
		}
		if !ok {
			missing++
			logger.Warn("no match", "kind", db.Kind(), "key", key)
			continue
		}
		rows = append(rows, append([]string{key}, rec...))
	}
	header := append([]string{"key"}, db.Header()...)
	if err := tabular.Write(w, header, slices.Values(rows)); err != nil {
		return err
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d keys: %w", missing, len(keys), errNotFound)
	}
	return nil
}
