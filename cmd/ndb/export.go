// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/netip"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/ndb/internal/sqlexport"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

type exportOptions struct {
	dataDir string
	format  string
	output  string
}

var exportFlags exportOptions

var exportCommand = &cobra.Command{
	Use:   "export KIND...",
	Short: "Export databases as CSV, CIDR lists or a SQLite file",
	Long: "Export databases.  csv reproduces the input format, cidr lists the ip\n" +
		"kinds as prefixes, and sqlite writes one table per kind to --output.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := exportFlags
		if !cmd.Flags().Changed("data-dir") {
			opts.dataDir = cfg.DataDir
		}
		return export(cmd.Context(), cmd.OutOrStdout(), opts, args, logger)
	},
}

func init() {
	exportCommand.Flags().StringVarP(&exportFlags.dataDir, "data-dir", "d", "", "directory containing the .bin files")
	exportCommand.Flags().StringVarP(&exportFlags.format, "format", "f", "csv", "output format: csv, cidr or sqlite")
	exportCommand.Flags().StringVarP(&exportFlags.output, "output", "o", "", "output file (default stdout; required for sqlite)")
	mainCommand.AddCommand(exportCommand)
}

// prefixLister is implemented by the ip range databases.
type prefixLister interface {
	PrefixRecords() iter.Seq2[netip.Prefix, string]
}

func export(ctx context.Context, stdout io.Writer, opts exportOptions, kinds []string, logger *slog.Logger) error {
	dbs := make([]registry.Database, 0, len(kinds))
	for _, kind := range kinds {
		db, err := openKind(opts.dataDir, kind, logger)
		if err != nil {
			return err
		}
		dbs = append(dbs, db)
	}

	if opts.format == "sqlite" {
		if opts.output == "" {
			return errors.New("sqlite export needs --output")
		}
		if err := sqlexport.Write(ctx, opts.output, dbs...); err != nil {
			return fmt.Errorf("sqlexport.Write: %w", err)
		}
		logger.Info("exported", "path", opts.output, "kinds", len(dbs))
		return nil
	}

	if len(dbs) != 1 {
		return fmt.Errorf("%s export takes exactly one kind", opts.format)
	}
	db := dbs[0]

	if opts.output == "" {
		return writeExport(stdout, db, opts.format)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := writeExport(f, db, opts.format); err != nil {
		return err
	}
	return f.Close()
}

func writeExport(w io.Writer, db registry.Database, format string) error {
	switch format {
	case "csv":
		return tabular.Write(w, db.Header(), db.Records())
	case "cidr":
		pl, ok := db.(prefixLister)
		if !ok {
			return fmt.Errorf("%s has no address ranges to export as cidr", db.Kind())
		}
		header := db.Header()
		rows := func(yield func([]string) bool) {
			for p, value := range pl.PrefixRecords() {
				if !yield([]string{p.String(), value}) {
					return
				}
			}
		}
		return tabular.Write(w, []string{"prefix", header[len(header)-1]}, rows)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
