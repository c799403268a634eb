// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bpowers/ndb"
	"github.com/bpowers/ndb/ipdb"
	"github.com/bpowers/ndb/registry"
)

type mmdbOptions struct {
	asn       string
	country   string
	outputDir string
}

var mmdbFlags mmdbOptions

var importMMDBCommand = &cobra.Command{
	Use:   "import-mmdb",
	Short: "Build the ip databases from MaxMind ASN and country databases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := mmdbFlags
		if !cmd.Flags().Changed("asn") {
			opts.asn = cfg.MMDB.ASN
		}
		if !cmd.Flags().Changed("country") {
			opts.country = cfg.MMDB.Country
		}
		if !cmd.Flags().Changed("output-dir") {
			opts.outputDir = cfg.OutputDir
		}
		return importMMDB(opts, logger)
	},
}

func init() {
	importMMDBCommand.Flags().StringVar(&mmdbFlags.asn, "asn", "", "MaxMind ASN database, e.g. GeoLite2-ASN.mmdb")
	importMMDBCommand.Flags().StringVar(&mmdbFlags.country, "country", "", "MaxMind country or city database")
	importMMDBCommand.Flags().StringVarP(&mmdbFlags.outputDir, "output-dir", "o", "", "directory to write the .bin files to")
	mainCommand.AddCommand(importMMDBCommand)
}

func importMMDB(opts mmdbOptions, logger *slog.Logger) error {
	if opts.asn == "" && opts.country == "" {
		return errors.New("nothing to import: pass --asn and/or --country")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("os.MkdirAll: %w", err)
	}

	var dbs []registry.Database
	if opts.asn != "" {
		v4, v6, err := ipdb.ReadASNFromMMDB(opts.asn)
		if err != nil {
			return err
		}
		dbs = append(dbs, v4, v6)
	}
	if opts.country != "" {
		v4, v6, err := ipdb.ReadCountryFromMMDB(opts.country)
		if err != nil {
			return err
		}
		dbs = append(dbs, v4, v6)
	}

	for _, db := range dbs {
		k, err := registry.Lookup(db.Kind())
		if err != nil {
			return err
		}
		if err := ndb.WriteFile(filepath.Join(opts.outputDir, k.BinName), db, ndb.WithLogger(logger)); err != nil {
			return err
		}
	}
	return nil
}
