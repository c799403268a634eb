// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package sqlexport copies databases into a SQLite file, one table per
// kind, for ad-hoc querying.
package sqlexport

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/bpowers/ndb/registry"
)

// TableName returns the SQL table a kind is exported to.
func TableName(kind string) string {
	return strings.ReplaceAll(kind, "-", "_")
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Write exports dbs to the SQLite database at path.  Existing tables of
// the same name are replaced.  Every column is TEXT and holds the same
// value the CSV export would.
func Write(ctx context.Context, path string, dbs ...registry.Database) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sql.Open(%s): %w", path, err)
	}
	defer db.Close()

	for _, d := range dbs {
		if err := writeTable(ctx, db, d); err != nil {
			return fmt.Errorf("%s: %w", d.Kind(), err)
		}
	}
	return db.Close()
}

func writeTable(ctx context.Context, db *sql.DB, d registry.Database) error {
	header := d.Header()
	table := quote(TableName(d.Kind()))

	columns := make([]string, len(header))
	placeholders := make([]string, len(header))
	for i, name := range header {
		columns[i] = quote(name) + " TEXT"
		placeholders[i] = "?"
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return err
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(columns, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(placeholders, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(header))
	for rec := range d.Records() {
		for i := range args {
			args[i] = rec[i]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
