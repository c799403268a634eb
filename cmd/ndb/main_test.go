// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bpowers/ndb/dict"
	"github.com/bpowers/ndb/ipdb"
	"github.com/bpowers/ndb/registry"
	"github.com/bpowers/ndb/tabular"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeInputs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
}

func TestUpdate(t *testing.T) {
	in, out := t.TempDir(), filepath.Join(t.TempDir(), "bin")
	writeInputs(t, in, map[string]string{
		"as.csv":           "asn,name\n13335,Cloudflare\n",
		"ipv4-country.csv": "ip_from,ip_to,country_code\n167772160,167772415,US\n167772200,167772300,DE\n",
		"oui.csv":          "mac_prefix,vendor,vendor_detail\nAC:4A:56,VendorX,\n",
		"README.txt":       "not a database\n",
	})
	require.NoError(t, os.Mkdir(filepath.Join(in, "subdir"), 0755))

	opts := updateOptions{inputDir: in, outputDir: out, dryRun: true}
	built, err := update(context.Background(), opts, discard)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{dict.KindAS, ipdb.KindIPv4Country, "oui"}, built)
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err), "dry run created the output dir")

	opts.dryRun = false
	_, err = update(context.Background(), opts, discard)
	require.NoError(t, err)
	for _, name := range []string{"as.bin", "ipv4-country.bin", "oui.bin"} {
		_, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
	}

	opts.strict = true
	_, err = update(context.Background(), opts, discard)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ipv4-country.csv")
}

func TestUpdate_ParseError(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in, map[string]string{"as.csv": "asn,name\n1,a\nbad,b\n"})
	_, err := update(context.Background(), updateOptions{inputDir: in, outputDir: in}, discard)
	require.ErrorIs(t, err, tabular.ErrParse)

	_, err = update(context.Background(), updateOptions{inputDir: filepath.Join(in, "missing")}, discard)
	require.Error(t, err)
}

func buildDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeInputs(t, dir, map[string]string{
		"as.csv":           "asn,name\n13335,Cloudflare\n15169,Google\n",
		"ipv4-country.csv": "ip_from,ip_to,country_code\n167772160,167772927,US\n",
	})
	_, err := update(context.Background(), updateOptions{inputDir: dir, outputDir: dir}, discard)
	require.NoError(t, err)
	return dir
}

func TestLookup(t *testing.T) {
	dir := buildDir(t)
	db, err := openKind(dir, dict.KindAS, discard)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, lookup(&buf, db, []string{"13335", "AS15169"}, discard))
	require.Equal(t, "key,asn,name\n13335,13335,Cloudflare\nAS15169,15169,Google\n", buf.String())

	buf.Reset()
	err = lookup(&buf, db, []string{"1", "13335"}, discard)
	require.ErrorIs(t, err, errNotFound)
	require.Equal(t, "key,asn,name\n13335,13335,Cloudflare\n", buf.String())

	_, err = openKind(dir, "nope", discard)
	require.ErrorIs(t, err, registry.ErrUnknownKind)
	_, err = openKind(dir, dict.KindCountry, discard)
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := buildDir(t)
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, export(ctx, &buf, exportOptions{dataDir: dir, format: "csv"}, []string{dict.KindAS}, discard))
	require.Equal(t, "asn,name\n13335,Cloudflare\n15169,Google\n", buf.String())

	buf.Reset()
	require.NoError(t, export(ctx, &buf, exportOptions{dataDir: dir, format: "cidr"}, []string{ipdb.KindIPv4Country}, discard))
	require.Equal(t, "prefix,country_code\n10.0.0.0/23,US\n10.0.2.0/24,US\n", buf.String())

	err := export(ctx, &buf, exportOptions{dataDir: dir, format: "cidr"}, []string{dict.KindAS}, discard)
	require.Error(t, err)
	err = export(ctx, &buf, exportOptions{dataDir: dir, format: "xml"}, []string{dict.KindAS}, discard)
	require.Error(t, err)
	err = export(ctx, &buf, exportOptions{dataDir: dir, format: "csv"}, []string{dict.KindAS, ipdb.KindIPv4Country}, discard)
	require.Error(t, err)
	err = export(ctx, &buf, exportOptions{dataDir: dir, format: "sqlite"}, []string{dict.KindAS}, discard)
	require.Error(t, err)

	out := filepath.Join(t.TempDir(), "as.csv")
	require.NoError(t, export(ctx, &buf, exportOptions{dataDir: dir, format: "csv", output: out}, []string{dict.KindAS}, discard))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Equal(t, "asn,name\n13335,Cloudflare\n15169,Google\n", string(data))

	sqlitePath := filepath.Join(t.TempDir(), "ndb.sqlite")
	require.NoError(t, export(ctx, &buf, exportOptions{dataDir: dir, format: "sqlite", output: sqlitePath},
		[]string{dict.KindAS, ipdb.KindIPv4Country}, discard))
	_, err = os.Stat(sqlitePath)
	require.NoError(t, err)
}

func TestImportMMDB_NoInput(t *testing.T) {
	err := importMMDB(mmdbOptions{outputDir: t.TempDir()}, discard)
	require.Error(t, err)
	err = importMMDB(mmdbOptions{asn: filepath.Join(t.TempDir(), "missing.mmdb"), outputDir: t.TempDir()}, discard)
	require.Error(t, err)
}

func TestFetch_NoSources(t *testing.T) {
	require.NoError(t, fetch(context.Background(), nil, t.TempDir(), nil, discard))
}

func TestMainCommand_Lookup(t *testing.T) {
	dir := buildDir(t)
	t.Chdir(t.TempDir())

	var buf bytes.Buffer
	mainCommand.SetOut(&buf)
	mainCommand.SetArgs([]string{"lookup", "-d", dir, ipdb.KindIPv4Country, "10.0.1.7"})
	t.Cleanup(func() {
		mainCommand.SetOut(nil)
		mainCommand.SetArgs(nil)
	})
	require.NoError(t, mainCommand.ExecuteContext(context.Background()))
	require.Equal(t, "key,ip_from,ip_to,country_code\n10.0.1.7,10.0.0.0,10.0.2.255,US\n", buf.String())
}
