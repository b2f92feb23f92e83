package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_star_schema.sql", true, 1, "create_star_schema"},
		{"0002_create_etl_runs.sql", true, 2, "create_etl_runs"},
		{"001_invalid.sql", false, 0, ""},       // wrong number format
		{"0001_test", false, 0, ""},             // missing .sql
		{"0001.sql", false, 0, ""},              // missing name
		{"invalid_0001_test.sql", false, 0, ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseFilename(tt.filename)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.version, version)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestChecksumIgnoresPlaceholders(t *testing.T) {
	content := []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (id INT64);")

	assert.Equal(t, checksum(content), checksum([]byte(string(content))))
	assert.NotEqual(t, checksum(content), checksum([]byte("CREATE TABLE different (id INT64);")))
	assert.Equal(t, "CREATE TABLE `p.ds.t` (id INT64);", renderSQL(content, "p", "ds"))
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("0002_second.sql", "SELECT 2")
	write("0001_first.sql", "SELECT * FROM `{{DATASET_ID}}.x`")
	write("README.md", "not a migration")

	migrations, err := readMigrations(zerolog.New(io.Discard), dir, "proj", "ingresos")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "SELECT * FROM `ingresos.x`", migrations[0].SQL)
	assert.Equal(t, "second", migrations[1].Name)

	write("0002_again.sql", "SELECT 3")
	_, err = readMigrations(zerolog.New(io.Discard), dir, "proj", "ingresos")
	assert.ErrorContains(t, err, "duplicate migration version 0002")
}

func TestRepositoryMigrations(t *testing.T) {
	dir, err := resolveDir("migrations/bigquery")
	require.NoError(t, err)

	migrations, err := readMigrations(zerolog.New(io.Discard), dir, "proj", "ingresos")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(migrations), 2)
	for _, m := range migrations {
		assert.NotContains(t, m.SQL, "{{")
	}
}

func TestPendingAndDrift(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "a", Checksum: "c1"},
		{Version: 2, Name: "b", Checksum: "c2"},
		{Version: 3, Name: "c", Checksum: "c3"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "c1"},
		{Version: 2, Checksum: "old"},
	}

	pending := pendingMigrations(all, applied)
	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)

	drift := checksumDrift(all, applied)
	require.Len(t, drift, 1)
	assert.Equal(t, 2, drift[0].Version)
}
