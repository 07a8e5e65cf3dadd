package main

import (
	"bytes"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTarget = Target{ProjectID: "proj", DatasetID: "cashflow", TableID: "transactions"}

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init_schema_migrations.sql", true, "0001", "init_schema_migrations"},
		{"001_invalid.sql", false, "", ""},
		{"0001_test", false, "", ""},
		{"0001.sql", false, "", ""},
		{"invalid_0001_test.sql", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := migrationPattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				assert.Nil(t, matches)
				return
			}
			require.Len(t, matches, 3)
			assert.Equal(t, tt.version, matches[1])
			assert.Equal(t, tt.name, matches[2])
		})
	}
}

func TestReadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_create_transactions.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.{{TABLE_ID}}` (x INT64);")},
		"m/0001_init.sql":                {Data: []byte("SELECT 1;")},
		"m/README.md":                    {Data: []byte("ignored")},
	}

	migrations, err := readMigrations(fsys, "m", testTarget)
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "init", migrations[0].Name)
	assert.Equal(t, 2, migrations[1].Version)
	assert.Equal(t, "CREATE TABLE `proj.cashflow.transactions` (x INT64);", migrations[1].SQL)
	assert.Len(t, migrations[1].Checksum, 64)
}

func TestReadMigrations_ChecksumIgnoresTarget(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_create.sql": {Data: []byte("CREATE TABLE `{{PROJECT_ID}}.{{DATASET_ID}}.t` (x INT64);")},
	}

	a, err := readMigrations(fsys, "m", testTarget)
	require.NoError(t, err)
	b, err := readMigrations(fsys, "m", Target{ProjectID: "other", DatasetID: "ds"})
	require.NoError(t, err)

	assert.Equal(t, a[0].Checksum, b[0].Checksum)
	assert.NotEqual(t, a[0].SQL, b[0].SQL)
}

func TestReadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0001_a.sql": {Data: []byte("SELECT 1;")},
		"m/0001_b.sql": {Data: []byte("SELECT 2;")},
	}

	_, err := readMigrations(fsys, "m", testTarget)
	assert.ErrorContains(t, err, "duplicate migration version 0001")
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := readMigrations(embeddedMigrations, "migrations", testTarget)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)

	var found bool
	for _, m := range migrations {
		assert.NotContains(t, m.SQL, "{{")
		if m.Name == "create_transactions" {
			found = true
			assert.Contains(t, m.SQL, "`proj.cashflow.transactions`")
			assert.Contains(t, m.SQL, "email_id")
		}
	}
	assert.True(t, found, "transactions table migration missing")
}

func TestPendingMigrations(t *testing.T) {
	migrations := []Migration{
		{Version: 1, Name: "init", Checksum: "aaa"},
		{Version: 2, Name: "create_transactions", Checksum: "bbb"},
		{Version: 3, Name: "add_index", Checksum: "ccc"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "changed"},
	}

	var buf bytes.Buffer
	pending := pendingMigrations(migrations, applied, zerolog.New(&buf))

	require.Len(t, pending, 1)
	assert.Equal(t, 3, pending[0].Version)
	assert.Contains(t, buf.String(), "modified after it ran")
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "flag", firstNonEmpty("flag", "config"))
	assert.Equal(t, "config", firstNonEmpty("", "config"))
	assert.Equal(t, "", firstNonEmpty("", ""))
}
