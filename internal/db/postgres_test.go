package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_SortedSQLOnly(t *testing.T) {
	fsys := fstest.MapFS{
		"0002_b.sql":   {Data: []byte("SELECT 2")},
		"0001_a.sql":   {Data: []byte("SELECT 1")},
		"README.md":    {Data: []byte("docs")},
		"embed.go":     {Data: []byte("package migrations")},
		"nested/x.sql": {Data: []byte("SELECT 3")},
	}

	names, err := migrationNames(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_a.sql", "0002_b.sql"}, names)
}

func TestMigrationsFS_FallsBackToEmbedded(t *testing.T) {
	names, err := migrationNames(MigrationsFS("/nonexistent/path"))
	require.NoError(t, err)
	assert.Contains(t, names, "0001_escrow_schema.sql")
	assert.Contains(t, names, "0002_change_notifications.sql")
}
