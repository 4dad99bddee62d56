package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
	}
	return dir
}

func TestListMigrationsSortsSQLFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"002_departments.sql": "CREATE TABLE departments (id TEXT);",
		"001_init.sql":        "CREATE TABLE tickets (code TEXT);",
		"README.md":           "not a migration",
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_nested.sql"), 0o700))

	files, err := listMigrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "001_init.sql", files[0].name)
	assert.Equal(t, "002_departments.sql", files[1].name)
	assert.Len(t, files[0].checksum, 64)
	assert.NotEqual(t, files[0].checksum, files[1].checksum)

	_, err = listMigrations(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestPendingMigrations(t *testing.T) {
	files, err := listMigrations(writeFiles(t, map[string]string{
		"001_init.sql":        "CREATE TABLE tickets (code TEXT);",
		"002_departments.sql": "CREATE TABLE departments (id TEXT);",
	}))
	require.NoError(t, err)

	cases := []struct {
		name    string
		applied map[string]string
		want    []string
		wantErr bool
	}{
		{name: "fresh database", applied: map[string]string{}, want: []string{"001_init.sql", "002_departments.sql"}},
		{name: "first applied", applied: map[string]string{"001_init.sql": files[0].checksum}, want: []string{"002_departments.sql"}},
		{
			name:    "all applied",
			applied: map[string]string{"001_init.sql": files[0].checksum, "002_departments.sql": files[1].checksum},
		},
		{name: "applied file edited", applied: map[string]string{"001_init.sql": "stale"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			todo, err := pendingMigrations(files, tc.applied)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			names := make([]string, 0, len(todo))
			for _, m := range todo {
				names = append(names, m.name)
			}
			assert.ElementsMatch(t, tc.want, names)
		})
	}
}
