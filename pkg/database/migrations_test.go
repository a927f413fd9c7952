package database

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: ":memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrator_EmbeddedSchema(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, zap.NewNop())

	require.NoError(t, m.Run(""))
	// a second run is a no-op
	require.NoError(t, m.Run(""))

	for _, table := range []string{"purchase_requests", "request_history", "request_sequences"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestLoadMigrations(t *testing.T) {
	t.Run("sorted by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"002_second.sql": {Data: []byte("SELECT 2;")},
			"001_first.sql":  {Data: []byte("SELECT 1;")},
			"README.md":      {Data: []byte("ignored")},
		}

		migrations, err := loadMigrations(fsys)
		require.NoError(t, err)
		require.Len(t, migrations, 2)
		assert.Equal(t, 1, migrations[0].Version)
		assert.Equal(t, "first", migrations[0].Name)
		assert.Equal(t, "second", migrations[1].Name)
	})

	t.Run("rejects bad filename", func(t *testing.T) {
		_, err := loadMigrations(fstest.MapFS{"init.sql": {Data: []byte("SELECT 1;")}})
		assert.Error(t, err)
	})

	t.Run("rejects duplicate version", func(t *testing.T) {
		_, err := loadMigrations(fstest.MapFS{
			"001_a.sql": {Data: []byte("SELECT 1;")},
			"001_b.sql": {Data: []byte("SELECT 1;")},
		})
		assert.Error(t, err)
	})
}

func TestMigrator_FailedMigrationRollsBack(t *testing.T) {
	db := openMemory(t)
	m := NewMigrator(db, zap.NewNop())

	fsys := fstest.MapFS{
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE b (id INTEGER); INSERT INTO missing VALUES (1);")},
	}

	err := m.RunMigrations(fsys, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to apply migration 2")

	var versions []int
	rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
	require.NoError(t, err)
	for rows.Next() {
		var v int
		require.NoError(t, rows.Scan(&v))
		versions = append(versions, v)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []int{1}, versions)

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='b'").Scan(&n))
	assert.Zero(t, n)
}
