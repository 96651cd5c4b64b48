package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		mode     Mode
		txlock   bool
		wantPath string
	}{
		{ModeWrite, true, "/tmp/state.sqlite?"},
		{ModeRead, false, "/tmp/state.sqlite?"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			dsn := buildDSN("/tmp/state.sqlite", tt.mode)
			assert.True(t, strings.HasPrefix(dsn, tt.wantPath))
			assert.Contains(t, dsn, "_journal_mode=WAL")
			assert.Contains(t, dsn, "_busy_timeout=5000")
			assert.Contains(t, dsn, "_synchronous=NORMAL")
			assert.Contains(t, dsn, "_foreign_keys=on")
			if tt.txlock {
				assert.Contains(t, dsn, "_txlock=immediate")
			} else {
				assert.NotContains(t, dsn, "_txlock")
			}
		})
	}
}

func TestOpen_InvalidMode(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "state.db"), "append", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpen_Write(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "state.db"), ModeWrite, 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", strings.ToLower(journalMode))

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpen_ReadDefaultPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	wdb, err := Open(path, ModeWrite, 0)
	require.NoError(t, err)
	wdb.Close()

	db, err := Open(path, ModeRead, 0)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.Equal(t, defaultReadConns, db.Stats().MaxOpenConnections)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/state.db", ModeWrite, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestOpenMigrated(t *testing.T) {
	db := OpenTestSQLite(t)

	v, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	for _, table := range []string{"snapshots", "runs", "run_outcomes"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(db))
}

func TestOpen_ConcurrentReadersWithWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	writeDB, err := OpenMigrated(path)
	require.NoError(t, err)
	t.Cleanup(func() { writeDB.Close() })
	readDB, err := Open(path, ModeRead, 4)
	require.NoError(t, err)
	t.Cleanup(func() { readDB.Close() })

	var wg sync.WaitGroup
	writeErrs := make([]error, 10)
	readErrs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			_, writeErrs[idx] = writeDB.Exec(
				"INSERT INTO snapshots (key, document, digest) VALUES (?, ?, ?)",
				"k"+strings.Repeat("x", idx), []byte("{}"), "d")
		}(i)
		go func(idx int) {
			defer wg.Done()
			var n int
			readErrs[idx] = readDB.QueryRow("SELECT count(*) FROM snapshots").Scan(&n)
		}(i)
	}
	wg.Wait()

	for i := range writeErrs {
		assert.NoError(t, writeErrs[i], "writer %d", i)
		assert.NoError(t, readErrs[i], "reader %d", i)
	}
	var n int
	require.NoError(t, readDB.QueryRow("SELECT count(*) FROM snapshots").Scan(&n))
	assert.Equal(t, 10, n)
}
