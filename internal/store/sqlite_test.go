package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func tableExists(t *testing.T, repo *SQLiteRepository, name string) bool {
	t.Helper()
	var n int
	err := repo.db.Pool.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestMigrate_Idempotent(t *testing.T) {
	repo := setupDB(t)
	assert.True(t, tableExists(t, repo, "preferences"))
	assert.True(t, tableExists(t, repo, "goose_db_version"))

	require.NoError(t, Migrate(context.Background(), repo.db.Pool))
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.db")
	ctx := context.Background()

	repo, err := OpenSQLiteRepository(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, record("alice", "Cherry", 1, 2)))
	require.NoError(t, repo.Close())

	repo, err = OpenSQLiteRepository(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	rec, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Cherry", rec.Preferences["Fruitiness/Flavor Profile"])
}

func TestSQLiteRepository_MalformedRow(t *testing.T) {
	repo := setupDB(t)
	_, err := repo.db.Pool.Exec(`
INSERT INTO preferences (username, preferences, min_price, max_price, created_at)
VALUES ('broken', 'not json', 0, 1, ''), ('short', '["Fruit"]', 0, 1, '');`)
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "broken")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = repo.Get(context.Background(), "short")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = repo.List(context.Background())
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestSQLiteRepository_ClosedDBErrorsAreWrapped(t *testing.T) {
	repo := setupDB(t)
	require.NoError(t, repo.Close())

	_, err := repo.Exists(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to check user")

	err = repo.Put(context.Background(), record("alice", "Fruit", 0, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)
}
