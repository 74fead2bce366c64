package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newAdminRepo(t *testing.T) *AdminRepository {
	t.Helper()
	repo := &AdminRepository{db: newTestDB(t)}
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func newPostRepo(t *testing.T) *PostRepository {
	t.Helper()
	repo := &PostRepository{db: newTestDB(t)}
	require.NoError(t, repo.Init(context.Background()))
	return repo
}
