package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewStore(path)
	require.NoError(t, err)
	return store, path
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()

	store, path := testStore(t)
	auth := domain.StoredAuth{
		Token: "tok-1",
		Model: domain.Identity{ID: "u1", DisplayName: "alice", AvatarRef: "avatar.png"},
	}

	require.NoError(t, store.Save(context.Background(), auth))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, auth, loaded)
}

func TestLoadMissingFileReturnsNoSession(t *testing.T) {
	t.Parallel()

	store, _ := testStore(t)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestLoadMalformedJSONDeletesEntry(t *testing.T) {
	t.Parallel()

	store, path := testStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestLoadStructurallyInvalidRecordDeletesEntry(t *testing.T) {
	t.Parallel()

	store, path := testStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"token":"tok-1","model":{}}`), 0o600))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)

	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestSaveRejectsInvalidSession(t *testing.T) {
	t.Parallel()

	store, _ := testStore(t)
	err := store.Save(context.Background(), domain.StoredAuth{Token: "tok-only"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token and identity")
}

func TestClearIsIdempotent(t *testing.T) {
	t.Parallel()

	store, _ := testStore(t)
	require.NoError(t, store.Save(context.Background(), domain.StoredAuth{
		Token: "tok-1",
		Model: domain.Identity{ID: "u1"},
	}))

	require.NoError(t, store.Clear(context.Background()))
	require.NoError(t, store.Clear(context.Background()))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}
