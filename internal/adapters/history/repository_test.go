package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendThenListRoundTrips(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "imports.toml"))
	require.NoError(t, err)

	first := Entry{
		At:        time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Source:    "stock.xlsx",
		Succeeded: 8,
		Failed:    2,
		Messages:  []string{"row 4: missing name", "row 9: missing name"},
	}
	second := Entry{
		At:        time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
		Source:    "restock.xlsx",
		Succeeded: 3,
	}

	require.NoError(t, repo.Append(context.Background(), first))
	require.NoError(t, repo.Append(context.Background(), second))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first, entries[0])
	assert.Equal(t, "restock.xlsx", entries[1].Source)
	assert.Empty(t, entries[1].Messages)
}

func TestListMissingFileReturnsEmpty(t *testing.T) {
	t.Parallel()

	repo, err := NewRepository(filepath.Join(t.TempDir(), "imports.toml"))
	require.NoError(t, err)

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUnsupportedSchemaVersionIsRejected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "imports.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))

	repo, err := NewRepository(path)
	require.NoError(t, err)

	_, err = repo.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported import history schema version")
}

func TestNewRepositoryRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewRepository("")
	require.Error(t, err)
}
