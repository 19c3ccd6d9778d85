// Package history keeps a local ledger of bulk import runs in a TOML file.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	historyFileMode = 0o600
	historyDirMode  = 0o700
	tempFilePattern = ".imports-*.toml.tmp"
)

// Entry is one recorded import run.
type Entry struct {
	At        time.Time
	Source    string
	Succeeded int
	Failed    int
	Messages  []string
}

type Repository struct {
	path string
	mu   *sync.Mutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.Mutex{}
)

func lockForPath(path string) *sync.Mutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if lock, ok := pathLockMap[path]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	pathLockMap[path] = lock
	return lock
}

func NewRepository(path string) (*Repository, error) {
	if path == "" {
		return nil, errors.New("import history path is empty")
	}
	path = filepath.Clean(path)
	return &Repository{path: path, mu: lockForPath(path)}, nil
}

// Append records one import run at the end of the ledger.
func (r *Repository) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	file.Imports = append(file.Imports, entrySchema{
		At:        entry.At.UTC().Format(time.RFC3339),
		Source:    entry.Source,
		Succeeded: entry.Succeeded,
		Failed:    entry.Failed,
		Messages:  entry.Messages,
	})

	return r.writeSchema(file)
}

// List returns every recorded run, oldest first.
func (r *Repository) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(file.Imports))
	for _, raw := range file.Imports {
		at, err := time.Parse(time.RFC3339, raw.At)
		if err != nil {
			return nil, fmt.Errorf("parse import timestamp %q: %w", raw.At, err)
		}
		entries = append(entries, Entry{
			At:        at,
			Source:    raw.Source,
			Succeeded: raw.Succeeded,
			Failed:    raw.Failed,
			Messages:  raw.Messages,
		})
	}
	return entries, nil
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read import history: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode import history: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	payload, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode import history: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, historyDirMode); err != nil {
		return fmt.Errorf("create import history directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create import history temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write import history temp file: %w", err)
	}
	if err := tmp.Chmod(historyFileMode); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod import history temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close import history temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace import history file: %w", err)
	}
	return nil
}
