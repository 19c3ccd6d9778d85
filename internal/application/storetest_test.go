package application

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bnema/stock-admin-cli/internal/adapters/store"
	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for the remote document store, covering
// the slice of the records API the services under test exercise: listing
// with single exact/substring filter clauses, create, update, delete.
type fakeStore struct {
	t *testing.T

	mu          sync.Mutex
	collections map[string][]domain.Record
	nextID      int
	updates     []string // "collection/id" in application order

	failCreate func(collection string, record domain.Record) error
	failUpdate func(collection, id string) error

	server *httptest.Server
}

func newFakeStore(t *testing.T) *fakeStore {
	t.Helper()

	f := &fakeStore{t: t, collections: map[string][]domain.Record{}}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeStore) client() *store.Client {
	return store.New(f.server.URL, f.server.Client())
}

func (f *fakeStore) add(collection string, record domain.Record) domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(collection, record)
}

func (f *fakeStore) addLocked(collection string, record domain.Record) domain.Record {
	if record.ID() == "" {
		f.nextID++
		record = record.Clone()
		record["id"] = fmt.Sprintf("%s-%d", collection, f.nextID)
	}
	f.collections[collection] = append(f.collections[collection], record)
	return record
}

func (f *fakeStore) records(collection string) []domain.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Record, 0, len(f.collections[collection]))
	for _, record := range f.collections[collection] {
		out = append(out, record.Clone())
	}
	return out
}

func (f *fakeStore) find(collection, id string) (domain.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.collections[collection] {
		if record.ID() == id {
			return record.Clone(), true
		}
	}
	return nil, false
}

func (f *fakeStore) updateOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

func (f *fakeStore) handle(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	// api/collections/{name}/records[/{id}]
	if len(parts) < 4 || parts[0] != "api" || parts[1] != "collections" || parts[3] != "records" {
		http.NotFound(w, r)
		return
	}
	collection := parts[2]

	switch {
	case r.Method == http.MethodGet && len(parts) == 4:
		f.handleList(w, r, collection)
	case r.Method == http.MethodPost && len(parts) == 4:
		f.handleCreate(w, r, collection)
	case r.Method == http.MethodPatch && len(parts) == 5:
		f.handleUpdate(w, r, collection, parts[4])
	case r.Method == http.MethodDelete && len(parts) == 5:
		f.handleDelete(w, collection, parts[4])
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeStore) handleList(w http.ResponseWriter, r *http.Request, collection string) {
	filter := r.URL.Query().Get("filter")

	f.mu.Lock()
	var items []domain.Record
	for _, record := range f.collections[collection] {
		if matchFilter(record, filter) {
			items = append(items, record.Clone())
		}
	}
	f.mu.Unlock()

	f.writeJSON(w, store.ListResult{
		Page:       1,
		PerPage:    len(items),
		TotalItems: len(items),
		TotalPages: 1,
		Items:      items,
	})
}

func (f *fakeStore) handleCreate(w http.ResponseWriter, r *http.Request, collection string) {
	var record domain.Record
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&record))

	if f.failCreate != nil {
		if err := f.failCreate(collection, record); err != nil {
			f.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	created := f.add(collection, record)
	f.writeJSON(w, created)
}

func (f *fakeStore) handleUpdate(w http.ResponseWriter, r *http.Request, collection, id string) {
	var patch domain.Record
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&patch))

	if f.failUpdate != nil {
		if err := f.failUpdate(collection, id); err != nil {
			f.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, record := range f.collections[collection] {
		if record.ID() != id {
			continue
		}
		for key, value := range patch {
			record[key] = value
		}
		f.collections[collection][i] = record
		f.updates = append(f.updates, collection+"/"+id)
		f.writeJSON(w, record.Clone())
		return
	}
	f.writeError(w, http.StatusNotFound, "Missing record.")
}

func (f *fakeStore) handleDelete(w http.ResponseWriter, collection, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, record := range f.collections[collection] {
		if record.ID() == id {
			f.collections[collection] = append(f.collections[collection][:i], f.collections[collection][i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	f.writeError(w, http.StatusNotFound, "Missing record.")
}

// matchFilter understands the single-clause expressions the services emit
// for reads: `field="value"` and `field~"value"`.
func matchFilter(record domain.Record, filter string) bool {
	if filter == "" {
		return true
	}

	if idx := strings.Index(filter, `~"`); idx > 0 {
		field := filter[:idx]
		value := strings.TrimSuffix(filter[idx+2:], `"`)
		return strings.Contains(record.String(field), value)
	}
	if idx := strings.Index(filter, `="`); idx > 0 {
		field := filter[:idx]
		value := strings.TrimSuffix(filter[idx+2:], `"`)
		return record.String(field) == value
	}
	return false
}

func (f *fakeStore) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func (f *fakeStore) writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	f.writeJSON(w, map[string]any{"message": message})
}
