package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/bnema/stock-admin-cli/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSendsDialectQueryParameters(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/collections/products/records", r.URL.Path)
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		writeJSON(t, w, ListResult{Page: 2, PerPage: 25, TotalItems: 1, TotalPages: 1, Items: []domain.Record{{"id": "p1"}}})
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	result, err := client.List(context.Background(), "products", ListOptions{
		Page:    2,
		PerPage: 25,
		Sort:    "-price",
		Filter:  `name~"sc"`,
		Expand:  "warehouse",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"page":    "2",
		"perPage": "25",
		"sort":    "-price",
		"filter":  `name~"sc"`,
		"expand":  "warehouse",
	}, gotQuery)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "p1", result.Items[0].ID())
}

func TestFullListWalksAllPages(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		writeJSON(t, w, ListResult{
			Page:       page,
			PerPage:    fullListPerPage,
			TotalItems: 2,
			TotalPages: 2,
			Items:      []domain.Record{{"id": fmt.Sprintf("p%d", page)}},
		})
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	items, err := client.FullList(context.Background(), "products", ListOptions{Filter: `warehouse="w1"`})
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ID())
	assert.Equal(t, "p2", items[1].ID())
}

func TestAuthWithPasswordInstallsToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/collections/users/auth-with-password", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice", body["identity"])
		assert.Equal(t, "secret", body["password"])

		writeJSON(t, w, AuthResponse{Token: "tok-1", Record: domain.Record{"id": "u1", "username": "alice"}})
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	auth, err := client.AuthWithPassword(context.Background(), "users", "alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, "tok-1", auth.Token)
	assert.Equal(t, "tok-1", client.Token())
}

func TestRequestsCarryAuthorizationHeader(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok-9", r.Header.Get("Authorization"))
		writeJSON(t, w, domain.Record{"id": "w1"})
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	client.SetToken("tok-9")

	_, err := client.Get(context.Background(), "warehouses", "w1", ListOptions{})
	require.NoError(t, err)
}

func TestErrorResponsesCarryStatusAndMessage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Failed to create record.","data":{"name":{"code":"validation_required"}}}`))
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	_, err := client.Create(context.Background(), "products", domain.Record{"price": 10})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Failed to create record.", apiErr.Message)
	assert.True(t, IsValidationError(err))
	assert.False(t, IsAuthError(err))
}

func TestIsAuthErrorMatches401And403Only(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAuthError(&APIError{Status: http.StatusUnauthorized}))
	assert.True(t, IsAuthError(&APIError{Status: http.StatusForbidden}))
	assert.False(t, IsAuthError(&APIError{Status: http.StatusInternalServerError}))
	assert.False(t, IsAuthError(errors.New("dial tcp: connection refused")))
	assert.Zero(t, StatusOf(errors.New("plain")))
}

func TestCreateWithFileUploadUsesMultipart(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Scooter", r.FormValue("name"))
		assert.Equal(t, "300", r.FormValue("price"))

		file, header, err := r.FormFile("photo")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "scooter.png", header.Filename)

		writeJSON(t, w, domain.Record{"id": "p1"})
	}))
	defer server.Close()

	client := New(server.URL, server.Client())
	record, err := client.Create(context.Background(), "products", domain.Record{
		"name":  "Scooter",
		"price": 300,
		"photo": domain.FileUpload{Name: "scooter.png", Data: []byte("png-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", record.ID())
}

func TestFileURLFollowsServingConvention(t *testing.T) {
	t.Parallel()

	client := New("http://127.0.0.1:8090/", nil)
	url := client.FileURL("products", "p1", "photo.png")
	assert.Equal(t, "http://127.0.0.1:8090/api/files/products/p1/photo.png", url)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}
