package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/thermobook/internal/model"
	"github.com/ppiankov/thermobook/internal/pipeline"
	"github.com/ppiankov/thermobook/internal/store"
)

type fakeExtractor struct {
	substance *model.Substance
	err       error
	calls     []string
}

func (f *fakeExtractor) Process(_ context.Context, identifier string) (*pipeline.Result, error) {
	f.calls = append(f.calls, identifier)
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Identifier: identifier, Substance: f.substance}, nil
}

func newTestServer(t *testing.T, n int, extractor Extractor) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	for i := 1; i <= n; i++ {
		require.NoError(t, st.Insert(context.Background(), &model.Substance{
			Identity: model.Identity{Name: fmt.Sprintf("Substance %03d", i), CAS: int64(1000 + i), Formula: "X"},
		}))
	}

	server := httptest.NewServer(NewServer(":0", st, extractor, nil).Handler())
	t.Cleanup(server.Close)
	return server, st
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	server, _ := newTestServer(t, 0, nil)

	var body map[string]string
	status := getJSON(t, server.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestList_Defaults(t *testing.T) {
	server, _ := newTestServer(t, 25, nil)

	var body ListResponse
	status := getJSON(t, server.URL+"/substances", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 1, body.CurrentPage)
	assert.Equal(t, 2, body.TotalPages)
	assert.Equal(t, 20, body.ItemsPerPage)
	assert.Equal(t, 20, body.ItemsInPage)
	assert.Equal(t, 25, body.TotalItems)
	assert.Equal(t, "Substance 001", body.Items[0].Name)
}

func TestList_SecondPage(t *testing.T) {
	server, _ := newTestServer(t, 25, nil)

	var body ListResponse
	status := getJSON(t, server.URL+"/substances?page=2&per_page=10", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 3, body.TotalPages)
	assert.Equal(t, 10, body.ItemsInPage)
	assert.Equal(t, "Substance 011", body.Items[0].Name)
	assert.Equal(t, int64(1011), body.Items[0].CAS)
}

func TestList_BeyondLastPage(t *testing.T) {
	server, _ := newTestServer(t, 3, nil)

	var body ListResponse
	status := getJSON(t, server.URL+"/substances?page=9", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, body.ItemsInPage)
	assert.NotNil(t, body.Items)
}

func TestList_HugePageIsEmpty(t *testing.T) {
	server, _ := newTestServer(t, 3, nil)

	var body ListResponse
	status := getJSON(t, server.URL+"/substances?page=922337203685477581&per_page=20", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.TotalPages)
	assert.Equal(t, 0, body.ItemsInPage)
	assert.Empty(t, body.Items)
}

func TestList_PerPageCapped(t *testing.T) {
	server, _ := newTestServer(t, 1, nil)

	var body ListResponse
	getJSON(t, server.URL+"/substances?per_page=1000", &body)
	assert.Equal(t, maxPerPage, body.ItemsPerPage)
}

func TestList_InvalidParams(t *testing.T) {
	server, _ := newTestServer(t, 1, nil)

	for _, query := range []string{"page=0", "page=abc", "per_page=-1", "per_page=1.5"} {
		var body ErrorResponse
		status := getJSON(t, server.URL+"/substances?"+query, &body)
		assert.Equal(t, http.StatusBadRequest, status, query)
		assert.Equal(t, "error", body.Status, query)
	}
}

func TestLookup_Stored(t *testing.T) {
	extractor := &fakeExtractor{}
	server, _ := newTestServer(t, 2, extractor)

	var body struct {
		Status string           `json:"status"`
		Items  []map[string]any `json:"items"`
	}
	status := getJSON(t, server.URL+"/substances/1002", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Substance 002", body.Items[0]["name"])
	assert.Empty(t, extractor.calls, "stored records must not be re-extracted")
}

func TestLookup_OnDemand(t *testing.T) {
	extractor := &fakeExtractor{substance: &model.Substance{
		Identity: model.Identity{Name: "Methane", CAS: 74828},
		Properties: map[string]model.Property{
			"boiling_point": model.Scalar{Value: 111.6, Units: "K"},
		},
	}}
	server, _ := newTestServer(t, 0, extractor)

	var body struct {
		Items []map[string]any `json:"items"`
	}
	status := getJSON(t, server.URL+"/substances/74-82-8", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Methane", body.Items[0]["name"])
	assert.Contains(t, body.Items[0], "boiling_point")
	assert.Equal(t, []string{"74828"}, extractor.calls)
}

func TestLookup_NotFound(t *testing.T) {
	server, _ := newTestServer(t, 0, &fakeExtractor{})

	var body ErrorResponse
	status := getJSON(t, server.URL+"/substances/999", &body)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLookup_NotFoundWithoutExtractor(t *testing.T) {
	server, _ := newTestServer(t, 0, nil)

	var body ErrorResponse
	status := getJSON(t, server.URL+"/substances/999", &body)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLookup_ExtractionFailure(t *testing.T) {
	server, _ := newTestServer(t, 0, &fakeExtractor{err: errors.New("walk failed")})

	var body ErrorResponse
	status := getJSON(t, server.URL+"/substances/74828", &body)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, "walk failed", body.Message)
}

func TestLookup_InvalidCAS(t *testing.T) {
	server, _ := newTestServer(t, 0, nil)

	var body ErrorResponse
	status := getJSON(t, server.URL+"/substances/methane", &body)
	assert.Equal(t, http.StatusBadRequest, status)
}
