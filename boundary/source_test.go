package boundary

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/config"
)

func newTestHTTPSource(urlTemplate, cachePath string) *HTTPSource {
	return NewHTTPSource(config.BoundaryConfig{
		URLTemplate: urlTemplate,
		CachePath:   cachePath,
	}, zap.NewNop())
}

func TestHTTPSourceFetchesAndCaches(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/gadm41_COL_1.json", r.URL.Path)
		w.Write([]byte(fixtureCollection))
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "gadm41_COL_1.json")
	source := newTestHTTPSource(server.URL+"/gadm41_%s_%d.json", cachePath)

	payload, err := source.Fetch("COL", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(fixtureCollection), payload)
	assert.Equal(t, 1, hits)

	// The payload is written back so the next run reuses it.
	cached, err := os.ReadFile(cachePath)
	require.NoError(t, err)
	assert.Equal(t, payload, cached)
}

func TestHTTPSourcePresentCacheSkipsFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("fetched despite a present cache file")
	}))
	defer server.Close()

	cachePath := filepath.Join(t.TempDir(), "gadm41_COL_1.json")
	require.NoError(t, os.WriteFile(cachePath, []byte(fixtureCollection), 0644))

	source := newTestHTTPSource(server.URL+"/gadm41_%s_%d.json", cachePath)
	payload, err := source.Fetch("COL", 1)
	require.NoError(t, err)
	assert.Equal(t, []byte(fixtureCollection), payload)
}

func TestHTTPSourceStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	source := newTestHTTPSource(server.URL+"/gadm41_%s_%d.json", filepath.Join(t.TempDir(), "cache.json"))
	_, err := source.Fetch("COL", 1)
	assert.Error(t, err)
}
