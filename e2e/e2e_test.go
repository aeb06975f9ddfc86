// Package e2e exercises the full build -> serve -> search/facets pipeline
// over real HTTP, end to end, against an in-process server and a fake
// embedding backend. It replaces browser-level UI testing (out of scope:
// this service has no HTML front end) with an HTTP-level integration
// test of the documented JSON contract.
package e2e

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogue-search/internal/config"
	"catalogue-search/internal/embedclient"
	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/handlers"
	"catalogue-search/internal/indexbuild"
	"catalogue-search/internal/queryengine"
	"catalogue-search/internal/server"
)

// textHash derives a deterministic single-dimension embedding from text,
// so exact-text queries land at L2 distance zero against their own row.
func textHash(s string) float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return float32(h.Sum32()%1000) / 1000
}

func fakeEmbedServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Input string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float32{textHash(body.Input)},
		})
	}))
}

func writeCatalogueCSV(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "catalogue.csv")
	content := "product_name,brand_name,category_name\n" +
		"colgate total advanced,colgate,toothpaste\n" +
		"sensodyne rapid repair,sensodyne,toothpaste\n" +
		"pepsodent white,pepsodent,toothpaste\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	embedSrv := fakeEmbedServer(t)
	t.Cleanup(embedSrv.Close)

	dir := t.TempDir()
	csvPath := writeCatalogueCSV(t, dir)

	embed := embedclient.New(embedSrv.URL, "test-model", 5*time.Second)
	builder := indexbuild.New(embed, 2, zerolog.Nop())

	result, err := builder.Build(context.Background(), csvPath, "test-model", 0)
	require.NoError(t, err)

	cfg := &config.Config{
		Version:              "test",
		DefaultK:             5,
		DefaultCandidatePool: 150,
		DefaultPhoneticBoost: 0.2,
		ProductPhoneticBoost: 0.25,
		FuzzyJaroWeight:      50.0,
		PhoneticCodeMaxEdits: 1,
		PhoneticApproxBoost:  0.12,
	}

	engine := queryengine.New(embed, result.Index, result.Lookup, zerolog.Nop())
	composer := facetcompose.New(nil, zerolog.Nop())

	srv := server.New(cfg, engine, composer, nil, zerolog.Nop())
	srv.Initialize()

	httpSrv := httptest.NewServer(srv.Handler())
	return httpSrv
}

func TestE2E_HealthEndpointReportsIndexSize(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health handlers.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, 3, health.NumItems)
}

func TestE2E_EmptyQueryShortCircuits(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/search?q=")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "No search query provided", body.Error)
	assert.Equal(t, 0, body.TotalResults)
	assert.Empty(t, body.Results)
}

func TestE2E_SearchReturnsExactMatchFirst(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/search?q=" + "colgate+colgate+total+advanced+toothpaste")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Results)
	assert.Equal(t, "colgate total advanced", body.Results[0].Label)
	assert.Empty(t, body.Error)
}

func TestE2E_SearchDegradesFacetsWithoutStore(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/search?q=sensodyne")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body handlers.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Facets, "facets must degrade to empty when no facet/sku store is configured")
}

func TestE2E_FacetsEndpointDegradesWithoutStore(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/facets?brand_sku_ids=1,2,3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.FacetsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.FacetsComplete)
	assert.Empty(t, body.Facets)
}

func TestE2E_RootEndpoint(t *testing.T) {
	httpSrv := newTestServer(t)
	defer httpSrv.Close()

	resp, err := http.Get(httpSrv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "catalogue-search", body["service"])
}
