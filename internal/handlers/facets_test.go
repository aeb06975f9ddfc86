package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogue-search/internal/model"
)

type fakeFacetQuerier struct {
	facets []model.Facet
	err    error
}

func (f *fakeFacetQuerier) FacetsForSKUs(ctx context.Context, skuIDs []int64, onlyActiveKeys bool) ([]model.Facet, error) {
	return f.facets, f.err
}

func TestFacetsHandler_AggregatesOverRequestedIDs(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/facets?brand_sku_ids=1,2,3", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	store := &fakeFacetQuerier{facets: []model.Facet{
		{StandardKey: "brand", FacetValue: "colgate", Count: 2},
	}}

	require.NoError(t, FacetsHandler(store, false)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp FacetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.FacetsComplete)
	require.Len(t, resp.Facets, 1)
	assert.Equal(t, "brand", resp.Facets[0].Key)
}

func TestFacetsHandler_NilStoreDegrades(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/facets?brand_sku_ids=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, FacetsHandler(nil, false)(c))

	var resp FacetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FacetsComplete)
	assert.Empty(t, resp.Facets)
}

func TestFacetsHandler_StoreFailureDegrades(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/facets?brand_sku_ids=1,2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	store := &fakeFacetQuerier{err: assertErr{}}
	require.NoError(t, FacetsHandler(store, false)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp FacetsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.FacetsComplete)
}

func TestParseSKUIDs(t *testing.T) {
	ids, err := parseSKUIDs(" 1, 2,3 ,")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	_, err = parseSKUIDs("not-a-number")
	assert.Error(t, err)

	ids, err = parseSKUIDs("")
	require.NoError(t, err)
	assert.Nil(t, ids)
}

type assertErr struct{}

func (assertErr) Error() string { return "store unavailable" }
