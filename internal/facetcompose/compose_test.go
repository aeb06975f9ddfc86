package facetcompose_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/model"
)

// fakeStore is an in-memory double for facetstore.Store, used so
// facetcompose can be tested without a real Postgres connection.
type fakeStore struct {
	byLabel     map[string][]model.SKUFact
	byID        map[int64]model.SKUFact
	matchingIDs []int64
	matchingErr error
	facets      []model.Facet
	facetsErr   error
	resolveErr  error
	lastFilters map[string][]string
	lastCandIDs []int64
}

func (f *fakeStore) ResolveSKUsByLabel(ctx context.Context, labels []string) (map[string][]model.SKUFact, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	out := make(map[string][]model.SKUFact, len(labels))
	for _, l := range labels {
		out[l] = f.byLabel[l]
	}
	return out, nil
}

func (f *fakeStore) ResolveSKUsByID(ctx context.Context, ids []int64) (map[int64]model.SKUFact, error) {
	out := make(map[int64]model.SKUFact, len(ids))
	for _, id := range ids {
		if fact, ok := f.byID[id]; ok {
			out[id] = fact
		}
	}
	return out, nil
}

func (f *fakeStore) MatchingSKUs(ctx context.Context, facetFilters map[string][]string, candidateSKUIDs []int64) ([]int64, error) {
	f.lastFilters = facetFilters
	f.lastCandIDs = candidateSKUIDs
	if f.matchingErr != nil {
		return nil, f.matchingErr
	}
	return f.matchingIDs, nil
}

func (f *fakeStore) FacetsForSKUs(ctx context.Context, skuIDs []int64, onlyActiveKeys bool) ([]model.Facet, error) {
	if f.facetsErr != nil {
		return nil, f.facetsErr
	}
	return f.facets, nil
}

func price(v float64) *float64 { return &v }

func TestCompose_LabelModeEnhancesWithFirstSKUFact(t *testing.T) {
	store := &fakeStore{
		byLabel: map[string][]model.SKUFact{
			"colgate total": {
				{BrandSKUID: 10, BrandSKULabel: "Colgate Total 12oz", BrandID: 1, BrandName: "Colgate"},
				{BrandSKUID: 11, BrandSKULabel: "Colgate Total 6oz", BrandID: 1, BrandName: "Colgate"},
			},
		},
		facets: []model.Facet{
			{StandardKey: "brand", FacetValue: "colgate", Count: 2, DisplayName: "Colgate"},
		},
	}
	c := facetcompose.New(store, zerolog.Nop())

	hits := []model.Hit{{Label: "colgate total", BrandLabel: "colgate", Score: 1.0}}
	res := c.Compose(context.Background(), hits, nil, false)

	require.Len(t, res.Hits, 1)
	require.NotNil(t, res.Hits[0].BrandSKUID)
	assert.Equal(t, int64(10), *res.Hits[0].BrandSKUID, "must attach the FIRST SKUFact per label, not a later one")
	assert.Equal(t, "Colgate Total 12oz", *res.Hits[0].BrandSKULabel)
}

func TestCompose_IDCarryingModeResolvesDirectly(t *testing.T) {
	id := int64(42)
	store := &fakeStore{
		byID: map[int64]model.SKUFact{
			42: {BrandSKUID: 42, BrandSKULabel: "Sensodyne Repair", BrandID: 7, BrandName: "Sensodyne"},
		},
		facets: nil,
	}
	c := facetcompose.New(store, zerolog.Nop())

	hits := []model.Hit{{Label: "sensodyne repair", Score: 0.5, BrandSKUID: &id}}
	res := c.Compose(context.Background(), hits, nil, false)

	require.Len(t, res.Hits, 1)
	require.NotNil(t, res.Hits[0].BrandName)
	assert.Equal(t, "Sensodyne", *res.Hits[0].BrandName)
}

func TestCompose_FacetFilterNarrowsHitsButNotFacetDisplay(t *testing.T) {
	idA, idB := int64(1), int64(2)
	store := &fakeStore{
		byID: map[int64]model.SKUFact{
			1: {BrandSKUID: 1, BrandSKULabel: "A", BrandName: "BrandA"},
			2: {BrandSKUID: 2, BrandSKULabel: "B", BrandName: "BrandB"},
		},
		matchingIDs: []int64{1},
		facets: []model.Facet{
			{StandardKey: "brand", FacetValue: "branda", Count: 1, DisplayName: "BrandA"},
			{StandardKey: "brand", FacetValue: "brandb", Count: 1, DisplayName: "BrandB"},
		},
	}
	c := facetcompose.New(store, zerolog.Nop())

	hits := []model.Hit{
		{Label: "a", Score: 0.1, BrandSKUID: &idA},
		{Label: "b", Score: 0.2, BrandSKUID: &idB},
	}
	res := c.Compose(context.Background(), hits, map[string][]string{"brand": {"branda"}}, false)

	require.Len(t, res.Hits, 1, "filter must drop the non-matching hit")
	assert.Equal(t, "a", res.Hits[0].Label)

	require.Len(t, res.Facets, 1)
	assert.Len(t, res.Facets[0].Values, 2, "facet aggregate must still reflect the unfiltered candidate set")
}

func TestCompose_PriceRangeFacetOrderedFirstByAscendingMinPrice(t *testing.T) {
	store := &fakeStore{
		facets: []model.Facet{
			{StandardKey: "brand", FacetValue: "x", Count: 9, DisplayName: "X"},
			{StandardKey: "price_range", FacetValue: "₹100 - ₹250", Count: 3, MinPrice: price(100)},
			{StandardKey: "price_range", FacetValue: "Under ₹100", Count: 5, MinPrice: price(0)},
			{StandardKey: "category", FacetValue: "y", Count: 2, DisplayName: "Y"},
		},
	}
	c := facetcompose.New(store, zerolog.Nop())
	hits := []model.Hit{{Label: "item", Score: 0}}
	res := c.Compose(context.Background(), hits, nil, false)

	require.GreaterOrEqual(t, len(res.Facets), 1)
	assert.Equal(t, "price_range", res.Facets[0].Key, "price_range must sort first regardless of count")
	require.Len(t, res.Facets[0].Values, 2)
	assert.Equal(t, "Under ₹100", res.Facets[0].Values[0].FacetValue, "price_range values sort by ascending min_price")
	assert.Equal(t, "₹100 - ₹250", res.Facets[0].Values[1].FacetValue)

	assert.Equal(t, "brand", res.Facets[1].Key, "brand (count 9) must outrank category (count 2)")
}

func TestCompose_DegradesToResultsOnlyOnStoreFailure(t *testing.T) {
	store := &fakeStore{resolveErr: assertErr{}}
	c := facetcompose.New(store, zerolog.Nop())

	hits := []model.Hit{{Label: "unresolvable item", Score: 0.3}}
	res := c.Compose(context.Background(), hits, nil, false)

	assert.Equal(t, hits, res.Hits, "must fall back to the original hits unchanged")
	assert.Empty(t, res.Facets)
}

func TestCompose_NilStoreIsAlwaysResultsOnly(t *testing.T) {
	c := facetcompose.New(nil, zerolog.Nop())
	hits := []model.Hit{{Label: "item", Score: 0}}
	res := c.Compose(context.Background(), hits, nil, false)
	assert.Equal(t, hits, res.Hits)
	assert.Empty(t, res.Facets)
}

type assertErr struct{}

func (assertErr) Error() string { return "store unavailable" }
