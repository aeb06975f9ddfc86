package facetstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB), mock
}

func TestResolveSKUsByLabel_MapsCaseInsensitiveByOriginalLabel(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "label", "brandId", "brandLabel"}).
		AddRow(int64(1), "Colgate Total", int64(9), "Colgate")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, label, "brandId", "brandLabel" FROM skus WHERE lower(label) = ANY($1)`)).
		WillReturnRows(rows)

	result, err := store.ResolveSKUsByLabel(context.Background(), []string{"colgate total"})
	require.NoError(t, err)

	require.Len(t, result["colgate total"], 1)
	assert.Equal(t, int64(1), result["colgate total"][0].BrandSKUID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSKUsByLabel_EmptyInputSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)
	result, err := store.ResolveSKUsByLabel(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveSKUsByID(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "label", "brandId", "brandLabel"}).
		AddRow(int64(7), "Sensodyne Repair", int64(2), "Sensodyne")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, label, "brandId", "brandLabel" FROM skus WHERE id = ANY($1)`)).
		WillReturnRows(rows)

	result, err := store.ResolveSKUsByID(context.Background(), []int64{7})
	require.NoError(t, err)
	require.Contains(t, result, int64(7))
	assert.Equal(t, "Sensodyne", result[7].BrandName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchingSKUs_NoFiltersReturnsCandidatesUnchanged(t *testing.T) {
	store, mock := newMockStore(t)
	ids, err := store.MatchingSKUs(context.Background(), nil, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchingSKUs_CategoricalFilterIntersectsCandidates(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"brandSKUId"}).AddRow(int64(1))
	mock.ExpectQuery(`SELECT DISTINCT "brandSKUId" FROM facets`).WillReturnRows(rows)

	ids, err := store.MatchingSKUs(context.Background(), map[string][]string{"brand": {"colgate"}}, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMatchingSKUs_PriceRangeFilterResolvesBucketToInterval(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id"}).AddRow(int64(5))
	mock.ExpectQuery(`SELECT id FROM skus WHERE id = ANY\(\$1\) AND \(.*\)`).WillReturnRows(rows)

	ids, err := store.MatchingSKUs(context.Background(), map[string][]string{"price_range": {"Under ₹100"}}, []int64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacetsForSKUs_ExcludesPlaceholderValuesAndAddsPriceBuckets(t *testing.T) {
	store, mock := newMockStore(t)

	facetRows := sqlmock.NewRows([]string{"standardKey", "effective_value", "cnt"}).
		AddRow("brand", "colgate", 3).
		AddRow("brand", "n/a", 1)
	mock.ExpectQuery(`SELECT "standardKey", COALESCE`).WillReturnRows(facetRows)

	priceRows := sqlmock.NewRows([]string{"consumerSellingPrice"}).AddRow(50.0).AddRow(150.0)
	mock.ExpectQuery(`SELECT "consumerSellingPrice" FROM skus`).WillReturnRows(priceRows)

	facets, err := store.FacetsForSKUs(context.Background(), []int64{1, 2}, false)
	require.NoError(t, err)

	var sawBrand, sawPrice0, sawPrice1 bool
	for _, f := range facets {
		if f.StandardKey == "brand" {
			assert.NotEqual(t, "n/a", f.FacetValue, "placeholder facet values must be excluded")
			sawBrand = true
		}
		if f.StandardKey == "price_range" {
			switch f.FacetValue {
			case "Under ₹100":
				sawPrice0 = true
			case "₹100 - ₹250":
				sawPrice1 = true
			}
		}
	}
	assert.True(t, sawBrand)
	assert.True(t, sawPrice0)
	assert.True(t, sawPrice1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, "Under ₹100", bucketFor(50))
	assert.Equal(t, "₹250 - ₹500", bucketFor(300))
	assert.Equal(t, "Above ₹5,000", bucketFor(9999))
	assert.Equal(t, "", bucketFor(0))
	assert.Equal(t, "", bucketFor(200000))
}

func TestIsPlaceholder(t *testing.T) {
	for _, v := range []string{"", "n/a", "NA", "Null", "none", "-", "  na  "} {
		assert.True(t, isPlaceholder(v), "%q should be a placeholder", v)
	}
	assert.False(t, isPlaceholder("colgate"))
}
