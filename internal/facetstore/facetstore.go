// Package facetstore is a thin adapter over the relational facet/SKU
// store: resolving product labels and SKU ids to SKU metadata, filtering
// candidate SKU ids by facet selections, and aggregating facet counts
// (including bucketed price ranges).
package facetstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/jmoiron/sqlx"

	"catalogue-search/internal/model"
	"catalogue-search/internal/searcherr"
)

// Connect opens the relational facet/SKU store. A single long-lived
// handle is kept per process; database/sql's pool makes it safe under
// concurrent invocation without further serialization.
func Connect(databaseURL string) (*sqlx.DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open facet store: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping facet store: %w", err)
	}

	return db, nil
}

// Store is the relational facet/SKU adapter.
type Store struct {
	db *sqlx.DB
}

// New wraps an already-open facet store handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// priceBucket is one row of the fixed price-range bucket table.
type priceBucket struct {
	Label string
	Min   float64
	Max   float64 // exclusive; +Inf for the open-ended top bucket
}

// priceBuckets is the fixed bucket table from the external interface
// definition, in ascending min-price order.
var priceBuckets = []priceBucket{
	{"Under ₹100", 0, 100},
	{"₹100 - ₹250", 100, 250},
	{"₹250 - ₹500", 250, 500},
	{"₹500 - ₹1,000", 500, 1000},
	{"₹1,000 - ₹2,500", 1000, 2500},
	{"₹2,500 - ₹5,000", 2500, 5000},
	{"Above ₹5,000", 5000, inf},
}

const inf = 1e18

// bucketFor returns the label of the single bucket containing price, or
// "" if price is outside the bucketed range (0, 100000).
func bucketFor(price float64) string {
	if price <= 0 || price >= 100000 {
		return ""
	}
	for _, b := range priceBuckets {
		if price >= b.Min && price < b.Max {
			return b.Label
		}
	}
	return ""
}

// isPlaceholder reports whether a facet value's trimmed, lowercased form
// is one of the reserved placeholder strings that never appear in output
// and never satisfy filters.
func isPlaceholder(v string) bool {
	_, ok := model.PlaceholderValues[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ResolveSKUsByLabel maps each input label (case-insensitive exact match)
// to zero or more SKUFacts. The original input label (not the lowercased
// form) is the map key, so callers can correlate back.
func (s *Store) ResolveSKUsByLabel(ctx context.Context, labels []string) (map[string][]model.SKUFact, error) {
	result := make(map[string][]model.SKUFact, len(labels))
	if len(labels) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	lowered := make([]string, len(labels))
	for i, l := range labels {
		lowered[i] = strings.ToLower(l)
	}

	query := `SELECT id, label, "brandId", "brandLabel" FROM skus WHERE lower(label) = ANY($1)`
	rows, err := s.db.QueryxContext(ctx, query, pqStringArray(lowered))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "resolve skus by label", err)
	}
	defer rows.Close()

	byLower := make(map[string][]model.SKUFact)
	for rows.Next() {
		var row struct {
			ID         int64  `db:"id"`
			Label      string `db:"label"`
			BrandID    int64  `db:"brandId"`
			BrandLabel string `db:"brandLabel"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan sku row", err)
		}
		key := strings.ToLower(row.Label)
		byLower[key] = append(byLower[key], model.SKUFact{
			BrandSKUID:    row.ID,
			BrandSKULabel: row.Label,
			BrandID:       row.BrandID,
			BrandName:     row.BrandLabel,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "iterate sku rows", err)
	}

	for _, original := range labels {
		result[original] = byLower[strings.ToLower(original)]
	}
	return result, nil
}

// ResolveSKUsByID resolves a set of SKU ids directly to their SKUFacts.
func (s *Store) ResolveSKUsByID(ctx context.Context, ids []int64) (map[int64]model.SKUFact, error) {
	result := make(map[int64]model.SKUFact, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	query := `SELECT id, label, "brandId", "brandLabel" FROM skus WHERE id = ANY($1)`
	rows, err := s.db.QueryxContext(ctx, query, pqInt64Array(ids))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "resolve skus by id", err)
	}
	defer rows.Close()

	for rows.Next() {
		var row struct {
			ID         int64  `db:"id"`
			Label      string `db:"label"`
			BrandID    int64  `db:"brandId"`
			BrandLabel string `db:"brandLabel"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan sku row", err)
		}
		result[row.ID] = model.SKUFact{
			BrandSKUID:    row.ID,
			BrandSKULabel: row.Label,
			BrandID:       row.BrandID,
			BrandName:     row.BrandLabel,
		}
	}
	return result, rows.Err()
}

// MatchingSKUs returns the subset of candidateSKUIDs satisfying all
// facetFilters. Categorical filters require an active facet row whose
// effective value (COALESCE(standardValue, value)) is in the selected
// set, excluding placeholder values. price_range filter values are
// bucket label strings, resolved to half-open numeric intervals.
// Multi-select within a key is OR; across keys is AND.
func (s *Store) MatchingSKUs(ctx context.Context, facetFilters map[string][]string, candidateSKUIDs []int64) ([]int64, error) {
	if len(facetFilters) == 0 {
		return candidateSKUIDs, nil
	}
	if len(candidateSKUIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	keep := toSet(candidateSKUIDs)

	keys := make([]string, 0, len(facetFilters))
	for k := range facetFilters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := facetFilters[key]
		var matched map[int64]struct{}
		var err error
		if key == "price_range" {
			matched, err = s.matchPriceRange(ctx, values, candidateSKUIDs)
		} else {
			matched, err = s.matchCategorical(ctx, key, values, candidateSKUIDs)
		}
		if err != nil {
			return nil, err
		}
		keep = intersect(keep, matched)
		if len(keep) == 0 {
			break
		}
	}

	out := make([]int64, 0, len(keep))
	for id := range keep {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) matchCategorical(ctx context.Context, key string, values []string, candidateSKUIDs []int64) (map[int64]struct{}, error) {
	selected := make([]string, 0, len(values))
	for _, v := range values {
		if !isPlaceholder(v) {
			selected = append(selected, strings.ToLower(strings.TrimSpace(v)))
		}
	}
	out := make(map[int64]struct{})
	if len(selected) == 0 {
		return out, nil
	}

	query := `SELECT DISTINCT "brandSKUId" FROM facets
		WHERE "standardKey" = $1 AND "isActive" = true
		  AND "brandSKUId" = ANY($2)
		  AND lower(COALESCE("standardValue", "value")) = ANY($3)`
	rows, err := s.db.QueryContext(ctx, query, key, pqInt64Array(candidateSKUIDs), pqStringArray(selected))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "match categorical facet", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan matching sku id", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (s *Store) matchPriceRange(ctx context.Context, bucketLabels []string, candidateSKUIDs []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{})
	var conds []string
	var args []interface{}
	args = append(args, pqInt64Array(candidateSKUIDs))
	argN := 2
	for _, label := range bucketLabels {
		for _, b := range priceBuckets {
			if b.Label == label {
				if b.Max >= inf {
					conds = append(conds, fmt.Sprintf(`"consumerSellingPrice" >= $%d`, argN))
					args = append(args, b.Min)
					argN++
				} else {
					conds = append(conds, fmt.Sprintf(`("consumerSellingPrice" >= $%d AND "consumerSellingPrice" < $%d)`, argN, argN+1))
					args = append(args, b.Min, b.Max)
					argN += 2
				}
				break
			}
		}
	}
	if len(conds) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`SELECT id FROM skus WHERE id = ANY($1) AND (%s)`, strings.Join(conds, " OR "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "match price range facet", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan matching sku id", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// FacetsForSKUs returns, per standard_key, the effective facet values
// present on skuIDs (placeholder values excluded), plus a synthesized
// price_range bucket aggregation. If onlyActiveKeys, categorical keys are
// restricted to those marked active in the active-keys relation.
func (s *Store) FacetsForSKUs(ctx context.Context, skuIDs []int64, onlyActiveKeys bool) ([]model.Facet, error) {
	if len(skuIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	query := `SELECT "standardKey", COALESCE("standardValue", "value") AS effective_value, COUNT(DISTINCT "brandSKUId") AS cnt
		FROM facets
		WHERE "brandSKUId" = ANY($1) AND "isActive" = true`
	if onlyActiveKeys {
		query += ` AND "standardKey" IN (SELECT "standardKey" FROM active_facet_keys WHERE "isActive" = true)`
	}
	query += ` GROUP BY "standardKey", COALESCE("standardValue", "value")`

	rows, err := s.db.QueryContext(ctx, query, pqInt64Array(skuIDs))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "aggregate facets", err)
	}
	defer rows.Close()

	var facets []model.Facet
	for rows.Next() {
		var key, value string
		var count int
		if err := rows.Scan(&key, &value, &count); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan facet aggregate", err)
		}
		if isPlaceholder(value) {
			continue
		}
		facets = append(facets, model.Facet{
			StandardKey: key,
			FacetValue:  value,
			Count:       count,
			DisplayName: value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "iterate facet aggregates", err)
	}

	priceFacets, err := s.priceRangeFacets(ctx, skuIDs)
	if err != nil {
		return nil, err
	}
	facets = append(facets, priceFacets...)

	return facets, nil
}

func (s *Store) priceRangeFacets(ctx context.Context, skuIDs []int64) ([]model.Facet, error) {
	query := `SELECT "consumerSellingPrice" FROM skus WHERE id = ANY($1) AND "consumerSellingPrice" > 0 AND "consumerSellingPrice" < 100000`
	rows, err := s.db.QueryContext(ctx, query, pqInt64Array(skuIDs))
	if err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "aggregate price range facets", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(priceBuckets))
	for rows.Next() {
		var price float64
		if err := rows.Scan(&price); err != nil {
			return nil, searcherr.Wrap(searcherr.FacetUnavailable, "scan sku price", err)
		}
		if label := bucketFor(price); label != "" {
			counts[label]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, searcherr.Wrap(searcherr.FacetUnavailable, "iterate sku prices", err)
	}

	var out []model.Facet
	for _, b := range priceBuckets {
		count, ok := counts[b.Label]
		if !ok {
			continue
		}
		minV, maxV := b.Min, b.Max
		f := model.Facet{
			StandardKey: "price_range",
			FacetValue:  b.Label,
			Count:       count,
			DisplayName: b.Label,
			MinPrice:    &minV,
		}
		if maxV < inf {
			f.MaxPrice = &maxV
		}
		out = append(out, f)
	}
	return out, nil
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func intersect(a, b map[int64]struct{}) map[int64]struct{} {
	out := make(map[int64]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
