// Package facetcompose implements the faceted filter composer (C6):
// merges ranked hits with SKU/facet data from the relational store,
// applies facet filters without collapsing the facet display, and
// produces an ordered, counted facet model alongside the filtered hits.
package facetcompose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"catalogue-search/internal/model"
)

// Store is the subset of the facet/SKU provider client (C5) the composer
// depends on.
type Store interface {
	ResolveSKUsByLabel(ctx context.Context, labels []string) (map[string][]model.SKUFact, error)
	ResolveSKUsByID(ctx context.Context, ids []int64) (map[int64]model.SKUFact, error)
	MatchingSKUs(ctx context.Context, facetFilters map[string][]string, candidateSKUIDs []int64) ([]int64, error)
	FacetsForSKUs(ctx context.Context, skuIDs []int64, onlyActiveKeys bool) ([]model.Facet, error)
}

// Composer merges ranked hits with SKU/facet data.
type Composer struct {
	store  Store
	logger zerolog.Logger
}

// New constructs a Composer over a facet/SKU store. store may be nil, in
// which case Compose always degrades to results-only with empty facets
// (used when no DATABASE_URL is configured).
func New(store Store, logger zerolog.Logger) *Composer {
	return &Composer{store: store, logger: logger}
}

// FacetGroup is one standard_key's ordered facet values.
type FacetGroup struct {
	Key    string
	Values []model.Facet
}

// FacetSet is the ordered facet model: price_range first if present,
// then other keys by descending summed count. Marshals as a JSON object
// whose key order matches this ordering — encoding/json sorts map keys
// alphabetically, so a plain map cannot express the ordering contract,
// hence this hand-rolled MarshalJSON.
type FacetSet []FacetGroup

// MarshalJSON writes the facet groups as a JSON object in slice order.
func (fs FacetSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, g := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(g.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		values := g.Values
		if values == nil {
			values = []model.Facet{}
		}
		val, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads back a FacetSet produced by MarshalJSON, preserving
// the object's key order via token-level decoding (a map would discard
// it). Mainly exercised by tests round-tripping handler responses.
func (fs *FacetSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("facetcompose: expected a JSON object, got %v", tok)
	}

	var out FacetSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var values []model.Facet
		if err := dec.Decode(&values); err != nil {
			return err
		}
		out = append(out, FacetGroup{Key: key, Values: values})
	}
	*fs = out
	return nil
}

// Result is the composer's output.
type Result struct {
	Hits   []model.Hit
	Facets FacetSet
}

// Compose derives candidate SKU ids for hits, applies facetFilters
// without narrowing the facet display, and attaches the first matching
// SKUFact to each remaining hit. Any failure talking to the store is
// logged and degrades the request to results-only with empty facets,
// per the FacetUnavailable propagation policy — it never errors the
// whole request.
func (c *Composer) Compose(ctx context.Context, hits []model.Hit, facetFilters map[string][]string, onlyActiveFacets bool) Result {
	if c.store == nil || len(hits) == 0 {
		return Result{Hits: hits, Facets: FacetSet{}}
	}

	hitSKUIDs, byLabel, err := c.resolveCandidateIDs(ctx, hits)
	if err != nil {
		c.logger.Warn().Err(err).Msg("facet/sku resolution failed, degrading to results-only")
		return Result{Hits: hits, Facets: FacetSet{}}
	}

	allIDs := unionIDs(hitSKUIDs)

	facets, err := c.store.FacetsForSKUs(ctx, allIDs, onlyActiveFacets)
	if err != nil {
		c.logger.Warn().Err(err).Msg("facet aggregation failed, degrading to results-only")
		return Result{Hits: hits, Facets: FacetSet{}}
	}

	filtered := hits
	if len(facetFilters) > 0 {
		keepIDs, err := c.store.MatchingSKUs(ctx, facetFilters, allIDs)
		if err != nil {
			c.logger.Warn().Err(err).Msg("facet filter failed, degrading to results-only")
			return Result{Hits: hits, Facets: FacetSet{}}
		}
		keep := toSet(keepIDs)
		filtered = filtered[:0:0]
		for i, h := range hits {
			if intersects(hitSKUIDs[i], keep) {
				filtered = append(filtered, h)
			}
		}
		matchedByLabel := make(map[string][]model.SKUFact, len(byLabel))
		for label, facts := range byLabel {
			for _, f := range facts {
				if _, ok := keep[f.BrandSKUID]; ok {
					matchedByLabel[label] = append(matchedByLabel[label], f)
				}
			}
		}
		byLabel = matchedByLabel
	}

	enhanced, err := c.enhance(ctx, filtered, byLabel)
	if err != nil {
		c.logger.Warn().Err(err).Msg("hit enhancement failed, degrading to results-only")
		return Result{Hits: hits, Facets: FacetSet{}}
	}

	return Result{Hits: enhanced, Facets: OrderFacets(facets)}
}

// resolveCandidateIDs implements the two resolution modes of §4.6 step 1:
// hits that already carry a brand_sku_id use it directly; the rest are
// resolved by label. Returns, per original hit index, its candidate SKU
// ids, plus the by-label resolution map for later enhancement.
func (c *Composer) resolveCandidateIDs(ctx context.Context, hits []model.Hit) ([][]int64, map[string][]model.SKUFact, error) {
	hitSKUIDs := make([][]int64, len(hits))

	var labelsNeeded []string
	seen := make(map[string]struct{})
	for _, h := range hits {
		if h.BrandSKUID != nil {
			continue
		}
		if _, ok := seen[h.Label]; ok {
			continue
		}
		seen[h.Label] = struct{}{}
		labelsNeeded = append(labelsNeeded, h.Label)
	}

	var byLabel map[string][]model.SKUFact
	if len(labelsNeeded) > 0 {
		var err error
		byLabel, err = c.store.ResolveSKUsByLabel(ctx, labelsNeeded)
		if err != nil {
			return nil, nil, err
		}
	}

	for i, h := range hits {
		if h.BrandSKUID != nil {
			hitSKUIDs[i] = []int64{*h.BrandSKUID}
			continue
		}
		for _, fact := range byLabel[h.Label] {
			hitSKUIDs[i] = append(hitSKUIDs[i], fact.BrandSKUID)
		}
	}

	return hitSKUIDs, byLabel, nil
}

// enhance attaches the first SKUFact per hit (brand_sku_id, brand_sku_label,
// brand_name, brand_id) to each of the (possibly filtered) hits. When a
// filter was applied, Compose passes byLabel restricted to the SKUs that
// satisfied it, so the first matching SKU is the one attached.
func (c *Composer) enhance(ctx context.Context, hits []model.Hit, byLabel map[string][]model.SKUFact) ([]model.Hit, error) {
	var idCarryingIDs []int64
	for _, h := range hits {
		if h.BrandSKUID != nil {
			idCarryingIDs = append(idCarryingIDs, *h.BrandSKUID)
		}
	}
	var byID map[int64]model.SKUFact
	if len(idCarryingIDs) > 0 {
		var err error
		byID, err = c.store.ResolveSKUsByID(ctx, idCarryingIDs)
		if err != nil {
			return nil, err
		}
	}

	out := make([]model.Hit, len(hits))
	for i, h := range hits {
		var fact model.SKUFact
		var ok bool
		if h.BrandSKUID != nil {
			fact, ok = byID[*h.BrandSKUID]
		} else if facts := byLabel[h.Label]; len(facts) > 0 {
			fact, ok = facts[0], true
		}
		if ok {
			h.BrandSKUID = &fact.BrandSKUID
			h.BrandSKULabel = &fact.BrandSKULabel
			h.BrandName = &fact.BrandName
			h.BrandID = &fact.BrandID
		}
		out[i] = h
	}
	return out, nil
}

// OrderFacets groups flat facet rows by standard_key and orders them per
// §6: price_range first if present, then other keys by descending summed
// count; values within a key by descending count, except price_range
// which sorts by ascending min_price. Exported so the /facets handler can
// apply the same ordering without going through a Composer.
func OrderFacets(facets []model.Facet) FacetSet {
	byKey := make(map[string][]model.Facet)
	var keys []string
	for _, f := range facets {
		if _, ok := byKey[f.StandardKey]; !ok {
			keys = append(keys, f.StandardKey)
		}
		byKey[f.StandardKey] = append(byKey[f.StandardKey], f)
	}

	var priceRange []model.Facet
	var otherKeys []string
	for _, k := range keys {
		if k == "price_range" {
			priceRange = byKey[k]
			continue
		}
		otherKeys = append(otherKeys, k)
	}

	sort.Slice(priceRange, func(i, j int) bool {
		return minPrice(priceRange[i]) < minPrice(priceRange[j])
	})

	sort.Slice(otherKeys, func(i, j int) bool {
		ci, cj := sumCount(byKey[otherKeys[i]]), sumCount(byKey[otherKeys[j]])
		if ci != cj {
			return ci > cj
		}
		return otherKeys[i] < otherKeys[j] // deterministic tiebreak
	})
	for _, k := range otherKeys {
		vs := byKey[k]
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].Count > vs[j].Count })
	}

	out := make(FacetSet, 0, len(keys))
	if priceRange != nil {
		out = append(out, FacetGroup{Key: "price_range", Values: priceRange})
	}
	for _, k := range otherKeys {
		out = append(out, FacetGroup{Key: k, Values: byKey[k]})
	}
	return out
}

func minPrice(f model.Facet) float64 {
	if f.MinPrice != nil {
		return *f.MinPrice
	}
	return 0
}

func sumCount(fs []model.Facet) int {
	total := 0
	for _, f := range fs {
		total += f.Count
	}
	return total
}

func unionIDs(idGroups [][]int64) []int64 {
	set := make(map[int64]struct{})
	for _, ids := range idGroups {
		for _, id := range ids {
			set[id] = struct{}{}
		}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func intersects(ids []int64, set map[int64]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

