// Package model holds the data types shared across the index builder,
// the query engine, and the facet composer.
package model

// CatalogueRow is one row of the input CSV, already normalized
// (lowercased and trimmed).
type CatalogueRow struct {
	ProductName  string
	BrandName    string
	CategoryName string
}

// ProductRecord is one entry of the persisted lookup, at the same
// position as its vector in the index.
type ProductRecord struct {
	Label      string `json:"label"`
	BrandLabel string `json:"brandLabel"`
	Category   string `json:"category"`

	BrandPhonetic      string `json:"brand_phonetic"`
	BrandPhoneticAlt   string `json:"brand_phonetic_alt"`
	ProductPhonetic    string `json:"product_phonetic"`
	ProductPhoneticAlt string `json:"product_phonetic_alt"`
}

// Meta describes the persisted index artifacts.
type Meta struct {
	NumItems     int    `json:"num_items"`
	EmbeddingDim int    `json:"embedding_dim"`
	Model        string `json:"model"`
	IndexType    string `json:"index_type"`
}

// Query is a transient search request.
type Query struct {
	QueryText        string
	K                int
	PhoneticBoost    float64
	CandidatePool    int
	FacetFilters     map[string][]string
	OnlyActiveFacets bool
}

// Hit is one ranked search result. Smaller Score is better.
type Hit struct {
	Label      string  `json:"label"`
	BrandLabel string  `json:"brandLabel"`
	Category   string  `json:"category"`
	Score      float64 `json:"score"`

	BrandSKUID    *int64  `json:"brand_sku_id,omitempty"`
	BrandSKULabel *string `json:"brand_sku_label,omitempty"`
	BrandName     *string `json:"brand_name,omitempty"`
	BrandID       *int64  `json:"brand_id,omitempty"`

	// row is the candidate's position in the vector index, exposed through
	// Row(). Not serialized.
	row int `json:"-"`
}

// Row returns the candidate's vector-index row position.
func (h Hit) Row() int { return h.row }

// WithRow returns a copy of h with its row position set.
func (h Hit) WithRow(row int) Hit {
	h.row = row
	return h
}

// SKUFact is per-SKU metadata resolved from the relational facet/SKU store.
type SKUFact struct {
	BrandSKUID    int64
	BrandSKULabel string
	BrandID       int64
	BrandName     string
}

// Facet is a single `(standard_key, value, count)` aggregate used for
// filter UI, optionally carrying price-bucket bounds.
type Facet struct {
	StandardKey string   `json:"standard_key"`
	FacetValue  string   `json:"facet_value"`
	Count       int      `json:"count"`
	DisplayName string   `json:"display_name"`
	MinPrice    *float64 `json:"min_price,omitempty"`
	MaxPrice    *float64 `json:"max_price,omitempty"`
}

// PlaceholderValues are facet values treated as "no value" everywhere in
// the system: excluded from output and never satisfy filters.
var PlaceholderValues = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"na":   {},
	"null": {},
	"none": {},
	"-":    {},
}
