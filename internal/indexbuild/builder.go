// Package indexbuild implements the offline index-build pipeline (C3):
// CSV ingest, normalization, phonetic encoding, parallel embedding, and
// atomic persistence of the vector index, lookup, meta, and optional
// phonetic vocabulary artifacts.
package indexbuild

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"catalogue-search/internal/embedclient"
	"catalogue-search/internal/model"
	"catalogue-search/internal/phonetic"
	"catalogue-search/internal/searcherr"
	"catalogue-search/internal/vectorindex"
)

var lowerCaser = cases.Lower(language.Und)

const (
	colProductName  = "product_name"
	colBrandName    = "brand_name"
	colCategoryName = "category_name"
)

// Builder runs the offline index-build pipeline over a catalogue CSV.
type Builder struct {
	embed   *embedclient.Client
	workers int
	logger  zerolog.Logger
}

// New constructs a Builder using embed to compute search-text vectors
// with a bounded pool of the given size.
func New(embed *embedclient.Client, workers int, logger zerolog.Logger) *Builder {
	if workers <= 0 {
		workers = 4
	}
	return &Builder{embed: embed, workers: workers, logger: logger}
}

// Result is the full set of in-memory artifacts produced by Build, ready
// for Persist.
type Result struct {
	Index  *vectorindex.Index
	Lookup []model.ProductRecord
	Meta   model.Meta
	Vocab  []string
}

// Build reads csvPath (requiring the product_name/brand_name/category_name
// columns), normalizes each row, computes brand/product phonetic codes,
// embeds the composed search text over a bounded worker pool preserving
// input order, and assembles the in-memory index and lookup. If limit > 0,
// only the first limit data rows are read. Any failure here is fatal to
// the build; callers should not attempt to persist a partial Result.
func (b *Builder) Build(ctx context.Context, csvPath, modelName string, limit int) (Result, error) {
	rows, err := readCatalogue(csvPath, limit)
	if err != nil {
		return Result{}, err
	}
	b.logger.Info().Int("rows", len(rows)).Str("csv_path", csvPath).Msg("catalogue read")

	searchTexts := make([]string, len(rows))
	lookup := make([]model.ProductRecord, len(rows))
	vocabSet := make(map[string]struct{})

	for i, row := range rows {
		brandPrimary, brandAlt := phonetic.Encode(row.BrandName)
		productPrimary, productAlt := phonetic.Encode(row.ProductName)

		lookup[i] = model.ProductRecord{
			Label:              row.ProductName,
			BrandLabel:         row.BrandName,
			Category:           row.CategoryName,
			BrandPhonetic:      brandPrimary,
			BrandPhoneticAlt:   brandAlt,
			ProductPhonetic:    productPrimary,
			ProductPhoneticAlt: productAlt,
		}
		searchTexts[i] = composeSearchText(row)

		for _, c := range []string{brandPrimary, brandAlt, productPrimary, productAlt} {
			if c != "" {
				vocabSet[c] = struct{}{}
			}
		}
	}

	b.logger.Info().Int("workers", b.workers).Msg("embedding search text")
	vectors, err := b.embed.EmbedMany(ctx, searchTexts, b.workers, func(done, total int) {
		if total > 0 && (done%50 == 0 || done == total) {
			b.logger.Info().Int("done", done).Int("total", total).Msg("embedding progress")
		}
	})
	if err != nil {
		return Result{}, err
	}
	if len(vectors) != len(rows) {
		return Result{}, searcherr.New(searcherr.DimensionMismatch,
			fmt.Sprintf("embedded %d rows, expected %d", len(vectors), len(rows)))
	}

	dim := b.embed.Dim()
	idx, err := vectorindex.New(dim)
	if err != nil {
		return Result{}, err
	}
	for i, v := range vectors {
		if err := idx.Add(v); err != nil {
			return Result{}, fmt.Errorf("row %d: %w", i, err)
		}
	}

	vocab := make([]string, 0, len(vocabSet))
	for c := range vocabSet {
		vocab = append(vocab, c)
	}
	sort.Strings(vocab)

	return Result{
		Index:  idx,
		Lookup: lookup,
		Meta: model.Meta{
			NumItems:     len(rows),
			EmbeddingDim: dim,
			Model:        modelName,
			IndexType:    "flat-L2",
		},
		Vocab: vocab,
	}, nil
}

// Persist writes the index, lookup, meta, and (if vocabPath is non-empty)
// vocabulary files. Each file is written to a sibling temp path and
// renamed into place, so a crash mid-write never leaves a half-written
// file. The files are renamed one after another, so the set as a whole
// is not cross-file atomic: a crash between two renames leaves new and
// old files side by side.
func (r Result) Persist(indexPath, lookupPath, metaPath, vocabPath string) error {
	if err := r.Index.Save(indexPath); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := writeJSONAtomic(lookupPath, r.Lookup); err != nil {
		return fmt.Errorf("save lookup: %w", err)
	}
	if err := writeJSONAtomic(metaPath, r.Meta); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if vocabPath != "" {
		if err := writeJSONAtomic(vocabPath, r.Vocab); err != nil {
			return fmt.Errorf("save vocab: %w", err)
		}
	}
	return nil
}

func composeSearchText(row model.CatalogueRow) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{row.BrandName, row.ProductName, row.CategoryName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func normalize(s string) string {
	return strings.TrimSpace(lowerCaser.String(s))
}

// readCatalogue reads and normalizes the CSV at path, requiring the
// product_name/brand_name/category_name columns (additional columns are
// ignored). If limit > 0, only the first limit data rows are returned.
func readCatalogue(path string, limit int) ([]model.CatalogueRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.SchemaMismatch, "open catalogue csv", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, searcherr.Wrap(searcherr.SchemaMismatch, "read csv header", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, name := range header {
		colIdx[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colProductName, colBrandName, colCategoryName} {
		if _, ok := colIdx[required]; !ok {
			return nil, searcherr.New(searcherr.SchemaMismatch,
				fmt.Sprintf("csv missing required column %q", required))
		}
	}

	var rows []model.CatalogueRow
	for {
		if limit > 0 && len(rows) >= limit {
			break
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, searcherr.Wrap(searcherr.SchemaMismatch, "read csv row", err)
		}

		rows = append(rows, model.CatalogueRow{
			ProductName:  normalize(record[colIdx[colProductName]]),
			BrandName:    normalize(record[colIdx[colBrandName]]),
			CategoryName: normalize(record[colIdx[colCategoryName]]),
		})
	}
	return rows, nil
}

func writeJSONAtomic(path string, v interface{}) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// LoadLookup reads a previously-persisted lookup JSON file.
func LoadLookup(path string) ([]model.ProductRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.IndexCorrupt, "read lookup file", err)
	}
	var lookup []model.ProductRecord
	if err := json.Unmarshal(data, &lookup); err != nil {
		return nil, searcherr.Wrap(searcherr.IndexCorrupt, "decode lookup file", err)
	}
	return lookup, nil
}

// LoadMeta reads a previously-persisted meta JSON file.
func LoadMeta(path string) (model.Meta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Meta{}, searcherr.Wrap(searcherr.IndexCorrupt, "read meta file", err)
	}
	var meta model.Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.Meta{}, searcherr.Wrap(searcherr.IndexCorrupt, "decode meta file", err)
	}
	return meta, nil
}
