// Package vectorindex implements an exact flat L2 nearest-neighbour index:
// a dense slice of fixed-dimension vectors, searched by brute-force
// squared-distance scan. Read-only once loaded, safe for concurrent
// queries.
package vectorindex

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"catalogue-search/internal/searcherr"
)

// Index is an exact flat L2 vector index of fixed dimension.
type Index struct {
	dim     int
	vectors [][]float32
}

// New creates an empty index of the given dimension. dim must be > 0.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, searcherr.New(searcherr.DimensionMismatch, fmt.Sprintf("invalid embedding dimension %d", dim))
	}
	return &Index{dim: dim}, nil
}

// Dim returns the index's fixed embedding dimension.
func (idx *Index) Dim() int { return idx.dim }

// Len returns the number of vectors currently in the index.
func (idx *Index) Len() int { return len(idx.vectors) }

// Add appends a vector to the index, in order. Returns DimensionMismatch
// if the vector's length differs from the index's dimension.
func (idx *Index) Add(v []float32) error {
	if len(v) != idx.dim {
		return searcherr.New(searcherr.DimensionMismatch,
			fmt.Sprintf("vector has dimension %d, index expects %d", len(v), idx.dim))
	}
	cp := make([]float32, idx.dim)
	copy(cp, v)
	idx.vectors = append(idx.vectors, cp)
	return nil
}

// Candidate is one search result: a vector-index row and its squared L2
// distance from the query.
type Candidate struct {
	Row      int
	Distance float64
}

// Search returns the nprobe nearest neighbours of q by L2 distance,
// ascending; equal distances keep insertion order. A negative Row in the result set never occurs here (every
// slot is populated); the convention is preserved for callers that
// persist Candidate sets from sparser index implementations.
func (idx *Index) Search(q []float32, nprobe int) ([]Candidate, error) {
	if len(q) != idx.dim {
		return nil, searcherr.New(searcherr.DimensionMismatch,
			fmt.Sprintf("query has dimension %d, index expects %d", len(q), idx.dim))
	}
	if nprobe <= 0 || nprobe > len(idx.vectors) {
		nprobe = len(idx.vectors)
	}

	candidates := make([]Candidate, len(idx.vectors))
	for row, v := range idx.vectors {
		candidates[row] = Candidate{Row: row, Distance: l2(q, v)}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if nprobe < len(candidates) {
		candidates = candidates[:nprobe]
	}
	return candidates, nil
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

type persisted struct {
	Dim     int
	Vectors [][]float32
}

// Save atomically persists the index: encode to a sibling temp file, then
// rename into place so a crash never leaves a half-written index file.
func (idx *Index) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}

	w := bufio.NewWriter(f)
	enc := gob.NewEncoder(w)
	if err := enc.Encode(persisted{Dim: idx.dim, Vectors: idx.vectors}); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("flush index: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

// Load reads a previously Saved index. Returns IndexCorrupt if the file
// is missing or unreadable.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, searcherr.Wrap(searcherr.IndexCorrupt, "open index file", err)
	}
	defer f.Close()

	var p persisted
	dec := gob.NewDecoder(bufio.NewReader(f))
	if err := dec.Decode(&p); err != nil {
		return nil, searcherr.Wrap(searcherr.IndexCorrupt, "decode index file", err)
	}
	if p.Dim <= 0 {
		return nil, searcherr.New(searcherr.IndexCorrupt, "index file has non-positive dimension")
	}
	for i, v := range p.Vectors {
		if len(v) != p.Dim {
			return nil, searcherr.New(searcherr.IndexCorrupt,
				fmt.Sprintf("row %d has dimension %d, index declares %d", i, len(v), p.Dim))
		}
	}

	return &Index{dim: p.Dim, vectors: p.Vectors}, nil
}
