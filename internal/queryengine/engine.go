// Package queryengine implements the hybrid query engine (C4): embed the
// query, retrieve a candidate pool by L2 nearest-neighbour search, and
// rerank by combining semantic distance with phonetic and fuzzy string
// signals into a stable, deterministic top-k.
package queryengine

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"catalogue-search/internal/embedclient"
	"catalogue-search/internal/fuzzy"
	"catalogue-search/internal/model"
	"catalogue-search/internal/phonetic"
	"catalogue-search/internal/searcherr"
	"catalogue-search/internal/vectorindex"
)

// Weights holds the additive scoring knobs, sourced from config.
type Weights struct {
	PhoneticBoost        float64
	ProductPhoneticBoost float64
	PhoneticApproxBoost  float64
	FuzzyJaroWeight      float64
	PhoneticCodeMaxEdits int
}

// Timing is the optional per-phase duration breakdown, in milliseconds.
type Timing struct {
	EmbedMs  int64 `json:"embed_ms"`
	ANNMs    int64 `json:"ann_ms"`
	RerankMs int64 `json:"rerank_ms"`
}

// Result is the outcome of a single Search call.
type Result struct {
	Hits   []model.Hit
	Timing *Timing
}

// Engine is the read-only, concurrency-safe hybrid query engine. Once
// constructed, its index and lookup are never mutated; multiple queries
// may run concurrently on distinct goroutines.
type Engine struct {
	embed  *embedclient.Client
	index  *vectorindex.Index
	lookup []model.ProductRecord
	logger zerolog.Logger
}

// New constructs an Engine over an already-loaded index and lookup. The
// caller is responsible for the index-parity invariant: len(lookup) must
// equal index.Len().
func New(embed *embedclient.Client, index *vectorindex.Index, lookup []model.ProductRecord, logger zerolog.Logger) *Engine {
	return &Engine{embed: embed, index: index, lookup: lookup, logger: logger}
}

// NumItems returns the number of indexed records, used by the health
// endpoint.
func (e *Engine) NumItems() int { return len(e.lookup) }

// Search runs the full embed -> ANN -> rerank pipeline for a single
// query, sequentially. The empty query short-circuits before any
// embedding call is made, per spec.
func (e *Engine) Search(ctx context.Context, q model.Query, w Weights, reportTiming bool) (Result, error) {
	if q.QueryText == "" {
		return Result{Hits: []model.Hit{}}, nil
	}
	if e.index.Len() != len(e.lookup) {
		return Result{}, searcherr.New(searcherr.IndexCorrupt, "index and lookup length mismatch")
	}

	queryCodes := phonetic.QueryCodes(q.QueryText)

	embedStart := time.Now()
	qvec, err := e.embed.Embed(ctx, q.QueryText)
	embedMs := time.Since(embedStart).Milliseconds()
	if err != nil {
		return Result{}, err
	}

	nprobe := q.CandidatePool
	if q.K > nprobe {
		nprobe = q.K
	}

	annStart := time.Now()
	candidates, err := e.index.Search(qvec, nprobe)
	annMs := time.Since(annStart).Milliseconds()
	if err != nil {
		return Result{}, err
	}

	rerankStart := time.Now()
	hits := e.rerank(candidates, queryCodes, q, w)
	rerankMs := time.Since(rerankStart).Milliseconds()

	if q.K > 0 && len(hits) > q.K {
		hits = hits[:q.K]
	}

	result := Result{Hits: hits}
	if reportTiming {
		result.Timing = &Timing{EmbedMs: embedMs, ANNMs: annMs, RerankMs: rerankMs}
	}
	return result, nil
}

// rerank computes the final_score for each ANN candidate and returns them
// sorted ascending (smaller is better), stable on ties so ANN order (and
// hence L2 order) is the implicit tiebreak.
func (e *Engine) rerank(candidates []vectorindex.Candidate, queryCodes map[string]struct{}, q model.Query, w Weights) []model.Hit {
	hits := make([]model.Hit, 0, len(candidates))
	for _, c := range candidates {
		if c.Row < 0 || c.Row >= len(e.lookup) {
			continue // negative/out-of-range row marks an empty slot
		}
		rec := e.lookup[c.Row]
		score := c.Distance

		if phonetic.ExactMatch(rec.BrandPhonetic, queryCodes) || phonetic.ExactMatch(rec.BrandPhoneticAlt, queryCodes) {
			score -= w.PhoneticBoost
		} else if phonetic.TolerantMatch(rec.BrandPhonetic, queryCodes, w.PhoneticCodeMaxEdits) ||
			phonetic.TolerantMatch(rec.BrandPhoneticAlt, queryCodes, w.PhoneticCodeMaxEdits) {
			score -= w.PhoneticApproxBoost
		}

		if phonetic.ExactMatch(rec.ProductPhonetic, queryCodes) || phonetic.ExactMatch(rec.ProductPhoneticAlt, queryCodes) {
			score -= w.ProductPhoneticBoost
		} else if phonetic.TolerantMatch(rec.ProductPhonetic, queryCodes, w.PhoneticCodeMaxEdits) ||
			phonetic.TolerantMatch(rec.ProductPhoneticAlt, queryCodes, w.PhoneticCodeMaxEdits) {
			score -= w.PhoneticApproxBoost
		}

		jw := fuzzy.JaroWinkler(q.QueryText, rec.Label)
		score -= w.FuzzyJaroWeight * jw

		hit := model.Hit{
			Label:      rec.Label,
			BrandLabel: rec.BrandLabel,
			Category:   rec.Category,
			Score:      score,
		}
		hits = append(hits, hit.WithRow(c.Row))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score < hits[j].Score
	})
	return hits
}
