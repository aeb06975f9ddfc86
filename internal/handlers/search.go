package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/model"
	"catalogue-search/internal/queryengine"
	"catalogue-search/internal/searcherr"
)

// SearchEngine is the subset of *queryengine.Engine the search handler
// depends on.
type SearchEngine interface {
	Search(ctx context.Context, q model.Query, w queryengine.Weights, reportTiming bool) (queryengine.Result, error)
}

// FacetComposer is the subset of *facetcompose.Composer the search handler
// depends on.
type FacetComposer interface {
	Compose(ctx context.Context, hits []model.Hit, facetFilters map[string][]string, onlyActiveFacets bool) facetcompose.Result
}

// SearchDefaults carries the config-sourced weights and pool sizing the
// handler falls back to when a request omits them.
type SearchDefaults struct {
	K                    int
	CandidatePool        int
	Weights              queryengine.Weights
	OnlyActiveFacetsDflt bool
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Results      []model.Hit          `json:"results"`
	Facets       facetcompose.FacetSet `json:"facets"`
	Timing       *queryengine.Timing   `json:"timing,omitempty"`
	TotalResults int                   `json:"total_results"`
	Error        string                `json:"error,omitempty"`
}

// SearchHandler serves GET /search?q&k&active_facets&facet_<key>=<value>*.
// An empty q short-circuits with the documented empty-results error shape
// and never reaches the embedding service; any other failure from the
// engine or composer degrades to a recoverable error shape rather than an
// HTTP 4xx/5xx, per the propagation policy.
//
// @Summary Hybrid catalogue search
// @Description Search the catalogue by free text, combining vector similarity with phonetic and fuzzy reranking
// @Tags search
// @Accept json
// @Produce json
// @Param q query string true "search text"
// @Param k query int false "number of results"
// @Param active_facets query bool false "restrict facets to active keys"
// @Success 200 {object} SearchResponse
// @Router /search [get]
func SearchHandler(engine SearchEngine, composer FacetComposer, d SearchDefaults) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParam("q")
		if strings.TrimSpace(q) == "" {
			return c.JSON(http.StatusOK, SearchResponse{
				Results: []model.Hit{}, Facets: facetcompose.FacetSet{},
				Error: "No search query provided",
			})
		}

		query := model.Query{
			QueryText:        q,
			K:                intParam(c, "k", d.K),
			CandidatePool:    d.CandidatePool,
			PhoneticBoost:    d.Weights.PhoneticBoost,
			FacetFilters:     parseFacetFilters(c),
			OnlyActiveFacets: boolParam(c, "active_facets", d.OnlyActiveFacetsDflt),
		}

		reportTiming := c.QueryParam("timing") != ""
		result, err := engine.Search(c.Request().Context(), query, d.Weights, reportTiming)
		if err != nil {
			return c.JSON(http.StatusOK, SearchResponse{
				Results: []model.Hit{}, Facets: facetcompose.FacetSet{},
				Error: errorMessage(err),
			})
		}

		composed := composer.Compose(c.Request().Context(), result.Hits, query.FacetFilters, query.OnlyActiveFacets)
		return c.JSON(http.StatusOK, SearchResponse{
			Results:      composed.Hits,
			Facets:       composed.Facets,
			Timing:       result.Timing,
			TotalResults: len(composed.Hits),
		})
	}
}

// parseFacetFilters collects every facet_<key> query param into the
// FacetFilters map; unknown keys are accepted and applied as additional
// AND filters, per spec.
func parseFacetFilters(c echo.Context) map[string][]string {
	filters := make(map[string][]string)
	for key, values := range c.QueryParams() {
		if !strings.HasPrefix(key, "facet_") {
			continue
		}
		facetKey := strings.TrimPrefix(key, "facet_")
		if facetKey == "" {
			continue
		}
		filters[facetKey] = append(filters[facetKey], values...)
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func intParam(c echo.Context, name string, dflt int) int {
	v := c.QueryParam(name)
	if v == "" {
		return dflt
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return dflt
	}
	return n
}

func boolParam(c echo.Context, name string, dflt bool) bool {
	v := c.QueryParam(name)
	if v == "" {
		return dflt
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return dflt
	}
	return b
}

func errorMessage(err error) string {
	if kind := searcherr.KindOf(err); kind != searcherr.Unknown {
		return kind.String() + ": " + err.Error()
	}
	return err.Error()
}
