package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"catalogue-search/internal/facetcompose"
	"catalogue-search/internal/model"
)

// FacetQuerier is the subset of *facetstore.Store the /facets handler
// depends on directly (it has no ranked hits to compose over, so it talks
// to the store without going through a Composer).
type FacetQuerier interface {
	FacetsForSKUs(ctx context.Context, skuIDs []int64, onlyActiveKeys bool) ([]model.Facet, error)
}

// FacetsResponse is the body of GET /facets.
type FacetsResponse struct {
	Facets         facetcompose.FacetSet `json:"facets"`
	FacetsComplete bool                  `json:"facets_complete"`
}

// FacetsHandler serves
// GET /facets?brand_sku_ids&active_facets&facet_<key>=<value>*. Any
// facet_ filters present on the request are accepted (for symmetry with
// /search) but never narrow the facet keys/values themselves: facets are
// always aggregated over the full brand_sku_ids set, per the
// facet-stability-under-filtering invariant. If store is nil or the
// aggregation call fails, it degrades to empty facets with
// facets_complete=false rather than a 4xx/5xx.
//
// @Summary Facet aggregation
// @Description Aggregate facet counts for a set of SKUs; facet_ filters are accepted but not applied
// @Tags facets
// @Accept json
// @Produce json
// @Param brand_sku_ids query string true "comma-separated SKU ids"
// @Param active_facets query bool false "restrict to active facet keys"
// @Success 200 {object} FacetsResponse
// @Router /facets [get]
func FacetsHandler(store FacetQuerier, onlyActiveFacetsDflt bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ids, err := parseSKUIDs(c.QueryParam("brand_sku_ids"))
		if err != nil || store == nil {
			return c.JSON(http.StatusOK, FacetsResponse{Facets: facetcompose.FacetSet{}, FacetsComplete: false})
		}

		onlyActive := boolParam(c, "active_facets", onlyActiveFacetsDflt)
		ctx := c.Request().Context()

		facets, err := store.FacetsForSKUs(ctx, ids, onlyActive)
		if err != nil {
			return c.JSON(http.StatusOK, FacetsResponse{Facets: facetcompose.FacetSet{}, FacetsComplete: false})
		}

		return c.JSON(http.StatusOK, FacetsResponse{
			Facets:         facetcompose.OrderFacets(facets),
			FacetsComplete: true,
		})
	}
}

func parseSKUIDs(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
