package search

import (
	"errors"
	"net/http"
	"time"

	"backoffice/core/router"
	"backoffice/core/types"
)

type SearchController struct {
	Service *SearchService
}

func NewSearchController(service *SearchService) *SearchController {
	return &SearchController{
		Service: service,
	}
}

func (c *SearchController) Routes(router *router.RouterGroup) {
	router.GET("/search", c.Search)
	router.GET("/search/fields", c.AllFields)
	router.GET("/search/fields/:tag", c.Fields)
}

// Search godoc
// @Summary Global search across tables
// @Description Filters the loaded dataset of each table with its default search fields
// @Tags Core/Search
// @Security BearerAuth
// @Produce json
// @Param q query string true "Search query (minimum 2 characters)" example("activa")
// @Param modules query string false "Comma-separated table tags" example("booking,customers")
// @Param limit query int false "Results per table (default: 10)" example(20)
// @Success 200 {object} search.SearchResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 500 {object} types.ErrorResponse
// @Router /search [get]
func (c *SearchController) Search(ctx *router.Context) error {
	startTime := time.Now()

	var req SearchRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Search query (q) of at least 2 characters is required"})
	}

	response, err := c.Service.GlobalSearch(req.Query, req.Modules, req.Limit)
	if err != nil {
		if errors.Is(err, ErrNoDatasets) {
			return ctx.JSON(http.StatusServiceUnavailable, types.ErrorResponse{Error: err.Error()})
		}
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Search failed: " + err.Error()})
	}

	response.Duration = time.Since(startTime).String()
	return ctx.JSON(http.StatusOK, response)
}

// AllFields godoc
// @Summary Search fields of every table
// @Tags Core/Search
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /search/fields [get]
func (c *SearchController) AllFields(ctx *router.Context) error {
	return ctx.JSON(http.StatusOK, c.Service.Registry.All())
}

// Fields godoc
// @Summary Search fields of one table
// @Description Unknown tags answer with the fallback field list
// @Tags Core/Search
// @Produce json
// @Param tag path string true "Table tag"
// @Success 200 {object} search.FieldsResponse
// @Router /search/fields/{tag} [get]
func (c *SearchController) Fields(ctx *router.Context) error {
	tag := ctx.Param("tag")
	return ctx.JSON(http.StatusOK, FieldsResponse{
		Tag:    tag,
		Known:  c.Service.Registry.Has(tag),
		Fields: c.Service.Registry.Fields(tag),
	})
}
