package activities

import (
	"net/http"
	"strconv"

	"backoffice/core/app/authorization"
	"backoffice/core/router"
	"backoffice/core/types"
)

type ActivityController struct {
	Service *ActivityService
}

func NewActivityController(service *ActivityService) *ActivityController {
	return &ActivityController{
		Service: service,
	}
}

func (c *ActivityController) Routes(router *router.RouterGroup) {
	guard := authorization.HasPermission("activity", "list")
	router.GET("/activities", c.List, guard)
	router.GET("/activities/recent", c.Recent, guard)
}

// ListActivities godoc
// @Summary List activities
// @Description Audit trail of table changes, newest first
// @Tags Core/Activity
// @Security BearerAuth
// @Produce json
// @Param entity_type query string false "Table tag"
// @Param entity_id query string false "Record id"
// @Param action query string false "create, update, delete, replace, import or sync"
// @Param page query int false "Page number"
// @Param limit query int false "Number of items per page"
// @Success 200 {object} types.PaginatedResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 500 {object} types.ErrorResponse
// @Router /activities [get]
func (c *ActivityController) List(ctx *router.Context) error {
	var req ListActivitiesRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: err.Error()})
	}

	resp, err := c.Service.List(req)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch activities"})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// GetRecent godoc
// @Summary Recent activities
// @Tags Core/Activity
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Number of activities (default: 20)"
// @Success 200 {array} activities.Activity
// @Router /activities/recent [get]
func (c *ActivityController) Recent(ctx *router.Context) error {
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	items, err := c.Service.Recent(limit)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to fetch activities"})
	}
	return ctx.JSON(http.StatusOK, items)
}
