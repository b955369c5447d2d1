package authorization

import (
	"net/http"

	"backoffice/core/logger"
	"backoffice/core/router"
	"backoffice/core/types"
)

type AuthorizationController struct {
	Service *AuthorizationService
	Logger  logger.Logger
}

func NewAuthorizationController(service *AuthorizationService, log logger.Logger) *AuthorizationController {
	return &AuthorizationController{Service: service, Logger: log}
}

func (c *AuthorizationController) Routes(router *router.RouterGroup) {
	group := router.Group("/authorization")
	group.GET("/me", c.Me)
	group.GET("/roles", c.ListRoles, HasPermission("role", "list"))
}

// Me godoc
// @Summary Current caller
// @Description Returns the token subject, role and effective permissions
// @Tags Core/Authorization
// @Security BearerAuth
// @Produce json
// @Success 200 {object} authorization.MeResponse
// @Failure 401 {object} types.ErrorResponse
// @Router /authorization/me [get]
func (c *AuthorizationController) Me(ctx *router.Context) error {
	claims := ClaimsFrom(ctx)
	if claims == nil {
		return ctx.JSON(http.StatusOK, MeResponse{Subject: "anonymous", Role: SuperAdminRole, Permissions: []string{"*:*"}})
	}

	perms, err := c.Service.Permissions(claims)
	if err != nil {
		c.Logger.Error("Failed to load permissions", logger.String("role", claims.Role), logger.Err(err))
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to load permissions"})
	}
	return ctx.JSON(http.StatusOK, MeResponse{
		Subject:     claims.Subject,
		Name:        claims.Name,
		Role:        claims.Role,
		Permissions: perms,
	})
}

// ListRoles godoc
// @Summary List roles
// @Tags Core/Authorization
// @Security BearerAuth
// @Produce json
// @Success 200 {array} authorization.Role
// @Failure 403 {object} types.ErrorResponse
// @Router /authorization/roles [get]
func (c *AuthorizationController) ListRoles(ctx *router.Context) error {
	roles, err := c.Service.ListRoles()
	if err != nil {
		c.Logger.Error("Failed to list roles", logger.Err(err))
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list roles"})
	}
	return ctx.JSON(http.StatusOK, roles)
}
