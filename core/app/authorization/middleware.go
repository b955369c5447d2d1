package authorization

import (
	"errors"
	"net/http"

	"backoffice/core/router"
	"backoffice/core/types"
)

const (
	ServiceContextKey = "authorization_service"
	ClaimsContextKey  = "claims"
)

// InjectService makes the service available to HasPermission and
// Authenticate. When enabled is false every permission check passes.
func InjectService(service *AuthorizationService, enabled bool) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c *router.Context) error {
			if enabled {
				c.Set(ServiceContextKey, service)
			}
			return next(c)
		}
	}
}

// Authenticate requires a valid bearer token and stores its claims
func Authenticate() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c *router.Context) error {
			service, ok := c.Get(ServiceContextKey).(*AuthorizationService)
			if !ok {
				return next(c)
			}

			raw := bearerToken(c.Request.Header.Get("Authorization"))
			if raw == "" {
				// browsers cannot set headers on websocket upgrades
				raw = c.Query("token")
			}
			claims, err := service.ParseToken(raw)
			if err != nil {
				msg := "Invalid or expired token"
				if errors.Is(err, ErrMissingToken) {
					msg = "Authorization header is required"
				}
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: msg})
			}
			c.Set(ClaimsContextKey, claims)
			return next(c)
		}
	}
}

// HasPermission allows the request when the caller may perform action on
// resource
func HasPermission(resource, action string) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c *router.Context) error {
			service, ok := c.Get(ServiceContextKey).(*AuthorizationService)
			if !ok {
				return next(c)
			}

			claims, _ := c.Get(ClaimsContextKey).(*Claims)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, types.ErrorResponse{Error: "Authentication required"})
			}

			allowed, err := service.HasPermission(claims, resource, action)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to check permissions"})
			}
			if !allowed {
				return c.JSON(http.StatusForbidden, types.ErrorResponse{Error: "Permission denied: " + resource + ":" + action})
			}
			return next(c)
		}
	}
}

// ClaimsFrom returns the authenticated caller, nil when auth is disabled
func ClaimsFrom(c *router.Context) *Claims {
	claims, _ := c.Get(ClaimsContextKey).(*Claims)
	return claims
}
