package authorization

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"backoffice/core/database"
	"backoffice/core/logger"
	"backoffice/core/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func setup(t *testing.T) (*router.Router, *AuthorizationService) {
	t.Helper()
	db, err := database.Open("sqlite", ":memory:", false)
	require.NoError(t, err)

	service := NewAuthorizationService(db.DB, secret)
	mod := NewAuthorizationModule(db.DB, service, logger.Nop()).(*AuthorizationModule)
	require.NoError(t, mod.Migrate())
	// a second run must not duplicate anything
	require.NoError(t, mod.Migrate())

	r := router.New()
	r.Use(InjectService(service, true))
	api := r.Group("/api", Authenticate())
	mod.Routes(api)
	api.GET("/tables", func(c *router.Context) error { return c.String(http.StatusOK, "ok") }, HasPermission("table", "list"))
	api.DELETE("/tables/:tag/:id", func(c *router.Context) error { return c.String(http.StatusOK, "gone") }, HasPermission("table", "delete"))
	return r, service
}

func call(r *router.Router, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHasPermissionByRole(t *testing.T) {
	r, service := setup(t)

	viewer, err := service.IssueToken("u1", "Asha", "Viewer", time.Hour)
	require.NoError(t, err)
	admin, err := service.IssueToken("u2", "Ravi", "Administrator", time.Hour)
	require.NoError(t, err)
	root, err := service.IssueToken("u3", "Root", SuperAdminRole, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/tables", viewer).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodDelete, "/api/tables/booking/1", viewer).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/api/tables/booking/1", admin).Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodDelete, "/api/tables/booking/1", root).Code)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	r, service := setup(t)

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/tables", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/tables", "garbage").Code)

	expired, err := service.IssueToken("u1", "Asha", "Viewer", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/tables", expired).Code)

	other := NewAuthorizationService(nil, "another-secret")
	forged, err := other.IssueToken("u1", "Asha", SuperAdminRole, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/tables", forged).Code)

	viewer, err := service.IssueToken("u1", "Asha", "Viewer", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/tables?token="+viewer, "").Code)
}

func TestTokenPermissionsExtendRole(t *testing.T) {
	_, service := setup(t)
	claims := &Claims{Role: "Viewer", Permissions: []string{"export:run", "sync:*"}}

	for _, tc := range []struct {
		resource, action string
		want             bool
	}{
		{"table", "read", true},
		{"export", "run", true},
		{"sync", "run", true},
		{"table", "delete", false},
	} {
		got, err := service.HasPermission(claims, tc.resource, tc.action)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.resource+":"+tc.action)
	}

	got, err := service.HasPermission(&Claims{Role: "Unknown"}, "table", "read")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestMeAndRoles(t *testing.T) {
	r, service := setup(t)
	manager, err := service.IssueToken("u9", "Meera", "Manager", time.Hour)
	require.NoError(t, err)

	rec := call(r, http.MethodGet, "/api/authorization/me", manager)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"Manager"`)
	assert.Contains(t, rec.Body.String(), `"export:run"`)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/authorization/roles", manager).Code)
}

func TestDisabledAuthPassesThrough(t *testing.T) {
	r := router.New()
	r.Use(InjectService(NewAuthorizationService(nil, secret), false))
	api := r.Group("/api", Authenticate())
	api.GET("/tables", func(c *router.Context) error { return c.String(http.StatusOK, "ok") }, HasPermission("table", "list"))

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/tables", "").Code)
}
