package tables

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backoffice/app/models"
	"backoffice/core/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (*router.Router, *TableService) {
	t.Helper()
	s := newFixture(t, nil).service
	r := router.New()
	NewTableController(s, s.Logger).Routes(r.Group("/api"))
	return r, s
}

func do(r *router.Router, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestListEndpoint(t *testing.T) {
	r, s := newRouter(t)
	seedRTO(t, s, 120)

	rec := do(r, http.MethodGet, "/api/tables/rto?page=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data       []map[string]any  `json:"data"`
		Pagination models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Pagination.Page)
	assert.Len(t, resp.Data, 20)
	assert.Equal(t, "rto-101", resp.Data[0]["_id"])

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/tables/rto?rows_per_page=50", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/tables/nope", "", nil).Code)
}

func TestIndexAndFields(t *testing.T) {
	r, s := newRouter(t)
	seedRTO(t, s, 2)

	rec := do(r, http.MethodGet, "/api/tables", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []models.TableSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	assert.Len(t, summaries, len(s.Registry.Tags()))

	rec = do(r, http.MethodGet, "/api/tables/rto/fields", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["rtoCode","rtoName","city","state"]`, rec.Body.String())
}

func TestCRUDEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	rec := do(r, http.MethodPost, "/api/tables/customers", "application/json", []byte(`{"_id":"c-9","name":"Kiran"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"_id":"c-9"`)

	rec = do(r, http.MethodPost, "/api/tables/customers", "application/json", []byte(`[1,2]`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodPut, "/api/tables/customers/c-9", "application/json", []byte(`{"name":"Kiran S"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kiran S")

	rec = do(r, http.MethodGet, "/api/tables/customers/c-9", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(r, http.MethodDelete, "/api/tables/customers/c-9", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(r, http.MethodGet, "/api/tables/customers/c-9", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOversizedDocumentIsRejected(t *testing.T) {
	r, s := newRouter(t)

	body := []byte(`{"name":"` + strings.Repeat("x", maxDocumentSize) + `"}`)
	rec := do(r, http.MethodPost, "/api/tables/customers", "application/json", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, s.Datasets.Records("customers"))

	rec = do(r, http.MethodPut, "/api/tables/customers/c-1", "application/json", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReplaceEndpoint(t *testing.T) {
	r, s := newRouter(t)
	seedRTO(t, s, 5)

	rec := do(r, http.MethodPut, "/api/tables/rto", "application/json", []byte(`[{"rtoCode":"GA07"},{"rtoCode":"GA08"}]`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tag":"rto","mode":"replace","imported":2,"total":2}`, rec.Body.String())

	rec = do(r, http.MethodPut, "/api/tables/rto", "application/json", []byte(`{"rtoCode":"GA07"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportAndExportEndpoints(t *testing.T) {
	r, _ := newRouter(t)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "rto.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("rtoCode,city\nMH12,Pune\nKA01,Bengaluru\n"))
	require.NoError(t, form.Close())

	rec := do(r, http.MethodPost, "/api/tables/rto/import?mode=replace", form.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"tag":"rto","mode":"replace","imported":2,"total":2}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/api/tables/rto/import?mode=merge", form.FormDataContentType(), body.Bytes())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(r, http.MethodGet, "/api/tables/rto/export?q=pune", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "MH12")
	assert.NotContains(t, rec.Body.String(), "KA01")

	rec = do(r, http.MethodGet, "/api/tables/rto/export?store=true", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":2`)

	rec = do(r, http.MethodGet, "/api/tables/rto/exports", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var exports []models.ExportFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &exports))
	assert.Len(t, exports, 1)
}

func TestSyncEndpointWithoutUpstream(t *testing.T) {
	r, _ := newRouter(t)
	rec := do(r, http.MethodPost, "/api/tables/rto/sync", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
