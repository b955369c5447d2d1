package tables

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"backoffice/app/csvio"
	"backoffice/app/models"
	"backoffice/app/upstream"
	"backoffice/core/app/authorization"
	"backoffice/core/logger"
	"backoffice/core/router"
	"backoffice/core/types"
	"backoffice/core/value"
)

const (
	maxImportSize   = 32 << 20
	maxDocumentSize = 1 << 20
)

var ErrBodyTooLarge = errors.New("request body is too large")

type TableController struct {
	service *TableService
	logger  logger.Logger
}

func NewTableController(service *TableService, logger logger.Logger) *TableController {
	return &TableController{
		service: service,
		logger:  logger,
	}
}

func (c *TableController) Routes(router *router.RouterGroup) {
	router.GET("/tables", c.Index, authorization.HasPermission("table", "list"))

	tables := router.Group("/tables/:tag")
	tables.GET("", c.List, authorization.HasPermission("table", "list"))
	tables.GET("/fields", c.Fields, authorization.HasPermission("table", "list"))
	tables.GET("/export", c.Export, authorization.HasPermission("export", "run"))
	tables.GET("/exports", c.Exports, authorization.HasPermission("export", "list"))
	tables.POST("/import", c.Import, authorization.HasPermission("import", "run"))
	tables.POST("/sync", c.Sync, authorization.HasPermission("sync", "run"))
	tables.POST("", c.Create, authorization.HasPermission("table", "create"))
	tables.PUT("", c.Replace, authorization.HasPermission("table", "update"))
	tables.GET("/:id", c.Get, authorization.HasPermission("table", "read"))
	tables.PUT("/:id", c.Update, authorization.HasPermission("table", "update"))
	tables.DELETE("/:id", c.Delete, authorization.HasPermission("table", "delete"))
}

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownTag), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, upstream.ErrNotConfigured), errors.Is(err, ErrNoStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, csvio.ErrEmpty):
		return http.StatusBadRequest
	}
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// readDocument parses a JSON body of at most limit bytes
func readDocument(ctx *router.Context, limit int64) (value.Value, error) {
	if ctx.Request.Body == nil {
		return value.Null(), errors.New("request body is empty")
	}
	raw, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return value.Null(), ErrBodyTooLarge
		}
		return value.Null(), err
	}
	return value.Parse(raw)
}

// Index godoc
// @Summary List tables
// @Description Every known table tag with its loaded record count and search fields
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Success 200 {array} models.TableSummary
// @Router /tables [get]
func (c *TableController) Index(ctx *router.Context) error {
	return ctx.JSON(http.StatusOK, c.service.Tables())
}

// List godoc
// @Summary List table records
// @Description Filters a table by a case-insensitive query over its search fields and returns one page
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Param tag path string true "Table tag" example("booking")
// @Param q query string false "Filter query"
// @Param fields query string false "Comma-separated field paths, defaults to the table's search fields"
// @Param page query int false "Page number (default: 1)"
// @Param rows_per_page query int false "Rows per page: 100, 150 or 200 (default: 100)"
// @Success 200 {object} models.TablePageResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Router /tables/{tag} [get]
func (c *TableController) List(ctx *router.Context) error {
	var req models.ListTableRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid query: " + err.Error()})
	}

	resp, err := c.service.List(ctx.Param("tag"), req)
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Fields godoc
// @Summary Search fields of a table
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Param tag path string true "Table tag"
// @Success 200 {array} string
// @Failure 404 {object} types.ErrorResponse
// @Router /tables/{tag}/fields [get]
func (c *TableController) Fields(ctx *router.Context) error {
	fields, err := c.service.Fields(ctx.Param("tag"))
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, fields)
}

// Get godoc
// @Summary Get a table record
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Param tag path string true "Table tag"
// @Param id path string true "Record id or upstream _id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} types.ErrorResponse
// @Router /tables/{tag}/{id} [get]
func (c *TableController) Get(ctx *router.Context) error {
	doc, err := c.service.Get(ctx.Param("tag"), ctx.Param("id"))
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, doc)
}

// Create godoc
// @Summary Create a table record
// @Security BearerAuth
// @Tags App/Tables
// @Accept json
// @Produce json
// @Param tag path string true "Table tag"
// @Param input body map[string]any true "Record"
// @Success 201 {object} map[string]any
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 413 {object} types.ErrorResponse
// @Router /tables/{tag} [post]
func (c *TableController) Create(ctx *router.Context) error {
	doc, err := readDocument(ctx, maxDocumentSize)
	if errors.Is(err, ErrBodyTooLarge) {
		return ctx.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: err.Error()})
	}
	if err != nil || doc.Kind() != value.KindMap {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Request body must be a JSON object"})
	}

	item, err := c.service.Create(ctx.Param("tag"), doc)
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusCreated, item)
}

// Update godoc
// @Summary Update a table record
// @Security BearerAuth
// @Tags App/Tables
// @Accept json
// @Produce json
// @Param tag path string true "Table tag"
// @Param id path string true "Record id or upstream _id"
// @Param input body map[string]any true "Record"
// @Success 200 {object} map[string]any
// @Failure 400 {object} types.ErrorResponse
// @Failure 404 {object} types.ErrorResponse
// @Failure 413 {object} types.ErrorResponse
// @Router /tables/{tag}/{id} [put]
func (c *TableController) Update(ctx *router.Context) error {
	doc, err := readDocument(ctx, maxDocumentSize)
	if errors.Is(err, ErrBodyTooLarge) {
		return ctx.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: err.Error()})
	}
	if err != nil || doc.Kind() != value.KindMap {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Request body must be a JSON object"})
	}

	item, err := c.service.Update(ctx.Param("tag"), ctx.Param("id"), doc)
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, item)
}

// Delete godoc
// @Summary Delete a table record
// @Security BearerAuth
// @Tags App/Tables
// @Param tag path string true "Table tag"
// @Param id path string true "Record id or upstream _id"
// @Success 204
// @Failure 404 {object} types.ErrorResponse
// @Router /tables/{tag}/{id} [delete]
func (c *TableController) Delete(ctx *router.Context) error {
	if err := c.service.Delete(ctx.Param("tag"), ctx.Param("id")); err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	ctx.Status(http.StatusNoContent)
	return nil
}

// Replace godoc
// @Summary Replace a table
// @Description Swaps every record of the table for the posted array
// @Security BearerAuth
// @Tags App/Tables
// @Accept json
// @Produce json
// @Param tag path string true "Table tag"
// @Param input body []map[string]any true "Records"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} types.ErrorResponse
// @Failure 413 {object} types.ErrorResponse
// @Router /tables/{tag} [put]
func (c *TableController) Replace(ctx *router.Context) error {
	doc, err := readDocument(ctx, maxImportSize)
	if errors.Is(err, ErrBodyTooLarge) {
		return ctx.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{Error: err.Error()})
	}
	if err != nil || doc.Kind() != value.KindList {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Request body must be a JSON array"})
	}

	tag := ctx.Param("tag")
	snap, err := c.service.Replace(tag, doc.Items())
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, models.ImportResponse{
		Tag:      tag,
		Mode:     ImportReplace,
		Imported: doc.Len(),
		Total:    snap.Len(),
	})
}

// Import godoc
// @Summary Import a CSV file
// @Security BearerAuth
// @Tags App/Tables
// @Accept multipart/form-data
// @Produce json
// @Param tag path string true "Table tag"
// @Param file formData file true "CSV file with a header row"
// @Param mode query string false "append (default) or replace"
// @Success 200 {object} models.ImportResponse
// @Failure 400 {object} types.ErrorResponse
// @Router /tables/{tag}/import [post]
func (c *TableController) Import(ctx *router.Context) error {
	var req models.ImportRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid import mode"})
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "A CSV file is required"})
	}
	if header.Size > maxImportSize {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "File is too large"})
	}
	file, err := header.Open()
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Failed to read file"})
	}
	defer file.Close()

	resp, err := c.service.Import(ctx.Param("tag"), file, req.Mode)
	if err != nil {
		c.logger.Error("CSV import failed",
			logger.String("tag", ctx.Param("tag")),
			logger.String("error", err.Error()))
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Export godoc
// @Summary Export a table as CSV
// @Description Downloads the filtered table, or saves it to storage when store=true
// @Security BearerAuth
// @Tags App/Tables
// @Produce text/csv
// @Param tag path string true "Table tag"
// @Param q query string false "Filter query"
// @Param fields query string false "Comma-separated field paths"
// @Param store query bool false "Save to storage and return the export record"
// @Success 200 {file} file
// @Failure 404 {object} types.ErrorResponse
// @Router /tables/{tag}/export [get]
func (c *TableController) Export(ctx *router.Context) error {
	tag := ctx.Param("tag")
	query := ctx.Query("q")
	fields := ctx.Query("fields")

	if store, _ := strconv.ParseBool(ctx.Query("store")); store {
		export, err := c.service.StoreExport(ctx.Request.Context(), tag, query, fields)
		if err != nil {
			return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
		}
		return ctx.JSON(http.StatusCreated, export)
	}

	var buf bytes.Buffer
	if _, err := c.service.Export(&buf, tag, query, fields); err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	filename := fmt.Sprintf("%s-%s.csv", tag, time.Now().Format("20060102-150405"))
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// Exports godoc
// @Summary Stored exports of a table
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Param tag path string true "Table tag"
// @Success 200 {array} models.ExportFile
// @Router /tables/{tag}/exports [get]
func (c *TableController) Exports(ctx *router.Context) error {
	exports, err := c.service.ListExports(ctx.Param("tag"))
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: "Failed to list exports"})
	}
	return ctx.JSON(http.StatusOK, exports)
}

// Sync godoc
// @Summary Sync a table from the upstream backend
// @Security BearerAuth
// @Tags App/Tables
// @Produce json
// @Param tag path string true "Table tag"
// @Success 200 {object} models.SyncResponse
// @Failure 502 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Router /tables/{tag}/sync [post]
func (c *TableController) Sync(ctx *router.Context) error {
	resp, err := c.service.Sync(ctx.Request.Context(), ctx.Param("tag"))
	if err != nil {
		return ctx.JSON(statusFor(err), types.ErrorResponse{Error: err.Error()})
	}
	return ctx.JSON(http.StatusOK, resp)
}
