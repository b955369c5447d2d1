package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const contextKey = "router.context"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	return v
}

// Validator returns the validator used for request binding
func Validator() *validator.Validate {
	return validate
}

// ResponseWriter exposes the status code written so far
type ResponseWriter struct {
	*echo.Response
}

// Status returns the HTTP status written to the response
func (w ResponseWriter) Status() int {
	return w.Response.Status
}

// Context carries the request and response of a single call
type Context struct {
	Request *http.Request
	Writer  ResponseWriter

	echo echo.Context
}

func contextFor(ec echo.Context) *Context {
	if c, ok := ec.Get(contextKey).(*Context); ok {
		c.Request = ec.Request()
		return c
	}
	c := &Context{
		Request: ec.Request(),
		Writer:  ResponseWriter{Response: ec.Response()},
		echo:    ec,
	}
	ec.Set(contextKey, c)
	return c
}

// Query returns the query parameter key
func (c *Context) Query(key string) string {
	return c.echo.QueryParam(key)
}

// DefaultQuery returns the query parameter key or def when absent
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.echo.QueryParam(key); v != "" {
		return v
	}
	return def
}

// Param returns the path parameter name
func (c *Context) Param(name string) string {
	return c.echo.Param(name)
}

// FormValue returns a multipart or urlencoded form field
func (c *Context) FormValue(name string) string {
	return c.echo.FormValue(name)
}

// FormFile returns the uploaded file under name
func (c *Context) FormFile(name string) (*multipart.FileHeader, error) {
	return c.echo.FormFile(name)
}

// Set stores a request-scoped value
func (c *Context) Set(key string, val any) {
	c.echo.Set(key, val)
}

// Get reads a request-scoped value
func (c *Context) Get(key string) any {
	return c.echo.Get(key)
}

// ClientIP returns the caller's address, honouring proxy headers
func (c *Context) ClientIP() string {
	return c.echo.RealIP()
}

// Header sets a response header
func (c *Context) Header(key, val string) {
	c.echo.Response().Header().Set(key, val)
}

// JSON writes v as JSON with status code
func (c *Context) JSON(code int, v any) error {
	return c.echo.JSON(code, v)
}

// String writes a plain-text body
func (c *Context) String(code int, s string) error {
	return c.echo.String(code, s)
}

// Data writes raw bytes with the given content type
func (c *Context) Data(code int, contentType string, data []byte) error {
	return c.echo.Blob(code, contentType, data)
}

// Redirect sends a redirect to url
func (c *Context) Redirect(code int, url string) error {
	return c.echo.Redirect(code, url)
}

// Status writes a bodiless response
func (c *Context) Status(code int) {
	_ = c.echo.NoContent(code)
}

// Echo returns the underlying echo context
func (c *Context) Echo() echo.Context {
	return c.echo
}

// ShouldBindJSON decodes the JSON body into obj and validates its
// `binding` tags
func (c *Context) ShouldBindJSON(obj any) error {
	if c.Request.Body == nil {
		return errors.New("request body is empty")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(obj); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return validateStruct(obj)
}

// ShouldBindQuery fills obj from `query` tagged fields and validates it
func (c *Context) ShouldBindQuery(obj any) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(c.echo, obj); err != nil {
		return fmt.Errorf("invalid query parameters: %w", err)
	}
	return validateStruct(obj)
}

func validateStruct(obj any) error {
	t := reflect.TypeOf(obj)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(obj)
}
