package router

import (
	"context"
	"errors"
	"net/http"

	"backoffice/core/types"

	"github.com/labstack/echo/v4"
)

// HandlerFunc handles a request; a returned error is rendered as JSON
type HandlerFunc func(*Context) error

// MiddlewareFunc wraps a handler
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Router is the HTTP router used by every module. It is backed by echo.
type Router struct {
	echo *echo.Echo
}

// New creates a router with the JSON error handler installed
func New() *Router {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler
	return &Router{echo: e}
}

// Echo exposes the underlying echo instance for middleware setup
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// Use adds global middleware
func (r *Router) Use(middleware ...MiddlewareFunc) {
	for _, m := range middleware {
		r.echo.Use(toEcho(m))
	}
}

func (r *Router) GET(path string, h HandlerFunc, m ...MiddlewareFunc) {
	r.echo.GET(path, wrap(h), toEchoAll(m)...)
}

func (r *Router) POST(path string, h HandlerFunc, m ...MiddlewareFunc) {
	r.echo.POST(path, wrap(h), toEchoAll(m)...)
}

func (r *Router) PUT(path string, h HandlerFunc, m ...MiddlewareFunc) {
	r.echo.PUT(path, wrap(h), toEchoAll(m)...)
}

func (r *Router) DELETE(path string, h HandlerFunc, m ...MiddlewareFunc) {
	r.echo.DELETE(path, wrap(h), toEchoAll(m)...)
}

// Static serves files under root at prefix
func (r *Router) Static(prefix, root string) {
	r.echo.Static(prefix, root)
}

// NotFound sets the handler for unmatched routes
func (r *Router) NotFound(h HandlerFunc) {
	r.echo.RouteNotFound("/*", wrap(h))
}

// Group creates a route group under prefix
func (r *Router) Group(prefix string, m ...MiddlewareFunc) *RouterGroup {
	return &RouterGroup{group: r.echo.Group(prefix, toEchoAll(m)...)}
}

// ServeHTTP lets the router be used directly as an http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.echo.ServeHTTP(w, req)
}

// Run starts the HTTP server and blocks until it stops
func (r *Router) Run(addr string) error {
	err := r.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully
func (r *Router) Shutdown(ctx context.Context) error {
	return r.echo.Shutdown(ctx)
}

// RouterGroup is a set of routes sharing a prefix and middleware
type RouterGroup struct {
	group *echo.Group
}

func (g *RouterGroup) Use(middleware ...MiddlewareFunc) {
	g.group.Use(toEchoAll(middleware)...)
}

func (g *RouterGroup) Group(prefix string, m ...MiddlewareFunc) *RouterGroup {
	return &RouterGroup{group: g.group.Group(prefix, toEchoAll(m)...)}
}

func (g *RouterGroup) GET(path string, h HandlerFunc, m ...MiddlewareFunc) {
	g.group.GET(path, wrap(h), toEchoAll(m)...)
}

func (g *RouterGroup) POST(path string, h HandlerFunc, m ...MiddlewareFunc) {
	g.group.POST(path, wrap(h), toEchoAll(m)...)
}

func (g *RouterGroup) PUT(path string, h HandlerFunc, m ...MiddlewareFunc) {
	g.group.PUT(path, wrap(h), toEchoAll(m)...)
}

func (g *RouterGroup) PATCH(path string, h HandlerFunc, m ...MiddlewareFunc) {
	g.group.PATCH(path, wrap(h), toEchoAll(m)...)
}

func (g *RouterGroup) DELETE(path string, h HandlerFunc, m ...MiddlewareFunc) {
	g.group.DELETE(path, wrap(h), toEchoAll(m)...)
}

// FromEcho adapts an echo middleware (CORS, recover, ...) to the router
func FromEcho(m echo.MiddlewareFunc) MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(c *Context) error {
			h := m(func(echo.Context) error { return next(c) })
			return h(c.echo)
		}
	}
}

func wrap(h HandlerFunc) echo.HandlerFunc {
	return func(ec echo.Context) error {
		return h(contextFor(ec))
	}
}

func toEcho(m MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := m(func(c *Context) error { return next(c.echo) })
		return func(ec echo.Context) error {
			return h(contextFor(ec))
		}
	}
}

func toEchoAll(ms []MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, len(ms))
	for i, m := range ms {
		out[i] = toEcho(m)
	}
	return out
}

func errorHandler(err error, ec echo.Context) {
	if ec.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}

	if ec.Request().Method == http.MethodHead {
		_ = ec.NoContent(code)
		return
	}
	_ = ec.JSON(code, types.ErrorResponse{Error: msg})
}
