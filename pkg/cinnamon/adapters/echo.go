package adapters

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// EchoAdapter implements cinnamon.WebServerInterface for Echo v4
type EchoAdapter struct {
	engine *echo.Echo
}

// NewEchoAdapter creates a new Echo adapter
func NewEchoAdapter(e *echo.Echo) *EchoAdapter {
	return &EchoAdapter{engine: e}
}

// NewDefaultEchoAdapter creates a new Echo adapter with default Echo instance
func NewDefaultEchoAdapter() *EchoAdapter {
	e := echo.New()
	e.HideBanner = true
	return &EchoAdapter{engine: e}
}

// Mount routes prefix and everything below it to handler
func (ea *EchoAdapter) Mount(prefix string, handler cinnamon.HandlerFunc, middlewares ...cinnamon.MiddlewareFunc) {
	echoHandler := ea.convertHandler(cinnamon.Chain(handler, middlewares...))
	exact, subtree := mountPatterns(prefix, "*")
	if exact != "" {
		ea.engine.Any(exact, echoHandler)
	}
	ea.engine.Any(subtree, echoHandler)
}

// MountHTTP serves handler at path
func (ea *EchoAdapter) MountHTTP(path string, handler http.Handler) {
	ea.engine.Any(path, echo.WrapHandler(handler))
}

// Use adds global middleware
func (ea *EchoAdapter) Use(middleware cinnamon.MiddlewareFunc) {
	ea.engine.Use(ea.convertMiddleware(middleware))
}

// Start starts the server
func (ea *EchoAdapter) Start(addr string) error {
	return ea.engine.Start(addr)
}

// Stop stops the server
func (ea *EchoAdapter) Stop(ctx context.Context) error {
	return ea.engine.Shutdown(ctx)
}

// Name returns the adapter name
func (ea *EchoAdapter) Name() string {
	return "Echo"
}

// GetEngine returns the underlying Echo instance
func (ea *EchoAdapter) GetEngine() *echo.Echo {
	return ea.engine
}

// convertHandler converts cinnamon.HandlerFunc to echo.HandlerFunc
func (ea *EchoAdapter) convertHandler(handler cinnamon.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handler(&EchoRequestContext{context: c})
	}
}

// convertMiddleware converts cinnamon.MiddlewareFunc to echo.MiddlewareFunc
func (ea *EchoAdapter) convertMiddleware(middleware cinnamon.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cinnamonNext := func(cinnamon.RequestContext) error {
				return next(c)
			}
			return middleware(cinnamonNext)(&EchoRequestContext{context: c})
		}
	}
}

// EchoRequestContext implements cinnamon.RequestContext for Echo
type EchoRequestContext struct {
	context echo.Context
}

func (erc *EchoRequestContext) Context() context.Context { return erc.context.Request().Context() }
func (erc *EchoRequestContext) Method() string           { return erc.context.Request().Method }
func (erc *EchoRequestContext) Path() string             { return erc.context.Request().URL.Path }
func (erc *EchoRequestContext) RequestURI() string       { return erc.context.Request().RequestURI }
func (erc *EchoRequestContext) Scheme() string           { return erc.context.Scheme() }
func (erc *EchoRequestContext) Host() string             { return erc.context.Request().Host }
func (erc *EchoRequestContext) RemoteAddr() string       { return erc.context.Request().RemoteAddr }

// Params returns query and form parameters merged
func (erc *EchoRequestContext) Params() map[string][]string {
	return formValues(erc.context.Request())
}

// Request returns the request interface
func (erc *EchoRequestContext) Request() cinnamon.RequestInterface {
	return &httpRequest{request: erc.context.Request()}
}

// Response returns the response interface
func (erc *EchoRequestContext) Response() cinnamon.ResponseInterface {
	return &EchoResponseInterface{response: erc.context.Response(), context: erc.context}
}

// Get retrieves data from context
func (erc *EchoRequestContext) Get(key string) any {
	return erc.context.Get(key)
}

// Set stores data in context
func (erc *EchoRequestContext) Set(key string, val any) {
	erc.context.Set(key, val)
}

// EchoResponseInterface implements cinnamon.ResponseInterface for Echo responses
type EchoResponseInterface struct {
	response *echo.Response
	context  echo.Context
}

// Status returns response status code
func (eri *EchoResponseInterface) Status() int {
	return eri.response.Status
}

// Header returns response header value
func (eri *EchoResponseInterface) Header(key string) string {
	return eri.response.Header().Get(key)
}

// SetHeader sets response header
func (eri *EchoResponseInterface) SetHeader(key, value string) {
	eri.response.Header().Set(key, value)
}

// Blob writes blob response
func (eri *EchoResponseInterface) Blob(code int, contentType string, b []byte) error {
	return eri.context.Blob(code, contentType, b)
}

// NoContent writes the status line only
func (eri *EchoResponseInterface) NoContent(code int) error {
	return eri.context.NoContent(code)
}

// SetCookie sets a cookie
func (eri *EchoResponseInterface) SetCookie(cookie cinnamon.Cookie) {
	eri.context.SetCookie(toHTTPCookie(cookie))
}

// Written returns whether response has been written
func (eri *EchoResponseInterface) Written() bool {
	return eri.response.Committed
}
