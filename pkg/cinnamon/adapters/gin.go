package adapters

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// GinAdapter implements cinnamon.WebServerInterface for Gin framework
type GinAdapter struct {
	engine *gin.Engine
	server *http.Server
}

// NewGinAdapter creates a new Gin adapter
func NewGinAdapter(g *gin.Engine) *GinAdapter {
	return &GinAdapter{engine: g}
}

// NewDefaultGinAdapter creates a new Gin adapter with default Gin instance
func NewDefaultGinAdapter() *GinAdapter {
	return &GinAdapter{engine: gin.Default()}
}

// Mount routes everything below prefix to handler. Gin redirects the bare
// prefix to prefix + "/".
func (ga *GinAdapter) Mount(prefix string, handler cinnamon.HandlerFunc, middlewares ...cinnamon.MiddlewareFunc) {
	_, subtree := mountPatterns(prefix, "*path")
	ga.engine.Any(subtree, ga.convertHandler(cinnamon.Chain(handler, middlewares...)))
}

// MountHTTP serves handler at path
func (ga *GinAdapter) MountHTTP(path string, handler http.Handler) {
	ga.engine.Any(path, gin.WrapH(handler))
}

// Use registers a global middleware with the Gin server
func (ga *GinAdapter) Use(middleware cinnamon.MiddlewareFunc) {
	ga.engine.Use(ga.convertMiddleware(middleware))
}

// Start starts the Gin server behind an http.Server so Stop can drain it
func (ga *GinAdapter) Start(addr string) error {
	ga.server = &http.Server{Addr: addr, Handler: ga.engine}
	return ga.server.ListenAndServe()
}

// Stop gracefully stops the Gin server
func (ga *GinAdapter) Stop(ctx context.Context) error {
	if ga.server == nil {
		return nil
	}
	return ga.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ga *GinAdapter) Name() string {
	return "Gin"
}

// GetEngine returns the underlying Gin engine
func (ga *GinAdapter) GetEngine() *gin.Engine {
	return ga.engine
}

// convertHandler converts cinnamon.HandlerFunc to gin.HandlerFunc
func (ga *GinAdapter) convertHandler(handler cinnamon.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := handler(&GinRequestContext{ctx: c}); err != nil {
			_ = c.Error(err)
			if !c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}
	}
}

// convertMiddleware converts cinnamon.MiddlewareFunc to gin.HandlerFunc
func (ga *GinAdapter) convertMiddleware(middleware cinnamon.MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := func(cinnamon.RequestContext) error {
			c.Next()
			return nil
		}
		if err := middleware(next)(&GinRequestContext{ctx: c}); err != nil {
			_ = c.Error(err)
			c.AbortWithStatus(http.StatusInternalServerError)
		}
	}
}

// GinRequestContext implements cinnamon.RequestContext for Gin
type GinRequestContext struct {
	ctx *gin.Context
}

func (grc *GinRequestContext) Context() context.Context { return grc.ctx.Request.Context() }
func (grc *GinRequestContext) Method() string           { return grc.ctx.Request.Method }
func (grc *GinRequestContext) Path() string             { return grc.ctx.Request.URL.Path }
func (grc *GinRequestContext) RequestURI() string       { return grc.ctx.Request.RequestURI }
func (grc *GinRequestContext) Scheme() string           { return schemeOf(grc.ctx.Request) }
func (grc *GinRequestContext) Host() string             { return grc.ctx.Request.Host }
func (grc *GinRequestContext) RemoteAddr() string       { return grc.ctx.Request.RemoteAddr }

// Params returns query and form parameters merged
func (grc *GinRequestContext) Params() map[string][]string {
	return formValues(grc.ctx.Request)
}

// Request returns the request interface
func (grc *GinRequestContext) Request() cinnamon.RequestInterface {
	return &httpRequest{request: grc.ctx.Request}
}

// Response returns the response interface
func (grc *GinRequestContext) Response() cinnamon.ResponseInterface {
	return &GinResponseInterface{ctx: grc.ctx}
}

// Get retrieves data from context
func (grc *GinRequestContext) Get(key string) any {
	value, _ := grc.ctx.Get(key)
	return value
}

// Set stores data in context
func (grc *GinRequestContext) Set(key string, val any) {
	grc.ctx.Set(key, val)
}

// GinResponseInterface implements cinnamon.ResponseInterface for Gin
type GinResponseInterface struct {
	ctx *gin.Context
}

// Status returns the response status code
func (gri *GinResponseInterface) Status() int {
	return gri.ctx.Writer.Status()
}

// Header returns a response header
func (gri *GinResponseInterface) Header(key string) string {
	return gri.ctx.Writer.Header().Get(key)
}

// SetHeader sets a response header
func (gri *GinResponseInterface) SetHeader(key, value string) {
	gri.ctx.Header(key, value)
}

// Blob writes binary data response
func (gri *GinResponseInterface) Blob(code int, contentType string, b []byte) error {
	gri.ctx.Data(code, contentType, b)
	return nil
}

// NoContent writes the status line only
func (gri *GinResponseInterface) NoContent(code int) error {
	gri.ctx.Status(code)
	gri.ctx.Writer.WriteHeaderNow()
	return nil
}

// SetCookie sets a cookie
func (gri *GinResponseInterface) SetCookie(cookie cinnamon.Cookie) {
	http.SetCookie(gri.ctx.Writer, toHTTPCookie(cookie))
}

// Written returns whether the response has been written
func (gri *GinResponseInterface) Written() bool {
	return gri.ctx.Writer.Written()
}
