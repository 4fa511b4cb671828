package cinnamon

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// WebServerInterface defines the contract a host framework adapter fulfils
// to carry a Dispatcher.
type WebServerInterface interface {
	// Mount routes every method and every path under prefix to handler
	Mount(prefix string, handler HandlerFunc, middlewares ...MiddlewareFunc)

	// MountHTTP serves a plain net/http handler at an exact path
	MountHTTP(path string, handler http.Handler)

	// Global middleware
	Use(middleware MiddlewareFunc)

	// Server lifecycle
	Start(addr string) error
	Stop(ctx context.Context) error

	// Server information
	Name() string
}

// RequestContext provides a framework-agnostic view of one HTTP exchange
type RequestContext interface {
	// Context returns the request-scoped context
	Context() context.Context

	// Request data
	Method() string
	Path() string
	RequestURI() string
	Scheme() string
	Host() string
	RemoteAddr() string

	// Params returns query and form parameters merged into one multi-map
	Params() map[string][]string

	Request() RequestInterface
	Response() ResponseInterface

	// Context data
	Get(key string) any
	Set(key string, val any)
}

// RequestInterface provides access to the underlying request
type RequestInterface interface {
	Header(key string) string
	ContentType() string
	Cookie(name string) (Cookie, error)
}

// ResponseInterface provides response writing capabilities
type ResponseInterface interface {
	// Status
	Status() int

	// Headers
	Header(key string) string
	SetHeader(key, value string)

	// Content
	Blob(code int, contentType string, b []byte) error
	NoContent(code int) error

	// Cookies
	SetCookie(cookie Cookie)

	// Written reports whether the status line was already sent
	Written() bool
}

// HandlerFunc defines the signature for HTTP handlers
type HandlerFunc func(RequestContext) error

// MiddlewareFunc defines the signature for middleware
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Chain wraps handler so that the first middleware runs outermost
func Chain(handler HandlerFunc, middlewares ...MiddlewareFunc) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// Cookie represents an HTTP cookie
type Cookie struct {
	Name     string
	Value    string
	Path     string
	Domain   string
	Expires  time.Time
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite SameSiteMode
}

// SameSiteMode defines cookie SameSite attribute modes. Values match
// net/http.SameSite.
type SameSiteMode int

const (
	SameSiteDefaultMode SameSiteMode = iota + 1
	SameSiteLaxMode
	SameSiteStrictMode
	SameSiteNoneMode
)

// ErrNoCookie is returned by RequestInterface.Cookie when the cookie is absent
var ErrNoCookie = errors.New("named cookie not present")
