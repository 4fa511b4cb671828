package adapters

import (
	"context"
	"net/http"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// HTTPAdapter implements cinnamon.WebServerInterface on net/http
type HTTPAdapter struct {
	mux         *http.ServeMux
	server      *http.Server
	middlewares []cinnamon.MiddlewareFunc
}

// NewHTTPAdapter creates a new net/http adapter
func NewHTTPAdapter() *HTTPAdapter {
	return &HTTPAdapter{mux: http.NewServeMux()}
}

// Mount routes prefix and everything below it to handler
func (ha *HTTPAdapter) Mount(prefix string, handler cinnamon.HandlerFunc, middlewares ...cinnamon.MiddlewareFunc) {
	h := HTTPHandler(ha.wrap(handler, middlewares))
	exact, subtree := mountPatterns(prefix, "")
	if exact != "" {
		ha.mux.Handle(exact, h)
	}
	ha.mux.Handle(subtree, h)
}

// MountHTTP serves handler at path
func (ha *HTTPAdapter) MountHTTP(path string, handler http.Handler) {
	ha.mux.Handle(path, handler)
}

// wrap applies global middleware outside the route's own
func (ha *HTTPAdapter) wrap(handler cinnamon.HandlerFunc, middlewares []cinnamon.MiddlewareFunc) cinnamon.HandlerFunc {
	all := append(append([]cinnamon.MiddlewareFunc(nil), ha.middlewares...), middlewares...)
	return cinnamon.Chain(handler, all...)
}

// Use adds global middleware. It applies to handlers mounted afterwards.
func (ha *HTTPAdapter) Use(middleware cinnamon.MiddlewareFunc) {
	ha.middlewares = append(ha.middlewares, middleware)
}

// Start starts the server
func (ha *HTTPAdapter) Start(addr string) error {
	ha.server = &http.Server{Addr: addr, Handler: ha.mux}
	return ha.server.ListenAndServe()
}

// Stop stops the server
func (ha *HTTPAdapter) Stop(ctx context.Context) error {
	if ha.server == nil {
		return nil
	}
	return ha.server.Shutdown(ctx)
}

// Name returns the adapter name
func (ha *HTTPAdapter) Name() string {
	return "net/http"
}

// ServeHTTP makes the adapter usable as a plain http.Handler
func (ha *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ha.mux.ServeHTTP(w, r)
}

// HTTPHandler converts a cinnamon.HandlerFunc to an http.Handler. An error
// the handler returns is answered with a bare 500 when nothing was written.
func HTTPHandler(handler cinnamon.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewHTTPRequestContext(w, r)
		if err := handler(ctx); err != nil && !ctx.response.written {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})
}

// HTTPRequestContext implements cinnamon.RequestContext for net/http
type HTTPRequestContext struct {
	request  *http.Request
	response *httpResponse
	values   map[string]any
}

// NewHTTPRequestContext wraps one net/http exchange
func NewHTTPRequestContext(w http.ResponseWriter, r *http.Request) *HTTPRequestContext {
	return &HTTPRequestContext{
		request:  r,
		response: &httpResponse{writer: w},
		values:   make(map[string]any),
	}
}

func (hc *HTTPRequestContext) Context() context.Context             { return hc.request.Context() }
func (hc *HTTPRequestContext) Method() string                       { return hc.request.Method }
func (hc *HTTPRequestContext) Path() string                         { return hc.request.URL.Path }
func (hc *HTTPRequestContext) RequestURI() string                   { return hc.request.RequestURI }
func (hc *HTTPRequestContext) Scheme() string                       { return schemeOf(hc.request) }
func (hc *HTTPRequestContext) Host() string                         { return hc.request.Host }
func (hc *HTTPRequestContext) RemoteAddr() string                   { return hc.request.RemoteAddr }
func (hc *HTTPRequestContext) Params() map[string][]string          { return formValues(hc.request) }
func (hc *HTTPRequestContext) Request() cinnamon.RequestInterface   { return &httpRequest{request: hc.request} }
func (hc *HTTPRequestContext) Response() cinnamon.ResponseInterface { return hc.response }
func (hc *HTTPRequestContext) Get(key string) any                   { return hc.values[key] }
func (hc *HTTPRequestContext) Set(key string, val any)              { hc.values[key] = val }

// httpResponse implements cinnamon.ResponseInterface over a ResponseWriter
type httpResponse struct {
	writer  http.ResponseWriter
	status  int
	written bool
}

func (hr *httpResponse) Status() int                 { return hr.status }
func (hr *httpResponse) Header(key string) string    { return hr.writer.Header().Get(key) }
func (hr *httpResponse) SetHeader(key, value string) { hr.writer.Header().Set(key, value) }
func (hr *httpResponse) Written() bool               { return hr.written }

func (hr *httpResponse) SetCookie(cookie cinnamon.Cookie) {
	http.SetCookie(hr.writer, toHTTPCookie(cookie))
}

func (hr *httpResponse) writeHeader(code int) {
	hr.status = code
	hr.written = true
	hr.writer.WriteHeader(code)
}

// Blob writes a complete response body
func (hr *httpResponse) Blob(code int, contentType string, b []byte) error {
	hr.writer.Header().Set("Content-Type", contentType)
	hr.writeHeader(code)
	_, err := hr.writer.Write(b)
	return err
}

// NoContent writes the status line only
func (hr *httpResponse) NoContent(code int) error {
	hr.writeHeader(code)
	return nil
}
