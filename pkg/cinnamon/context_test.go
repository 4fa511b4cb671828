package cinnamon

import (
	"context"
	"net/http"
)

// fakeContext is an in-memory RequestContext
type fakeContext struct {
	ctx      context.Context
	method   string
	path     string
	params   map[string][]string
	header   http.Header
	cookies  map[string]string
	remote   string
	values   map[string]any
	response *fakeResponse
}

func newFakeContext(method, path string, params map[string][]string) *fakeContext {
	if params == nil {
		params = map[string][]string{}
	}
	return &fakeContext{
		ctx:      context.Background(),
		method:   method,
		path:     path,
		params:   params,
		header:   http.Header{},
		cookies:  map[string]string{},
		remote:   "192.0.2.1:1234",
		values:   map[string]any{},
		response: &fakeResponse{header: http.Header{}},
	}
}

func (f *fakeContext) Context() context.Context    { return f.ctx }
func (f *fakeContext) Method() string              { return f.method }
func (f *fakeContext) Path() string                { return f.path }
func (f *fakeContext) RequestURI() string          { return f.path }
func (f *fakeContext) Scheme() string              { return "http" }
func (f *fakeContext) Host() string                { return "example.test" }
func (f *fakeContext) RemoteAddr() string          { return f.remote }
func (f *fakeContext) Params() map[string][]string { return f.params }
func (f *fakeContext) Request() RequestInterface   { return fakeRequest{f} }
func (f *fakeContext) Response() ResponseInterface { return f.response }
func (f *fakeContext) Get(key string) any          { return f.values[key] }
func (f *fakeContext) Set(key string, val any)     { f.values[key] = val }

type fakeRequest struct {
	f *fakeContext
}

func (r fakeRequest) Header(key string) string { return r.f.header.Get(key) }
func (r fakeRequest) ContentType() string      { return r.f.header.Get("Content-Type") }

func (r fakeRequest) Cookie(name string) (Cookie, error) {
	v, ok := r.f.cookies[name]
	if !ok {
		return Cookie{}, ErrNoCookie
	}
	return Cookie{Name: name, Value: v}, nil
}

type fakeResponse struct {
	status      int
	header      http.Header
	contentType string
	body        []byte
	cookies     []Cookie
	written     bool
}

func (r *fakeResponse) Status() int                 { return r.status }
func (r *fakeResponse) Header(key string) string    { return r.header.Get(key) }
func (r *fakeResponse) SetHeader(key, value string) { r.header.Set(key, value) }
func (r *fakeResponse) SetCookie(c Cookie)          { r.cookies = append(r.cookies, c) }
func (r *fakeResponse) Written() bool               { return r.written }

func (r *fakeResponse) Blob(code int, contentType string, b []byte) error {
	r.status, r.contentType, r.body, r.written = code, contentType, b, true
	return nil
}

func (r *fakeResponse) NoContent(code int) error {
	r.status, r.written = code, true
	return nil
}

// cookie returns the last cookie set under name
func (r *fakeResponse) cookie(name string) (Cookie, bool) {
	for i := len(r.cookies) - 1; i >= 0; i-- {
		if r.cookies[i].Name == name {
			return r.cookies[i], true
		}
	}
	return Cookie{}, false
}
