package cinnamon

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
)

// DefaultDatePattern is the layout used by Request.Time
const DefaultDatePattern = "01/02/2006"

// RequestIDHeader carries a caller supplied request id
const RequestIDHeader = "X-Request-ID"

// remoteIPHeaders are consulted in order before the transport address
var remoteIPHeaders = []string{
	"X-Forwarded-For",
	"Proxy-Client-IP",
	"WL-Proxy-Client-IP",
	"HTTP_X_FORWARDED_FOR",
	"HTTP_X_FORWARDED",
	"HTTP_X_CLUSTER_CLIENT_IP",
	"HTTP_CLIENT_IP",
	"HTTP_FORWARDED_FOR",
	"HTTP_FORWARDED",
	"HTTP_VIA",
	"REMOTE_ADDR",
}

// Request is the read-only snapshot of an inbound request handed to handlers
type Request struct {
	ctx       context.Context
	method    string
	path      string
	uri       string
	scheme    string
	host      string
	referer   string
	remoteIP  string
	requestID string
	locale    language.Tag
	params    Params

	// DatePattern is the time layout used by Time and TimeDefault
	DatePattern string
}

// NewRequest snapshots the transport request
func NewRequest(c RequestContext) *Request {
	req := c.Request()
	r := &Request{
		ctx:         c.Context(),
		method:      c.Method(),
		path:        c.Path(),
		uri:         c.RequestURI(),
		scheme:      c.Scheme(),
		host:        c.Host(),
		referer:     req.Header("Referer"),
		remoteIP:    resolveRemoteIP(req, c.RemoteAddr()),
		requestID:   req.Header(RequestIDHeader),
		locale:      parseLocale(req.Header("Accept-Language")),
		params:      NewParams(c.Params()),
		DatePattern: DefaultDatePattern,
	}
	if r.requestID == "" {
		r.requestID = uuid.NewString()
	}
	return r
}

// resolveRemoteIP walks the proxy header chain, keeping the first entry of a
// comma separated list and skipping "unknown".
func resolveRemoteIP(req RequestInterface, remoteAddr string) string {
	for _, name := range remoteIPHeaders {
		value := req.Header(name)
		if i := strings.IndexByte(value, ','); i >= 0 {
			value = value[:i]
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.EqualFold(value, "unknown") {
			continue
		}
		return value
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

func parseLocale(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Und
	}
	return tags[0]
}

// Context returns the request-scoped context
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

func (r *Request) Method() string       { return r.method }
func (r *Request) Path() string         { return r.path }
func (r *Request) URI() string          { return r.uri }
func (r *Request) Scheme() string       { return r.scheme }
func (r *Request) Host() string         { return r.host }
func (r *Request) Referer() string      { return r.referer }
func (r *Request) RemoteIP() string     { return r.remoteIP }
func (r *Request) ID() string           { return r.requestID }
func (r *Request) Locale() language.Tag { return r.locale }
func (r *Request) Params() Params       { return r.params }

// String returns the first value of a parameter, or ""
func (r *Request) String(name string) string {
	return r.params.Get(name)
}

// StringDefault returns the first value of a parameter, or def when absent
func (r *Request) StringDefault(name, def string) string {
	return r.params.GetDefault(name, def)
}

// Int returns a parameter as int, or 0 when absent or invalid
func (r *Request) Int(name string) int {
	return r.params.GetInt(name)
}

func (r *Request) IntDefault(name string, def int) int {
	return r.params.GetIntDefault(name, def)
}

func (r *Request) Int64(name string) int64     { return r.params.GetInt64Default(name, 0) }
func (r *Request) Int16(name string) int16     { return r.params.GetInt16Default(name, 0) }
func (r *Request) Float32(name string) float32 { return r.params.GetFloat32Default(name, 0) }
func (r *Request) Float64(name string) float64 { return r.params.GetFloat64Default(name, 0) }

func (r *Request) Int64Default(name string, def int64) int64 {
	return r.params.GetInt64Default(name, def)
}

func (r *Request) Int16Default(name string, def int16) int16 {
	return r.params.GetInt16Default(name, def)
}

func (r *Request) Float32Default(name string, def float32) float32 {
	return r.params.GetFloat32Default(name, def)
}

func (r *Request) Float64Default(name string, def float64) float64 {
	return r.params.GetFloat64Default(name, def)
}

// Bool returns true for "true" or "yes", case insensitive
func (r *Request) Bool(name string) bool {
	return r.params.GetBool(name)
}

func (r *Request) BoolDefault(name string, def bool) bool {
	return r.params.GetBoolDefault(name, def)
}

// Time parses a parameter with DatePattern
func (r *Request) Time(name string) (time.Time, bool) {
	return r.params.GetTime(name, r.DatePattern)
}

// TimeDefault parses a parameter with DatePattern, returning def on failure
func (r *Request) TimeDefault(name string, def time.Time) time.Time {
	if t, ok := r.Time(name); ok {
		return t
	}
	return def
}
