package adapters

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/michaelquigley/pfxlog"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// defaultMaxMemory is the multipart form memory limit, matching net/http
const defaultMaxMemory = 32 << 20

// formValues merges query and body parameters of r. Query values come
// first for a key present in both.
func formValues(r *http.Request) map[string][]string {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(defaultMaxMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		pfxlog.Logger().WithError(err).Debugf("parsing form of %s %s", r.Method, r.URL.Path)
	}

	values := make(url.Values, len(r.Form))
	for k, v := range r.URL.Query() {
		values[k] = append(values[k], v...)
	}
	// PostForm also holds multipart values
	for k, v := range r.PostForm {
		values[k] = append(values[k], v...)
	}
	return values
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}

// mountPatterns returns the exact and subtree patterns for prefix
func mountPatterns(prefix, wildcard string) (exact, subtree string) {
	prefix = strings.TrimRight(prefix, "/")
	return prefix, prefix + "/" + wildcard
}

// httpRequest implements cinnamon.RequestInterface over *http.Request
type httpRequest struct {
	request *http.Request
}

func (hr *httpRequest) Header(key string) string { return hr.request.Header.Get(key) }
func (hr *httpRequest) ContentType() string      { return hr.request.Header.Get("Content-Type") }

// Cookie returns the named cookie or cinnamon.ErrNoCookie
func (hr *httpRequest) Cookie(name string) (cinnamon.Cookie, error) {
	c, err := hr.request.Cookie(name)
	if err != nil {
		return cinnamon.Cookie{}, cinnamon.ErrNoCookie
	}
	return fromHTTPCookie(c), nil
}

func fromHTTPCookie(c *http.Cookie) cinnamon.Cookie {
	return cinnamon.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		MaxAge:   c.MaxAge,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: cinnamon.SameSiteMode(c.SameSite),
	}
}

func toHTTPCookie(cookie cinnamon.Cookie) *http.Cookie {
	return &http.Cookie{
		Name:     cookie.Name,
		Value:    cookie.Value,
		Path:     cookie.Path,
		Domain:   cookie.Domain,
		Expires:  cookie.Expires,
		MaxAge:   cookie.MaxAge,
		Secure:   cookie.Secure,
		HttpOnly: cookie.HttpOnly,
		SameSite: http.SameSite(cookie.SameSite),
	}
}
