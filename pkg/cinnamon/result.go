package cinnamon

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Content types used by the Result helpers
const (
	ContentTypeJSON = "application/json; charset=utf-8"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeXML  = "application/xml; charset=utf-8"
)

// ErrBlankValue is returned by Result setters given an empty or blank value
var ErrBlankValue = errors.New("parameter cannot be empty or blank")

// Result is the descriptor an action returns. It carries exactly one of a
// redirect target, a view name or a raw body, plus a status and content type.
//
// Example usage:
//
//	func (u *Users) Show(id int) *cinnamon.Result {
//	    u.Model()["user"] = lookup(id)
//	    return cinnamon.View("users/show")
//	}
type Result struct {
	statusCode  int
	contentType string
	view        string
	redirect    string
	content     []byte
	err         error
}

// NewResult returns an empty 200 text/html result
func NewResult() *Result {
	return &Result{
		statusCode:  http.StatusOK,
		contentType: ContentTypeHTML,
	}
}

// Text creates a 200 text/plain result
func Text(s string) *Result {
	return Custom([]byte(s), ContentTypeText)
}

// HTML creates a 200 text/html result with a raw body
func HTML(s string) *Result {
	return Custom([]byte(s), ContentTypeHTML)
}

// JSON encodes v as the body of a 200 application/json result. An encoding
// failure surfaces as a server error at dispatch time.
func JSON(v any) *Result {
	b, err := json.Marshal(v)
	r := Custom(b, ContentTypeJSON)
	if err != nil {
		r.err = errors.Wrap(err, "encoding JSON result")
	}
	return r
}

// XML encodes v as the body of a 200 application/xml result
func XML(v any) *Result {
	b, err := xml.Marshal(v)
	r := Custom(b, ContentTypeXML)
	if err != nil {
		r.err = errors.Wrap(err, "encoding XML result")
	}
	return r
}

// Custom creates a 200 result with the given body and content type
func Custom(body []byte, contentType string) *Result {
	r := NewResult()
	r.content = body
	r.remember(r.SetContentType(contentType))
	return r
}

// View creates a 200 text/html result rendered from the named template
func View(name string) *Result {
	return ViewWithContentType(name, ContentTypeHTML)
}

// ViewWithContentType creates a view result with a custom content type
func ViewWithContentType(name, contentType string) *Result {
	r := NewResult()
	r.remember(r.SetView(name))
	r.remember(r.SetContentType(contentType))
	return r
}

// Redirect creates a 303 See Other redirect
func Redirect(url string) *Result {
	return RedirectWithStatus(url, http.StatusSeeOther)
}

// RedirectWithStatus creates a redirect with an explicit status code
func RedirectWithStatus(url string, statusCode int) *Result {
	r := NewResult()
	r.remember(r.SetRedirect(url))
	r.statusCode = statusCode
	return r
}

func (r *Result) remember(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

// WithStatus sets the status code and returns the result for chaining
func (r *Result) WithStatus(code int) *Result {
	r.statusCode = code
	return r
}

// SetStatusCode sets the HTTP status code
func (r *Result) SetStatusCode(code int) {
	r.statusCode = code
}

// SetContentType sets the content type, rejecting blank values
func (r *Result) SetContentType(contentType string) error {
	if isBlank(contentType) {
		return errors.Wrap(ErrBlankValue, "content type")
	}
	r.contentType = contentType
	return nil
}

// SetView sets the template name, rejecting blank values
func (r *Result) SetView(name string) error {
	if isBlank(name) {
		return errors.Wrap(ErrBlankValue, "view")
	}
	r.view = name
	return nil
}

// SetRedirect sets the redirect location, rejecting blank values
func (r *Result) SetRedirect(url string) error {
	if isBlank(url) {
		return errors.Wrap(ErrBlankValue, "redirect")
	}
	r.redirect = url
	return nil
}

// SetContent replaces the raw body
func (r *Result) SetContent(body []byte) {
	r.content = body
}

func (r *Result) StatusCode() int     { return r.statusCode }
func (r *Result) ContentType() string { return r.contentType }
func (r *Result) View() string        { return r.view }
func (r *Result) Location() string    { return r.redirect }
func (r *Result) Content() []byte     { return r.content }

// IsRedirect reports whether the result redirects the client
func (r *Result) IsRedirect() bool {
	return r.redirect != ""
}

// IsView reports whether the result renders a template
func (r *Result) IsView() bool {
	return r.view != ""
}

// Err returns the first construction error, if any
func (r *Result) Err() error {
	return r.err
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
