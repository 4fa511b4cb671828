package cinnamon

import (
	"bytes"
	"html/template"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/pkg/errors"

	"github.com/ajaimes/cinnamon/internal/utils"
)

// Reserved template data keys. Model entries under these names are hidden
// by the values the renderer provides.
const (
	RequestKey  = "request"
	SessionKey  = "session"
	MessagesKey = "messages"
)

// Outcome is everything a successful dispatch hands to the renderer
type Outcome struct {
	Result   *Result
	Model    map[string]any
	Messages *Messages
	Session  *Session
	Request  *Request
}

// Renderer turns an Outcome into an HTTP response
type Renderer interface {
	Render(c RequestContext, out *Outcome) error
}

// TemplateRenderer is the default Renderer. Views are html/template files
// named <ViewsDir>/<view>.html and parsed once. With Reload set a view is
// parsed again whenever its file changes.
type TemplateRenderer struct {
	ViewsDir string
	Funcs    template.FuncMap
	Reload   bool

	// Compress enables brotli encoding of bodies for clients that accept it
	Compress bool

	once  sync.Once
	cache *utils.Cache[string, *template.Template]
}

// NewTemplateRenderer creates a renderer reading views from dir
func NewTemplateRenderer(dir string, compress bool) *TemplateRenderer {
	return &TemplateRenderer{
		ViewsDir: dir,
		Compress: compress,
	}
}

// Render writes the redirect, view or raw body carried by out.Result
func (r *TemplateRenderer) Render(c RequestContext, out *Outcome) error {
	res := out.Result
	if res.IsRedirect() {
		c.Response().SetHeader("Location", res.Location())
		return c.Response().NoContent(res.StatusCode())
	}

	body := res.Content()
	if res.IsView() {
		tmpl, err := r.lookup(res.View())
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, templateData(out)); err != nil {
			return errors.Wrapf(err, "executing view %q", res.View())
		}
		body = buf.Bytes()
	}
	return r.write(c, res.StatusCode(), res.ContentType(), body)
}

func (r *TemplateRenderer) write(c RequestContext, code int, contentType string, body []byte) error {
	if !r.Compress || len(body) == 0 || !acceptsBrotli(c.Request().Header("Accept-Encoding")) {
		return c.Response().Blob(code, contentType, body)
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(body); err != nil {
		return errors.Wrap(err, "compressing response")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "compressing response")
	}
	c.Response().SetHeader("Content-Encoding", "br")
	c.Response().SetHeader("Vary", "Accept-Encoding")
	return c.Response().Blob(code, contentType, buf.Bytes())
}

func acceptsBrotli(header string) bool {
	for _, part := range strings.Split(header, ",") {
		coding, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if strings.EqualFold(strings.TrimSpace(coding), "br") {
			return strings.ReplaceAll(strings.TrimSpace(params), " ", "") != "q=0"
		}
	}
	return false
}

func (r *TemplateRenderer) lookup(name string) (*template.Template, error) {
	r.once.Do(func() { r.cache = utils.NewCache[string, *template.Template]() })

	path := filepath.Join(r.ViewsDir, filepath.FromSlash(name)+".html")
	var (
		tmpl *template.Template
		ok   bool
	)
	if r.Reload {
		tmpl, ok = r.cache.GetWithFileValidation(name, path)
	} else {
		tmpl, ok = r.cache.Get(name)
	}
	if ok {
		return tmpl, nil
	}

	tmpl, err := template.New(filepath.Base(path)).Funcs(r.Funcs).ParseFiles(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading view %q", name)
	}
	if err := r.cache.SetWithFileInfo(name, tmpl, path); err != nil {
		r.cache.Set(name, tmpl)
	}
	return tmpl, nil
}

// templateData merges the model with the reserved request, session and
// messages entries
func templateData(out *Outcome) map[string]any {
	data := make(map[string]any, len(out.Model)+3)
	for k, v := range out.Model {
		data[k] = v
	}
	data[RequestKey] = out.Request
	data[SessionKey] = out.Session
	data[MessagesKey] = out.Messages
	return data
}

// errorResponse writes the generic body for a failed dispatch
func errorResponse(c RequestContext, kind ErrorKind) error {
	if c.Response().Written() {
		return nil
	}
	return c.Response().Blob(kind.StatusCode(), ContentTypeText, []byte(GenericErrorBody))
}
