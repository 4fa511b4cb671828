package adapters

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// harness pairs an adapter with a way to send it requests in-process
type harness struct {
	web   cinnamon.WebServerInterface
	serve func(*http.Request) *http.Response
}

// recorderServe drives an http.Handler through httptest
func recorderServe(h http.Handler) func(*http.Request) *http.Response {
	return func(r *http.Request) *http.Response {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Result()
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// inspect echoes what the adapter exposed through RequestContext
func inspect(c cinnamon.RequestContext) error {
	cookie := "none"
	if ck, err := c.Request().Cookie("sid"); err == nil {
		cookie = ck.Value
	} else if !errors.Is(err, cinnamon.ErrNoCookie) {
		return err
	}
	params := c.Params()
	id := ""
	if len(params["id"]) > 0 {
		id = params["id"][0]
	}
	trace, _ := c.Get("trace").(string)

	c.Response().SetHeader("X-Inspected", "yes")
	c.Response().SetCookie(cinnamon.Cookie{Name: "seen", Value: "1", Path: "/", HttpOnly: true})
	body := fmt.Sprintf("%s %s id=%s tags=%s cookie=%s trace=%s",
		c.Method(), c.Path(), id, strings.Join(params["tag"], ","), cookie, trace)
	return c.Response().Blob(http.StatusOK, cinnamon.ContentTypeText, []byte(body))
}

func tracing(name string) cinnamon.MiddlewareFunc {
	return func(next cinnamon.HandlerFunc) cinnamon.HandlerFunc {
		return func(c cinnamon.RequestContext) error {
			trace := name
			if prev, _ := c.Get("trace").(string); prev != "" {
				trace = prev + "," + name
			}
			c.Set("trace", trace)
			return next(c)
		}
	}
}

// runAdapterContract checks the behavior every adapter must share
func runAdapterContract(t *testing.T, newHarness func() harness, exactPrefix bool) {
	t.Run("query, cookies and middleware", func(t *testing.T) {
		h := newHarness()
		assert.NotEmpty(t, h.web.Name())
		h.web.Use(tracing("global"))
		h.web.Mount("/app", inspect, tracing("route"))

		req := httptest.NewRequest(http.MethodGet, "/app/Users/show?id=3&tag=a&tag=b", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
		resp := h.serve(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "yes", resp.Header.Get("X-Inspected"))
		assert.Equal(t, cinnamon.ContentTypeText, resp.Header.Get("Content-Type"))
		seen := findCookie(resp, "seen")
		require.NotNil(t, seen)
		assert.Equal(t, "1", seen.Value)
		assert.Equal(t, "GET /app/Users/show id=3 tags=a,b cookie=abc trace=global,route", readBody(t, resp))
	})

	t.Run("form body merged with query", func(t *testing.T) {
		h := newHarness()
		h.web.Mount("/app", inspect)

		form := url.Values{"id": {"9"}}
		req := httptest.NewRequest(http.MethodPost, "/app/Users/save?tag=x", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp := h.serve(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "POST /app/Users/save id=9 tags=x cookie=none trace=", readBody(t, resp))
	})

	t.Run("query values precede body values", func(t *testing.T) {
		h := newHarness()
		h.web.Mount("/app", inspect)

		form := url.Values{"id": {"2"}, "tag": {"y"}}
		req := httptest.NewRequest(http.MethodPost, "/app/Users/save?id=1&tag=x", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		resp := h.serve(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "POST /app/Users/save id=1 tags=x,y cookie=none trace=", readBody(t, resp))
	})

	if exactPrefix {
		t.Run("bare prefix", func(t *testing.T) {
			h := newHarness()
			h.web.Mount("/app/", inspect)

			resp := h.serve(httptest.NewRequest(http.MethodGet, "/app", nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, readBody(t, resp), "GET /app id=")
		})
	}

	t.Run("handler error without a response", func(t *testing.T) {
		h := newHarness()
		h.web.Mount("/err", func(cinnamon.RequestContext) error { return errors.New("boom") })

		resp := h.serve(httptest.NewRequest(http.MethodGet, "/err/x", nil))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, readBody(t, resp), "boom")
	})

	t.Run("no content", func(t *testing.T) {
		h := newHarness()
		h.web.Mount("/ping", func(c cinnamon.RequestContext) error {
			return c.Response().NoContent(http.StatusNoContent)
		})

		resp := h.serve(httptest.NewRequest(http.MethodGet, "/ping/x", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Empty(t, readBody(t, resp))
	})

	t.Run("plain http handler", func(t *testing.T) {
		h := newHarness()
		h.web.MountHTTP("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "metrics")
		}))

		resp := h.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "metrics", readBody(t, resp))
	})

	t.Run("dispatcher with sessions", func(t *testing.T) {
		h := newHarness()
		store := cinnamon.NewMemoryStore()
		t.Cleanup(func() { store.Close() })
		logger, _ := test.NewNullLogger()
		d := cinnamon.NewDispatcher(cinnamon.Config{ControllerPackage: "site"},
			cinnamon.WithRegistry(pagesRegistry()),
			cinnamon.WithSessionManager(cinnamon.NewSessionManager(store)),
			cinnamon.WithLogger(logger))
		h.web.Mount("/", d.Handle)

		resp := h.serve(httptest.NewRequest(http.MethodGet, "/Pages/login?name=ana", nil))
		readBody(t, resp)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/Pages/whoami", resp.Header.Get("Location"))
		sid := findCookie(resp, cinnamon.DefaultSessionCookieName)
		require.NotNil(t, sid)

		req := httptest.NewRequest(http.MethodGet, "/Pages/whoami", nil)
		req.AddCookie(&http.Cookie{Name: sid.Name, Value: sid.Value})
		resp = h.serve(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "ana", readBody(t, resp))

		resp = h.serve(httptest.NewRequest(http.MethodGet, "/Missing", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, cinnamon.GenericErrorBody, readBody(t, resp))
	})
}

type pages struct {
	cinnamon.Controller
}

func (p *pages) Login(name string) *cinnamon.Result {
	p.Session().Set("user", name)
	return cinnamon.Redirect("/Pages/whoami")
}

func (p *pages) Whoami() *cinnamon.Result {
	return cinnamon.Text(fmt.Sprint(p.Session().Get("user")))
}

func pagesRegistry() *cinnamon.Registry {
	reg := cinnamon.NewRegistry()
	reg.MustRegister("site.Pages", func() (any, error) { return &pages{}, nil },
		cinnamon.Action("login", (*pages).Login, cinnamon.Param("name")),
		cinnamon.Action("whoami", (*pages).Whoami))
	return reg
}
