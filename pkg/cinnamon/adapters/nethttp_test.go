package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

func TestHTTPAdapter_Contract(t *testing.T) {
	runAdapterContract(t, func() harness {
		adapter := NewHTTPAdapter()
		return harness{web: adapter, serve: recorderServe(adapter)}
	}, true)
}

func TestHTTPAdapter_UseAppliesToLaterMounts(t *testing.T) {
	adapter := NewHTTPAdapter()
	adapter.Mount("/before", inspect)
	adapter.Use(tracing("global"))
	adapter.Mount("/after", inspect)
	serve := recorderServe(adapter)

	assert.NotContains(t, readBody(t, serve(httptest.NewRequest(http.MethodGet, "/before/x", nil))), "global")
	assert.Contains(t, readBody(t, serve(httptest.NewRequest(http.MethodGet, "/after/x", nil))), "trace=global")
}

func TestHTTPAdapter_RequestDetails(t *testing.T) {
	var got cinnamon.RequestContext
	handler := HTTPHandler(func(c cinnamon.RequestContext) error {
		got = c
		return c.Response().NoContent(http.StatusAccepted)
	})

	req := httptest.NewRequest(http.MethodGet, "http://shop.test/a?b=c", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "https", got.Scheme())
	assert.Equal(t, "shop.test", got.Host())
	assert.Equal(t, "198.51.100.7:4000", got.RemoteAddr())
	assert.Equal(t, http.StatusAccepted, got.Response().Status())
	assert.True(t, got.Response().Written())
	_, err := got.Request().Cookie("missing")
	assert.ErrorIs(t, err, cinnamon.ErrNoCookie)
}

func TestHTTPAdapter_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewHTTPAdapter().Stop(context.Background()))
	assert.Equal(t, "net/http", NewHTTPAdapter().Name())
}

func TestCookieConversion(t *testing.T) {
	c := cinnamon.Cookie{Name: "a", Value: "b", Path: "/", MaxAge: 60, Secure: true, HttpOnly: true,
		SameSite: cinnamon.SameSiteStrictMode}
	assert.Equal(t, c, fromHTTPCookie(toHTTPCookie(c)))
}

func TestFormValues(t *testing.T) {
	t.Run("query first then body", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/save?id=1", strings.NewReader("id=2&name=ana"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		values := formValues(r)
		assert.Equal(t, []string{"1", "2"}, values["id"])
		assert.Equal(t, []string{"ana"}, values["name"])
	})

	t.Run("multipart values are not duplicated", func(t *testing.T) {
		body := "--b\r\nContent-Disposition: form-data; name=\"id\"\r\n\r\n2\r\n--b--\r\n"
		r := httptest.NewRequest(http.MethodPost, "/save?id=1", strings.NewReader(body))
		r.Header.Set("Content-Type", "multipart/form-data; boundary=b")

		assert.Equal(t, []string{"1", "2"}, formValues(r)["id"])
	})

	t.Run("malformed body is logged and the query kept", func(t *testing.T) {
		hook := test.NewGlobal()
		level := logrus.GetLevel()
		logrus.SetLevel(logrus.DebugLevel)
		t.Cleanup(func() { logrus.SetLevel(level) })

		r := httptest.NewRequest(http.MethodPost, "/save?id=1", strings.NewReader("name=%zz"))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		values := formValues(r)
		assert.Equal(t, []string{"1"}, values["id"])

		require.NotEmpty(t, hook.AllEntries())
		entry := hook.LastEntry()
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Contains(t, entry.Message, "parsing form of POST /save")
		assert.NotNil(t, entry.Data[logrus.ErrorKey])
	})
}
