package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/siherrmann/schoolpayManager/metrics"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContextMiddleware(t *testing.T) {
	m := NewMiddleware()
	e := echo.New()

	var rc model.RequestContext
	next := func(c echo.Context) error {
		rc = model.GetRequestContext(c)
		return c.NoContent(http.StatusOK)
	}

	t.Run("New browsers get a session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/grid/students", nil)
		req.Header.Set("hx-request", "true")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequestContextMiddleware(next)(c)
		require.NoError(t, err)

		assert.Equal(t, "/grid/students", rc.Url)
		assert.True(t, rc.HxRequest)
		require.NotEmpty(t, rc.SessionID)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SESSION_COOKIE, cookies[0].Name)
		assert.Equal(t, rc.SessionID, cookies[0].Value)
	})

	t.Run("An existing session cookie is kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SESSION_COOKIE, Value: "0b5e8a1c-7f3d-4a59-9d2e-6c1b8f4e2a07"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequestContextMiddleware(next)(c)
		require.NoError(t, err)

		assert.Equal(t, "0b5e8a1c-7f3d-4a59-9d2e-6c1b8f4e2a07", rc.SessionID)
		assert.Empty(t, rec.Result().Cookies())
		assert.False(t, rc.HxRequest)
	})

	t.Run("Cookie-less API clients get no session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/grid/students", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequestContextMiddleware(next)(c)
		require.NoError(t, err)
		assert.Empty(t, rc.SessionID)
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("Htmx API requests without a cookie get a session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/grid/students/search", nil)
		req.Header.Set("hx-request", "true")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequestContextMiddleware(next)(c)
		require.NoError(t, err)
		assert.NotEmpty(t, rc.SessionID)
		assert.Len(t, rec.Result().Cookies(), 1)
	})

	t.Run("A malformed session cookie is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SESSION_COOKIE, Value: "not-a-uuid"})
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.RequestContextMiddleware(next)(c)
		require.NoError(t, err)
		assert.NotEqual(t, "not-a-uuid", rc.SessionID)
		assert.Len(t, rec.Result().Cookies(), 1)
	})
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMiddleware()
	e := echo.New()
	e.Use(m.MetricsMiddleware)
	e.GET("/metrics-test/:id", func(c echo.Context) error {
		return c.String(http.StatusTeapot, "tea")
	})

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/metrics-test/:id", "418"))

	req := httptest.NewRequest(http.MethodGet, "/metrics-test/7", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.RequestTotal.WithLabelValues(http.MethodGet, "/metrics-test/:id", "418")))
}

func TestCsrfMiddleware(t *testing.T) {
	m := NewMiddleware()
	e := echo.New()
	e.POST("/api/grid/students/search", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, m.CsrfMiddleware())

	t.Run("Posts without token get the error popup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/grid/students/search", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid CSRF token")
		assert.Equal(t, "#body", rec.Header().Get("HX-Retarget"))
	})
}
