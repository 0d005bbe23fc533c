package middleware

import (
	"net/http"
	"strings"

	"github.com/siherrmann/schoolpayManager/model"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequestContextMiddleware fills the request context and makes sure the
// browser carries a grid session cookie. API requests without a cookie that
// are not sent by htmx get no session and share the anonymous grid state.
func (r *Middleware) RequestContextMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		rc := model.GetRequestContext(c)

		rc.Url = c.Request().URL.Path
		rc.HxRequest = c.Request().Header.Get("hx-request") == "true"
		rc.SessionID = sessionID(c, rc.HxRequest)

		model.SetRequestContext(c, rc)

		return next(c)
	}
}

func sessionID(c echo.Context, hxRequest bool) string {
	if cookie, err := c.Cookie(SESSION_COOKIE); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	if !hxRequest && strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return ""
	}

	id := uuid.New().String()
	c.SetCookie(&http.Cookie{
		Name:     SESSION_COOKIE,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
