package middleware

import (
	"net/http"

	"github.com/siherrmann/schoolpayManager/handler"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

func (r Middleware) CsrfMiddleware() echo.MiddlewareFunc {
	// TODO remove csrf.Secure(false) in production
	csrfMiddleware := csrf.Protect(
		r.csrfKey,
		csrf.Path("/"),
		csrf.Secure(false),
		csrf.SameSite(csrf.SameSiteLaxMode), // Set to Lax instead of default Strict
		csrf.ErrorHandler(http.HandlerFunc(handler.HandleCSRFErrorView)),
		csrf.TrustedOrigins(r.trustedOrigins),
	)
	return echo.WrapMiddleware(csrfMiddleware)
}
