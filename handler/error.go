package handler

import (
	"fmt"
	"log"
	"net/http"

	"github.com/siherrmann/schoolpayManager/view/components"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

func HandleErrorView(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var message interface{}
	message = err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		message = he.Message
	}
	c.Logger().Error(code, err)

	if !isHtmx(c) {
		_ = c.JSON(code, map[string]any{"message": fmt.Sprint(message)})
		return
	}
	_ = renderPopup(c, components.PopupError("Error", fmt.Sprint(message)))
}

func HandleCSRFErrorView(w http.ResponseWriter, r *http.Request) {
	err := csrf.FailureReason(r)
	log.Printf("CSRF error: %v", err)
	_ = renderPopupHTTP(w, components.PopupError("Error", "Invalid CSRF token, please reload the page."), http.StatusForbidden)
}
