package handler

import (
	"fmt"
	"net/http"

	"github.com/siherrmann/schoolpayManager/catalog"
	"github.com/siherrmann/schoolpayManager/view/screens"

	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

// IndexView renders the collections with their record counts
func (m *ManagerHandler) IndexView(c echo.Context) error {
	collections := catalog.Collections()
	summaries := make([]screens.CollectionSummary, 0, len(collections))
	for _, collection := range collections {
		count, err := m.recordDB.CountRecords(collection.Name)
		if err != nil {
			return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to count %s: %v", collection.Name, err))
		}
		summaries = append(summaries, screens.CollectionSummary{Collection: collection, Count: count})
	}

	if isHtmx(c) {
		c.Response().Header().Add("HX-Push-Url", "/")
		return render(c, screens.Index(summaries))
	}
	return render(c, screens.Layout("Collections", csrf.Token(c.Request()), screens.Index(summaries)))
}
