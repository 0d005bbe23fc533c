package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/siherrmann/schoolpayManager/catalog"
	"github.com/siherrmann/schoolpayManager/grid"
	"github.com/siherrmann/schoolpayManager/metrics"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/siherrmann/schoolpayManager/upload"
	"github.com/siherrmann/schoolpayManager/view/screens"

	"github.com/goccy/go-json"
	"github.com/gorilla/csrf"
	"github.com/labstack/echo/v4"
)

// anonymousSession is used for requests without a session cookie, e.g.
// API clients that do not keep cookies.
const anonymousSession = "anonymous"

// withGrid resolves the collection and the session of the request, refreshes
// the session rows and runs fn with the session locked.
func (m *ManagerHandler) withGrid(c echo.Context, fn func(collection catalog.Collection, engine *grid.Engine) error) error {
	collection, err := catalog.Lookup(c.Param("collection"))
	if err != nil {
		return renderPopupOrJson(c, http.StatusNotFound, err.Error())
	}

	sessionID := model.GetRequestContext(c).SessionID
	if sessionID == "" {
		sessionID = anonymousSession
	}

	session := m.sessions.get(sessionID, collection)
	session.mu.Lock()
	defer session.mu.Unlock()

	m.sessions.refresh(session, m.recordDB)
	return fn(collection, session.engine)
}

// renderGrid answers with the grid fragment for htmx and the view as JSON
// otherwise.
func renderGrid(c echo.Context, collection catalog.Collection, engine *grid.Engine) error {
	view := engine.View()
	if isHtmx(c) {
		return render(c, screens.Grid(collection, view))
	}
	return c.JSON(http.StatusOK, view)
}

func pathParam(c echo.Context, name string) string {
	value := c.Param(name)
	if unescaped, err := url.PathUnescape(value); err == nil {
		return unescaped
	}
	return value
}

// =======View Handlers=======

// GridView renders the grid page of a collection
func (m *ManagerHandler) GridView(c echo.Context) error {
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		if isHtmx(c) {
			c.Response().Header().Add("HX-Push-Url", "/grid/"+collection.Name)
			return render(c, screens.Grid(collection, engine.View()))
		}
		return render(c, screens.Layout(collection.Title, csrf.Token(c.Request()), screens.Grid(collection, engine.View())))
	})
}

// =======API Handlers=======

// GetGrid returns the current view of the grid
func (m *ManagerHandler) GetGrid(c echo.Context) error {
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		return renderGrid(c, collection, engine)
	})
}

// Search sets the free text query
func (m *ManagerHandler) Search(c echo.Context) error {
	var requestData struct {
		Search string `json:"search" form:"search" query:"search"`
	}
	if err := c.Bind(&requestData); err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		engine.SetSearch(requestData.Search)
		return renderGrid(c, collection, engine)
	})
}

// SetFilters replaces every filter clause. The body is a JSON array of
// {key, type, value} clauses, or a form with that array in "filters".
func (m *ManagerHandler) SetFilters(c echo.Context) error {
	body, err := requestJSON(c, "filters")
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	var specs []grid.ClauseSpec
	if len(bytes.TrimSpace(body)) > 0 {
		if err := decodeJSON(body, &specs); err != nil {
			return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid filters JSON: %v", err))
		}
	}

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		clauses := make([]grid.FilterClause, 0, len(specs))
		for _, spec := range specs {
			if _, ok := collection.Column(spec.Key); !ok {
				return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Unknown filter column %s", spec.Key))
			}
			clauses = append(clauses, spec.Clause())
		}
		engine.SetFilters(clauses)
		return renderGrid(c, collection, engine)
	})
}

// SetFilter sets the clause of one column. A clause without a value clears
// the filter of the column. Besides the JSON clause in "filter" it accepts
// the plain fields of the grid's filter forms, see formClauseSpec.
func (m *ManagerHandler) SetFilter(c echo.Context) error {
	body, err := requestJSON(c, "filter")
	if err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	var spec grid.ClauseSpec
	fromForm := len(bytes.TrimSpace(body)) == 0 && c.FormValue("key") != ""
	if fromForm {
		spec.Key = c.FormValue("key")
	} else if err := decodeJSON(body, &spec); err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid filter JSON: %v", err))
	}

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		column, ok := collection.Column(spec.Key)
		if !ok {
			return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Unknown filter column %s", spec.Key))
		}
		if fromForm {
			spec = formClauseSpec(c, column)
		}
		if spec.Type == "" {
			spec.Type = column.FilterType
		}

		clause := spec.Clause()
		if clause.Unset() {
			engine.ClearFilter(spec.Key)
		} else {
			engine.SetFilter(clause)
		}
		return renderGrid(c, collection, engine)
	})
}

// Sort advances the sort of a column through unset, ascending and descending
func (m *ManagerHandler) Sort(c echo.Context) error {
	key := pathParam(c, "key")
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		if _, err := engine.ToggleSort(key); err != nil {
			return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Failed to sort: %v", err))
		}
		return renderGrid(c, collection, engine)
	})
}

// Page changes the page and/or the page size. Zero values are ignored.
func (m *ManagerHandler) Page(c echo.Context) error {
	var requestData struct {
		Page     int `json:"page" form:"page" query:"page"`
		PageSize int `json:"page_size" form:"page_size" query:"page_size"`
	}
	if err := c.Bind(&requestData); err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		if requestData.PageSize != 0 {
			if err := engine.SetPageSize(requestData.PageSize); err != nil {
				return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid page size: %v", err))
			}
		}
		if requestData.Page != 0 {
			pagination := engine.Pagination()
			engine.SetPage(grid.ClampPage(requestData.Page, pagination.Total, pagination.PageSize))
		}
		return renderGrid(c, collection, engine)
	})
}

// Select toggles the selection of one row
func (m *ManagerHandler) Select(c echo.Context) error {
	key := pathParam(c, "key")
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		engine.Toggle(key)
		return renderGrid(c, collection, engine)
	})
}

// SelectAll selects every row of the current page, with ?toggle=true it
// deselects them if all are selected already.
func (m *ManagerHandler) SelectAll(c echo.Context) error {
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		if c.QueryParam("toggle") == "true" {
			engine.ToggleAllOnPage()
		} else {
			engine.SelectAllOnPage()
		}
		return renderGrid(c, collection, engine)
	})
}

// ClearSelection deselects every row
func (m *ManagerHandler) ClearSelection(c echo.Context) error {
	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		engine.ClearSelection()
		return renderGrid(c, collection, engine)
	})
}

// Columns changes the column visibility. Actions are show, hide, showAll,
// hideAll and reset.
func (m *ManagerHandler) Columns(c echo.Context) error {
	var requestData struct {
		Action string `json:"action" form:"action" query:"action"`
		Key    string `json:"key" form:"key" query:"key"`
	}
	if err := c.Bind(&requestData); err != nil {
		return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
	}

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		var err error
		switch requestData.Action {
		case "show":
			err = engine.ShowColumn(requestData.Key)
		case "hide":
			err = engine.HideColumn(requestData.Key)
		case "showAll":
			engine.ShowAllColumns()
		case "hideAll":
			engine.HideAllColumns()
		case "reset":
			engine.ResetColumns()
		default:
			return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Unknown column action %q", requestData.Action))
		}
		if err != nil {
			return renderPopupOrJson(c, http.StatusBadRequest, fmt.Sprintf("Failed to change columns: %v", err))
		}
		return renderGrid(c, collection, engine)
	})
}

// Export serializes the processed collection, or the selected rows with
// ?selected=true, stores the artifact and sends it as download.
func (m *ManagerHandler) Export(c echo.Context) error {
	selected := c.QueryParam("selected") == "true"

	return m.withGrid(c, func(collection catalog.Collection, engine *grid.Engine) error {
		var export *grid.Export
		var err error
		scope := "all"
		if selected {
			scope = "selected"
			export, err = engine.ExportSelected(collection.ExportName)
		} else {
			export, err = engine.Export(collection.ExportName)
		}
		if errors.Is(err, grid.ErrNoRows) {
			return renderPopupOrJson(c, http.StatusBadRequest, "No rows selected")
		} else if err != nil {
			return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to export: %v", err))
		}

		file, err := upload.SaveExport(m.filesystem, export)
		if err != nil {
			return renderPopupOrJson(c, http.StatusInternalServerError, fmt.Sprintf("Failed to store export: %v", err))
		}
		metrics.ObserveExport(collection.Name, scope, export.Rows)
		m.logger.Info("Exported rows", "collection", collection.Name, "scope", scope, "rows", export.Rows, "file", file.Name)

		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
		c.Response().Header().Add("HX-Trigger-After-Settle", "reloadExports")
		return c.Blob(http.StatusOK, export.MimeType, export.Payload)
	})
}

// =======Helpers=======

// requestJSON returns the raw JSON of a request: the body for JSON requests,
// the form field field otherwise.
func requestJSON(c echo.Context, field string) ([]byte, error) {
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEApplicationJSON) {
		return io.ReadAll(c.Request().Body)
	}
	return []byte(c.FormValue(field)), nil
}

// formClauseSpec reads a clause from filter form fields: value, min and max
// for number ranges, start and end for date ranges. Blank fields leave the
// clause unset. Select values are mapped back to the typed option value.
func formClauseSpec(c echo.Context, column grid.ColumnDescriptor) grid.ClauseSpec {
	spec := grid.ClauseSpec{Key: column.Key, Type: grid.FilterType(c.FormValue("type"))}
	if spec.Type == "" {
		spec.Type = column.FilterType
	}

	value := c.FormValue("value")
	switch spec.Type {
	case grid.FilterNumberRange:
		spec.Value = formPair(c.FormValue("min"), c.FormValue("max"))
	case grid.FilterDateRange:
		spec.Value = formPair(c.FormValue("start"), c.FormValue("end"))
	case grid.FilterBoolean:
		if b, err := strconv.ParseBool(value); err == nil {
			spec.Value = b
		}
	case grid.FilterSelect:
		for _, option := range column.FilterOptions {
			if value != "" && fmt.Sprint(option.Value) == value {
				spec.Value = option.Value
				return spec
			}
		}
		fallthrough
	default:
		if value != "" {
			spec.Value = value
		}
	}
	return spec
}

func formPair(low string, high string) any {
	if low == "" && high == "" {
		return nil
	}
	return []any{low, high}
}

// decodeJSON keeps numbers as json.Number so amounts are not rounded.
func decodeJSON(data []byte, target any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(target)
}
