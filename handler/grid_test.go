package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/siherrmann/schoolpayManager/catalog"
	"github.com/siherrmann/schoolpayManager/grid"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/siherrmann/schoolpayManager/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCollection(t *testing.T, name string) catalog.Collection {
	t.Helper()
	collection, err := catalog.Lookup(name)
	require.NoError(t, err)
	return collection
}

func form(values url.Values) *strings.Reader {
	return strings.NewReader(values.Encode())
}

func lastNames(view grid.View) []string {
	names := make([]string, 0, len(view.Rows))
	for _, row := range view.Rows {
		names = append(names, row.GetStringByKey("last_name"))
	}
	return names
}

func TestGetGrid(t *testing.T) {
	t.Run("First page with the default sort", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		records := seedStudents(t, store, 15)

		rec := serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		require.Equal(t, http.StatusOK, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, grid.PaginationState{Current: 1, PageSize: 10, Total: 15}, view.Pagination)
		assert.Equal(t, 2, view.PageCount)
		assert.Equal(t, grid.SortState{Key: "last_name", Direction: grid.DirectionAsc}, view.Sort)
		require.Len(t, view.Rows, 10)
		assert.Equal(t, "Pupil 01", view.Rows[0].GetStringByKey("last_name"))
		assert.Equal(t, records[0].RID.String(), view.Keys[0])
		for _, column := range view.Columns {
			assert.NotEqual(t, "rid", column.Key, "hidden columns are not part of the view")
		}
	})

	t.Run("Unknown collection", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)
		rec := serve(t, handler.GetGrid, http.MethodGet, "/api/grid/teachers", nil, "", "collection", "teachers")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown collection")
	})

	t.Run("Htmx request gets the grid fragment", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 2)

		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/grid/students", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("collection")
		c.SetParamValues("students")

		require.NoError(t, handler.GetGrid(c))
		assert.Contains(t, rec.Body.String(), `<section id="grid"`)
		assert.Contains(t, rec.Body.String(), "Pupil 02")
	})

	t.Run("Grid view renders the full page", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 1)

		rec := serve(t, handler.GridView, http.MethodGet, "/grid/students", nil, "", "collection", "students")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<title>Students · Schoolpay</title>")
		assert.Contains(t, rec.Body.String(), "Pupil 01")
	})
}

func TestGridSessionRows(t *testing.T) {
	t.Run("Rows are loaded once until the collection changes", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 3)

		serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		assert.Equal(t, 1, store.loads)

		rec := serve(t, handler.AddRecord, http.MethodPost, "/api/record/students/addRecord",
			strings.NewReader(`{"first_name":"New","last_name":"Pupil 00"}`), echo.MIMEApplicationJSON, "collection", "students")
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		assert.Equal(t, 2, store.loads)
		view := decodeView(t, rec)
		assert.Equal(t, 4, view.Pagination.Total)
		assert.Equal(t, "Pupil 00", view.Rows[0].GetStringByKey("last_name"))
	})

	t.Run("Sessions are separate per browser", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 3)

		e := echo.New()
		search := func(sessionID string, query string) grid.View {
			req := httptest.NewRequest(http.MethodPost, "/api/grid/students/search", form(url.Values{"search": {query}}))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("collection")
			c.SetParamValues("students")
			model.SetRequestContext(c, model.RequestContext{SessionID: sessionID})
			require.NoError(t, handler.Search(c))
			return decodeView(t, rec)
		}

		assert.Equal(t, 1, search("one", "Pupil 02").Pagination.Total)
		assert.Equal(t, 3, search("two", "").Pagination.Total)
		assert.Equal(t, "Pupil 02", search("one", "Pupil 02").Search)
		assert.Equal(t, 2, handler.sessions.Len())
	})

	t.Run("A failing store puts the grid into the error state", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 3)
		store.err = errors.New("connection refused")

		rec := serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		view := decodeView(t, rec)
		assert.Equal(t, "connection refused", view.Error)
		assert.Empty(t, view.Rows)

		rec = serve(t, handler.Export, http.MethodGet, "/api/grid/students/export", nil, "", "collection", "students")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		store.err = nil
		rec = serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		view = decodeView(t, rec)
		assert.Empty(t, view.Error)
		assert.Len(t, view.Rows, 3)
	})
}

func TestGridSessionRegistry(t *testing.T) {
	t.Run("Requests without a session share the anonymous grid", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 12)

		for i := 0; i < 50; i++ {
			serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		}
		assert.Equal(t, 1, handler.sessions.Len())

		serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page": {"2"}}), echo.MIMEApplicationForm, "collection", "students")
		rec := serve(t, handler.GetGrid, http.MethodGet, "/api/grid/students", nil, "", "collection", "students")
		assert.Equal(t, 2, decodeView(t, rec).Pagination.Current, "state is kept between requests")
	})

	t.Run("A full registry evicts the least recently used session", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)
		registry := handler.sessions
		registry.max = 3
		clock := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
		registry.now = func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}

		students := mustCollection(t, "students")
		first := registry.get("first", students)
		registry.get("second", students)
		registry.get("third", students)
		registry.get("first", students)
		registry.get("fourth", students)

		assert.Equal(t, 3, registry.Len())
		assert.Same(t, first, registry.get("first", students), "recently used sessions survive")
		assert.Equal(t, 3, registry.Len())
		registry.mu.Lock()
		_, ok := registry.sessions[sessionKey("second", "students")]
		registry.mu.Unlock()
		assert.False(t, ok, "the oldest session was evicted")
	})
}

func TestGridControls(t *testing.T) {
	t.Run("Search resets to the first page", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 15)

		rec := serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page": {"2"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, 2, decodeView(t, rec).Pagination.Current)

		rec = serve(t, handler.Search, http.MethodPost, "/api/grid/students/search", form(url.Values{"search": {"pupil 1"}}), echo.MIMEApplicationForm, "collection", "students")
		view := decodeView(t, rec)
		assert.Equal(t, 1, view.Pagination.Current)
		assert.Equal(t, []string{"Pupil 10", "Pupil 11", "Pupil 12", "Pupil 13", "Pupil 14", "Pupil 15"}, lastNames(view))
	})

	t.Run("Filters from a JSON array", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 15)

		body := `[{"key":"class","type":"select","value":"A"},{"key":"balance","type":"numberRange","value":[20,50.5]}]`
		rec := serve(t, handler.SetFilters, http.MethodPost, "/api/grid/students/filters", strings.NewReader(body), echo.MIMEApplicationJSON, "collection", "students")
		require.Equal(t, http.StatusOK, rec.Code)

		view := decodeView(t, rec)
		assert.Equal(t, []string{"Pupil 02", "Pupil 03", "Pupil 04", "Pupil 05"}, lastNames(view))
		require.Len(t, view.Filters, 2)
		assert.Equal(t, grid.FilterSelect, view.Filters[0].Type)

		rec = serve(t, handler.SetFilters, http.MethodPost, "/api/grid/students/filters", form(url.Values{"filters": {""}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, 15, decodeView(t, rec).Pagination.Total)
	})

	t.Run("Filters on unknown columns are rejected", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)
		body := `[{"key":"shoe_size","type":"number","value":42}]`
		rec := serve(t, handler.SetFilters, http.MethodPost, "/api/grid/students/filters", strings.NewReader(body), echo.MIMEApplicationJSON, "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(t, handler.SetFilters, http.MethodPost, "/api/grid/students/filters", strings.NewReader(`{not json`), echo.MIMEApplicationJSON, "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Single filter set and cleared", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 15)

		rec := serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			form(url.Values{"filter": {`{"key":"class","value":"B"}`}}), echo.MIMEApplicationForm, "collection", "students")
		view := decodeView(t, rec)
		assert.Equal(t, 7, view.Pagination.Total)
		require.Len(t, view.Filters, 1)
		assert.Equal(t, grid.FilterSelect, view.Filters[0].Type, "the column filter type is the default")

		rec = serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			strings.NewReader(`{"key":"class","value":""}`), echo.MIMEApplicationJSON, "collection", "students")
		view = decodeView(t, rec)
		assert.Equal(t, 15, view.Pagination.Total)
		assert.Empty(t, view.Filters)
	})

	t.Run("Filter forms post plain fields", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 15)
		for _, active := range []bool{true, false} {
			_, err := store.InsertRecord(&model.Record{
				Collection: "students",
				Data:       model.DataMap{"first_name": "Flag", "last_name": fmt.Sprintf("Active %v", active), "active": active},
			})
			require.NoError(t, err)
		}

		rec := serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			form(url.Values{"key": {"active"}, "type": {"boolean"}, "value": {"false"}}), echo.MIMEApplicationForm, "collection", "students")
		view := decodeView(t, rec)
		require.Len(t, view.Filters, 1)
		assert.Equal(t, false, view.Filters[0].Value, "form text is read as a boolean")
		assert.Equal(t, 16, view.Pagination.Total, "rows without the field count as false")

		rec = serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			form(url.Values{"key": {"active"}, "value": {"true"}}), echo.MIMEApplicationForm, "collection", "students")
		view = decodeView(t, rec)
		assert.Equal(t, []string{"Active true"}, lastNames(view))

		rec = serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			form(url.Values{"key": {"balance"}, "min": {"100"}, "max": {""}}), echo.MIMEApplicationForm, "collection", "students")
		view = decodeView(t, rec)
		assert.Empty(t, view.Rows, "clauses combine, the active row has no balance")

		rec = serve(t, handler.SetFilter, http.MethodPost, "/api/grid/students/filter",
			form(url.Values{"key": {"active"}, "value": {""}}), echo.MIMEApplicationForm, "collection", "students")
		view = decodeView(t, rec)
		require.Len(t, view.Filters, 1, "a blank form value clears the column filter")
		assert.Equal(t, "balance", view.Filters[0].Key)
		assert.Equal(t, 6, view.Pagination.Total)
	})

	t.Run("Sort cycles through descending and unset", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 3)

		rec := serve(t, handler.Sort, http.MethodPost, "/api/grid/students/sort/last_name", nil, "", "collection", "students", "key", "last_name")
		view := decodeView(t, rec)
		assert.Equal(t, grid.DirectionDesc, view.Sort.Direction)
		assert.Equal(t, []string{"Pupil 03", "Pupil 02", "Pupil 01"}, lastNames(view))

		rec = serve(t, handler.Sort, http.MethodPost, "/api/grid/students/sort/last_name", nil, "", "collection", "students", "key", "last_name")
		assert.Equal(t, grid.SortState{}, decodeView(t, rec).Sort)

		rec = serve(t, handler.Sort, http.MethodPost, "/api/grid/students/sort/active", nil, "", "collection", "students", "key", "active")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "column is not sortable")
	})

	t.Run("Page size keeps the first visible row", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		seedStudents(t, store, 15)

		rec := serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", strings.NewReader(`{"page":2}`), echo.MIMEApplicationJSON, "collection", "students")
		assert.Equal(t, []string{"Pupil 11", "Pupil 12", "Pupil 13", "Pupil 14", "Pupil 15"}, lastNames(decodeView(t, rec)))

		rec = serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page_size": {"5"}}), echo.MIMEApplicationForm, "collection", "students")
		view := decodeView(t, rec)
		assert.Equal(t, grid.PaginationState{Current: 3, PageSize: 5, Total: 15}, view.Pagination)

		rec = serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page": {"99"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, 3, decodeView(t, rec).Pagination.Current)

		rec = serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page_size": {"-1"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Selection survives paging", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		records := seedStudents(t, store, 15)

		rec := serve(t, handler.SelectAll, http.MethodPost, "/api/grid/students/selectAll", nil, "", "collection", "students")
		assert.Len(t, decodeView(t, rec).Selection.SelectedKeys, 10)

		serve(t, handler.Page, http.MethodPost, "/api/grid/students/page", form(url.Values{"page": {"2"}}), echo.MIMEApplicationForm, "collection", "students")
		rec = serve(t, handler.Select, http.MethodPost, "/api/grid/students/select/"+records[14].RID.String(), nil, "", "collection", "students", "key", records[14].RID.String())
		view := decodeView(t, rec)
		assert.Len(t, view.Selection.SelectedKeys, 11)
		assert.Equal(t, 2, view.Pagination.Current)

		rec = serve(t, handler.SelectAll, http.MethodPost, "/api/grid/students/selectAll?toggle=true", nil, "", "collection", "students")
		assert.Len(t, decodeView(t, rec).Selection.SelectedKeys, 15)
		rec = serve(t, handler.SelectAll, http.MethodPost, "/api/grid/students/selectAll?toggle=true", nil, "", "collection", "students")
		assert.Len(t, decodeView(t, rec).Selection.SelectedKeys, 10)

		rec = serve(t, handler.ClearSelection, http.MethodPost, "/api/grid/students/clearSelection", nil, "", "collection", "students")
		assert.Empty(t, decodeView(t, rec).Selection.SelectedKeys)
	})

	t.Run("Radio selection keeps one organization", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		first, err := store.InsertRecord(&model.Record{Collection: "organizations", Data: model.DataMap{"name": "North"}})
		require.NoError(t, err)
		second, err := store.InsertRecord(&model.Record{Collection: "organizations", Data: model.DataMap{"name": "South"}})
		require.NoError(t, err)

		serve(t, handler.Select, http.MethodPost, "/", nil, "", "collection", "organizations", "key", first.RID.String())
		rec := serve(t, handler.Select, http.MethodPost, "/", nil, "", "collection", "organizations", "key", second.RID.String())
		view := decodeView(t, rec)
		assert.Equal(t, grid.SelectionRadio, view.Selection.Mode)
		assert.Equal(t, []string{second.RID.String()}, view.Selection.SelectedKeys)
	})

	t.Run("Column visibility actions", func(t *testing.T) {
		handler, _, _ := newTestHandler(t)

		rec := serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"hideAll"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Empty(t, decodeView(t, rec).Columns)

		rec = serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"show"}, "key": {"email"}}), echo.MIMEApplicationForm, "collection", "students")
		view := decodeView(t, rec)
		require.Len(t, view.Columns, 1)
		assert.Equal(t, "email", view.Columns[0].Key)

		rec = serve(t, handler.Columns, http.MethodPost, "/", strings.NewReader(`{"action":"showAll"}`), echo.MIMEApplicationJSON, "collection", "students")
		assert.Equal(t, "rid", decodeView(t, rec).Columns[0].Key)

		rec = serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"reset"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, "first_name", decodeView(t, rec).Columns[0].Key)

		rec = serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"hide"}, "key": {"shoe_size"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"shuffle"}}), echo.MIMEApplicationForm, "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGridExport(t *testing.T) {
	t.Run("Export of the processed collection", func(t *testing.T) {
		handler, store, fs := newTestHandler(t)
		seedStudents(t, store, 15)

		serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"hideAll"}}), echo.MIMEApplicationForm, "collection", "students")
		serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"show"}, "key": {"last_name"}}), echo.MIMEApplicationForm, "collection", "students")
		serve(t, handler.Columns, http.MethodPost, "/", form(url.Values{"action": {"show"}, "key": {"class"}}), echo.MIMEApplicationForm, "collection", "students")
		serve(t, handler.Search, http.MethodPost, "/", form(url.Values{"search": {"pupil 0"}}), echo.MIMEApplicationForm, "collection", "students")

		rec := serve(t, handler.Export, http.MethodGet, "/api/grid/students/export", nil, "", "collection", "students")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, grid.CSVMimeType, rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, `attachment; filename="students.csv"`, rec.Header().Get(echo.HeaderContentDisposition))

		lines := strings.Split(rec.Body.String(), "\n")
		require.Len(t, lines, 10, "the export holds every matching row, not only the page")
		assert.Equal(t, "Last name,Class", lines[0])
		assert.Equal(t, `"Pupil 01","A"`, lines[1])

		files, err := upload.ListExports(fs)
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "exports/students.csv", files[0].Name)
	})

	t.Run("Export of the selected rows", func(t *testing.T) {
		handler, store, _ := newTestHandler(t)
		records := seedStudents(t, store, 3)

		rec := serve(t, handler.Export, http.MethodGet, "/api/grid/students/export?selected=true", nil, "", "collection", "students")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "No rows selected")

		serve(t, handler.Select, http.MethodPost, "/", nil, "", "collection", "students", "key", records[2].RID.String())
		rec = serve(t, handler.Export, http.MethodGet, "/api/grid/students/export?selected=true", nil, "", "collection", "students")
		require.Equal(t, http.StatusOK, rec.Code)
		lines := strings.Split(rec.Body.String(), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], `"Pupil 03"`)
	})
}
