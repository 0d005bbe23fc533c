package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/siherrmann/schoolpayManager/database"
	"github.com/siherrmann/schoolpayManager/grid"
	"github.com/siherrmann/schoolpayManager/model"
	"github.com/siherrmann/schoolpayManager/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore counts the collection loads of the grid sessions.
type countingStore struct {
	*database.RecordMemoryHandler
	loads int
	err   error
}

func (s *countingStore) SelectAllRecords(collection string) ([]*model.Record, error) {
	s.loads++
	if s.err != nil {
		return nil, s.err
	}
	return s.RecordMemoryHandler.SelectAllRecords(collection)
}

func newTestHandler(t *testing.T) (*ManagerHandler, *countingStore, upload.Filesystem) {
	t.Helper()
	store := &countingStore{RecordMemoryHandler: database.NewRecordMemoryHandler()}
	fs := upload.NewFilesystemMemory()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return NewManagerHandler(fs, store, logger, 10), store, fs
}

// seedStudents inserts n students, the first 8 in class A.
func seedStudents(t *testing.T, store database.RecordDBHandlerFunctions, n int) []*model.Record {
	t.Helper()
	records := make([]*model.Record, 0, n)
	for i := 1; i <= n; i++ {
		class := "A"
		if i > 8 {
			class = "B"
		}
		record, err := store.InsertRecord(&model.Record{
			Collection: "students",
			Data: model.DataMap{
				"first_name": "Kid",
				"last_name":  fmt.Sprintf("Pupil %02d", i),
				"class":      class,
				"balance":    json.Number(fmt.Sprintf("%d.50", i*10)),
			},
		})
		require.NoError(t, err)
		records = append(records, record)
	}
	return records
}

// serve runs handler on a new request. params are path parameter name and
// value pairs.
func serve(t *testing.T, handler echo.HandlerFunc, method, target string, body io.Reader, contentType string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	require.NoError(t, handler(c))
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) grid.View {
	t.Helper()
	var view grid.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view), rec.Body.String())
	return view
}

func TestHealthCheck(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	t.Run("Should return healthy status", func(t *testing.T) {
		rec := serve(t, handler.HealthCheck, http.MethodGet, "/health", nil, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
		assert.Contains(t, rec.Body.String(), "schoolpay-manager")
	})
}

func TestIndexView(t *testing.T) {
	handler, store, _ := newTestHandler(t)
	seedStudents(t, store, 3)

	t.Run("Full page lists every collection", func(t *testing.T) {
		rec := serve(t, handler.IndexView, http.MethodGet, "/", nil, "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<!doctype html>")
		assert.Contains(t, rec.Body.String(), `href="/grid/students"`)
		assert.Contains(t, rec.Body.String(), `href="/grid/exams"`)
		assert.Contains(t, rec.Body.String(), `Students</a> <span class="count">3</span>`)
	})

	t.Run("Htmx request gets the fragment", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.IndexView(e.NewContext(req, rec)))
		assert.NotContains(t, rec.Body.String(), "<!doctype html>")
		assert.Equal(t, "/", rec.Header().Get("HX-Push-Url"))
	})
}

func TestRenderPopupOrJson(t *testing.T) {
	e := echo.New()

	t.Run("JSON carries message and value", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		rid := uuid.New()

		require.NoError(t, renderPopupOrJson(c, http.StatusCreated, "done", map[string]string{"rid": rid.String()}))
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.JSONEq(t, fmt.Sprintf(`{"message":"done","value":{"rid":%q}}`, rid.String()), rec.Body.String())
	})

	t.Run("Htmx gets an error popup", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()

		require.NoError(t, renderPopupOrJson(e.NewContext(req, rec), http.StatusBadRequest, "broken <input>"))
		assert.Contains(t, rec.Body.String(), "popup-error")
		assert.Contains(t, rec.Body.String(), "broken &lt;input&gt;")
		assert.Equal(t, "#body", rec.Header().Get("HX-Retarget"))
	})

	t.Run("No value means no content", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, renderPopupOrJson(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), http.StatusAccepted))
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}
