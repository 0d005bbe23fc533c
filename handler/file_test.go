package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/siherrmann/schoolpayManager/upload"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportFileHandlers(t *testing.T) {
	handler, store, fs := newTestHandler(t)
	seedStudents(t, store, 2)

	rec := serve(t, handler.Export, http.MethodGet, "/api/grid/students/export", nil, "", "collection", "students")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, fs.Write("notes/readme.txt", strings.NewReader("x"), 1))

	t.Run("GetExports lists only exports", func(t *testing.T) {
		rec := serve(t, handler.GetExports, http.MethodGet, "/api/file/getExports", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var files []upload.File
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
		require.Len(t, files, 1)
		assert.Equal(t, "exports/students.csv", files[0].Name)
	})

	t.Run("DownloadExport sends the artifact", func(t *testing.T) {
		rec := serve(t, handler.DownloadExport, http.MethodGet, "/api/file/download/students.csv", nil, "", "filename", "students.csv")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "First name,Last name"))
	})

	t.Run("DownloadExport cannot leave the export directory", func(t *testing.T) {
		rec := serve(t, handler.DownloadExport, http.MethodGet, "/", nil, "", "filename", "..%2Fnotes%2Freadme.txt")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("ExportsView", func(t *testing.T) {
		rec := serve(t, handler.ExportsView, http.MethodGet, "/exports", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "/api/file/download/students.csv")
	})

	t.Run("DeleteExports", func(t *testing.T) {
		rec := serve(t, handler.DeleteExports, http.MethodPost, "/api/file/deleteExports?name=students.csv", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "1 file(s) deleted successfully")

		rec = serve(t, handler.DeleteExports, http.MethodPost, "/api/file/deleteExports?name=students.csv", nil, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		rec = serve(t, handler.DeleteExports, http.MethodPost, "/api/file/deleteExports", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		files, err := fs.ListFiles()
		require.NoError(t, err)
		assert.Len(t, files, 1, "files outside the export directory are kept")
	})
}
